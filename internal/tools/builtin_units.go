// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ConvertResult is the value of unit_convert.
type ConvertResult struct {
	Value  float64 `json:"value"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Result float64 `json:"result"`
}

func (r ConvertResult) String() string {
	return fmt.Sprintf("%g %s = %g %s", r.Value, r.From, r.Result, r.To)
}

type unit struct {
	dimension string
	// factor scales the unit to the dimension's base (m, kg, l, s)
	factor float64
}

var units = map[string]unit{
	"mm": {"length", 0.001}, "cm": {"length", 0.01}, "m": {"length", 1}, "km": {"length", 1000},
	"in": {"length", 0.0254}, "ft": {"length", 0.3048}, "yd": {"length", 0.9144}, "mi": {"length", 1609.344},

	"mg": {"mass", 1e-6}, "g": {"mass", 0.001}, "kg": {"mass", 1}, "t": {"mass", 1000},
	"oz": {"mass", 0.028349523125}, "lb": {"mass", 0.45359237},

	"ml": {"volume", 0.001}, "l": {"volume", 1}, "cup": {"volume", 0.2365882365},
	"pt": {"volume", 0.473176473}, "gal": {"volume", 3.785411784},

	"s": {"time", 1}, "min": {"time", 60}, "h": {"time", 3600}, "d": {"time", 86400}, "wk": {"time", 604800},

	"c": {"temperature", 0}, "f": {"temperature", 0}, "k": {"temperature", 0},
}

var unitAliases = map[string]string{
	"meter": "m", "meters": "m", "metre": "m", "kilometer": "km", "kilometers": "km",
	"mile": "mi", "miles": "mi", "foot": "ft", "feet": "ft", "inch": "in", "inches": "in",
	"gram": "g", "grams": "g", "kilogram": "kg", "kilograms": "kg", "pound": "lb", "pounds": "lb", "lbs": "lb",
	"liter": "l", "liters": "l", "litre": "l", "gallon": "gal", "gallons": "gal",
	"sec": "s", "second": "s", "seconds": "s", "minute": "min", "minutes": "min",
	"hour": "h", "hours": "h", "day": "d", "days": "d", "week": "wk", "weeks": "wk",
	"celsius": "c", "°c": "c", "fahrenheit": "f", "°f": "f", "kelvin": "k",
}

func lookupUnit(field, name string) (string, unit, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := unitAliases[key]; ok {
		key = alias
	}
	u, ok := units[key]
	if !ok {
		return "", unit{}, invalidArg(field, "unknown unit %q (known: %s)", name, strings.Join(unitNames(), ", "))
	}
	return key, u, nil
}

func unitNames() []string {
	names := make([]string, 0, len(units))
	for k := range units {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func toKelvin(v float64, from string) float64 {
	switch from {
	case "c":
		return v + 273.15
	case "f":
		return (v-32)*5/9 + 273.15
	}
	return v
}

func fromKelvin(v float64, to string) float64 {
	switch to {
	case "c":
		return v - 273.15
	case "f":
		return (v-273.15)*9/5 + 32
	}
	return v
}

// Convert converts value between two units of the same dimension.
func Convert(value float64, from, to string) (ConvertResult, error) {
	fk, fu, err := lookupUnit("from", from)
	if err != nil {
		return ConvertResult{}, err
	}
	tk, tu, err := lookupUnit("to", to)
	if err != nil {
		return ConvertResult{}, err
	}
	if fu.dimension != tu.dimension {
		return ConvertResult{}, invalidArg("to", "cannot convert %s (%s) to %s (%s)", fk, fu.dimension, tk, tu.dimension)
	}

	var out float64
	if fu.dimension == "temperature" {
		out = fromKelvin(toKelvin(value, fk), tk)
	} else {
		out = value * fu.factor / tu.factor
	}
	// round to 12 significant digits
	out, _ = strconv.ParseFloat(strconv.FormatFloat(out, 'g', 12, 64), 64)
	return ConvertResult{Value: value, From: fk, To: tk, Result: out}, nil
}

func unitTool() Entry {
	return Pure(Descriptor{
		Name:        "unit_convert",
		Description: "Convert between length, mass, volume, time and temperature units (km to mi, c to f).",
		Params: []Parameter{
			{Name: "value", Type: TypeNumber, Required: true, Description: "Amount to convert"},
			{Name: "from", Type: TypeString, Required: true, Description: "Source unit"},
			{Name: "to", Type: TypeString, Required: true, Description: "Target unit"},
		},
	}, func(_ context.Context, args Args) (any, error) {
		return Convert(args.Float("value"), args.String("from"), args.String("to"))
	})
}
