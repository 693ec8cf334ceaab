// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// WeatherReport is the value of get_weather.
type WeatherReport struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Units       string  `json:"units"`
	Summary     string  `json:"summary"`
}

func (w WeatherReport) String() string {
	return w.Summary
}

type unitSymbols struct {
	temp, speed string
}

var weatherUnits = map[string]unitSymbols{
	"metric":   {"°C", "m/s"},
	"imperial": {"°F", "mph"},
	"standard": {"K", "m/s"},
}

// owmResponse is the subset of the OpenWeatherMap current weather payload
// that the tool reads. Cod is a number on success and a string on errors.
type owmResponse struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
	Name    string          `json:"name"`
	Sys     struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (r owmResponse) code() string {
	return strings.Trim(string(r.Cod), `" `)
}

func weatherTool(deps Deps) Entry {
	cfg := deps.Weather
	f := newFetcher("weather service", deps, cfg.RequestsPerMin)

	return Cacheable(Descriptor{
		Name:        "get_weather",
		Description: "Current weather for a city from OpenWeatherMap.",
		Params: []Parameter{
			{Name: "city", Type: TypeString, Required: true, Description: "City name, optionally with country code (Paris,FR)"},
			{Name: "units", Type: TypeString, Default: cfg.Units, Enum: []string{"metric", "imperial", "standard"}, Description: "Unit system"},
		},
		TTL:     cfg.TTL,
		Timeout: cfg.Timeout,
	}, func(ctx context.Context, args Args) (any, error) {
		city := strings.TrimSpace(args.String("city"))
		if city == "" {
			return nil, invalidArg("city", "must not be empty")
		}
		if cfg.APIKey == "" {
			return nil, upstream(nil, "weather API key not configured (set OPENWEATHER_API_KEY)")
		}
		units := args.String("units")

		q := url.Values{}
		q.Set("q", city)
		q.Set("appid", cfg.APIKey)
		q.Set("units", units)
		status, body, err := f.get(ctx, cfg.BaseURL+"?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var resp owmResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			if status != http.StatusOK {
				return nil, statusError(f.service, status, "")
			}
			return nil, upstream(err, "weather service sent an unreadable response")
		}
		if status == http.StatusNotFound || resp.code() == "404" {
			return nil, invalidArg("city", "city %q not found", city)
		}
		if status != http.StatusOK || (resp.code() != "" && resp.code() != "200") {
			return nil, statusError(f.service, status, resp.Message)
		}

		return buildWeatherReport(city, units, resp), nil
	})
}

func buildWeatherReport(city, units string, r owmResponse) WeatherReport {
	name := r.Name
	if name == "" {
		name = city
	}
	desc := "unknown conditions"
	if len(r.Weather) > 0 && r.Weather[0].Description != "" {
		desc = r.Weather[0].Description
	}
	sym, ok := weatherUnits[units]
	if !ok {
		sym = weatherUnits["metric"]
	}
	rep := WeatherReport{
		City:        name,
		Country:     r.Sys.Country,
		Description: capitalize(desc),
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		Units:       units,
	}
	place := rep.City
	if rep.Country != "" {
		place += ", " + rep.Country
	}
	rep.Summary = fmt.Sprintf("Weather in %s: %s, %.1f%s (feels like %.1f%s), humidity %d%%, wind %.1f %s",
		place, rep.Description, rep.Temperature, sym.temp, rep.FeelsLike, sym.temp,
		rep.Humidity, rep.WindSpeed, sym.speed)
	return rep
}
