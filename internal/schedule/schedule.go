// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Item is anything with an optional due time and a done flag.
type Item interface {
	// DueString returns the stored due value, or "" for none
	DueString() string
	// Done reports whether the item is completed or dismissed
	Done() bool
}

// ErrBadDue is returned by ParseDue for values in no supported layout.
var ErrBadDue = errors.New("unrecognized due time")

// localLayouts are interpreted in the configured zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadZone resolves an IANA zone name. "" and "local" mean the host zone.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	if strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", name)
	}
	return loc, nil
}

// ParseDue parses a due value. RFC 3339 values carry their own offset; the
// zone-less layouts are read in loc (UTC when loc is nil).
func ParseDue(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadDue)
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDue, s)
}

// NormalizeDue validates s and returns it unchanged apart from trimming, so
// that zone-less values stay zone-less on disk.
func NormalizeDue(s string, loc *time.Location) (string, error) {
	if _, err := ParseDue(s, loc); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// DueNow returns the items that are not done and whose due time is at or
// before ref, ordered by due time and then by their position in items.
// Items without a parseable due time are never due. items is not modified.
func DueNow[T Item](items []T, ref time.Time, loc *time.Location) []T {
	type due struct {
		item T
		at   time.Time
	}
	var out []due
	for _, it := range items {
		if it.Done() {
			continue
		}
		at, err := ParseDue(it.DueString(), loc)
		if err != nil || at.After(ref) {
			continue
		}
		out = append(out, due{item: it, at: at})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })

	res := make([]T, len(out))
	for i, d := range out {
		res[i] = d.item
	}
	return res
}

// Upcoming returns items that are not done and fall due in (ref, ref+window],
// in the same order as DueNow.
func Upcoming[T Item](items []T, ref time.Time, window time.Duration, loc *time.Location) []T {
	return DueNow(filterAfter(items, ref, loc), ref.Add(window), loc)
}

func filterAfter[T Item](items []T, ref time.Time, loc *time.Location) []T {
	var out []T
	for _, it := range items {
		at, err := ParseDue(it.DueString(), loc)
		if err == nil && at.After(ref) {
			out = append(out, it)
		}
	}
	return out
}
