// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package streaks derives study streaks and badges from daily activity.
package streaks

import (
	"sort"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/model"
)

// Summary holds the derived metrics a badge rule can look at.
type Summary struct {
	Streak           int
	TotalAssessments int
	TotalDaysActive  int
}

// Badge is an award granted once, the first time its rule holds.
type Badge struct {
	Name string
	Rule func(Summary) bool
}

// Badges in award order.
var Badges = []Badge{
	{"First Activity", func(s Summary) bool { return s.TotalDaysActive >= 1 }},
	{"3-Day Streak", func(s Summary) bool { return s.Streak >= 3 }},
	{"7-Day Streak", func(s Summary) bool { return s.Streak >= 7 }},
	{"30-Day Streak", func(s Summary) bool { return s.Streak >= 30 }},
	{"10 Assessments", func(s Summary) bool { return s.TotalAssessments >= 10 }},
}

// Info is the result of a streak query.
type Info struct {
	Streak           int      `json:"streak"`
	TotalAssessments int      `json:"total_assessments"`
	TotalDaysActive  int      `json:"total_days_active"`
	Badges           []string `json:"badges"`
	NewlyEarned      []string `json:"newly_earned"`
	LastActive       string   `json:"last_active,omitempty"`
}

func dayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(model.DateLayout)
}

func ensure(a *model.StudyActivity) {
	if a.Days == nil {
		a.Days = map[string]model.DayActivity{}
	}
	if a.Badges == nil {
		a.Badges = map[string]time.Time{}
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordVisit counts a visit on the calendar day of now in loc.
func RecordVisit(a *model.StudyActivity, now time.Time, loc *time.Location) {
	ensure(a)
	key := dayKey(now, loc)
	d := a.Days[key]
	d.Visits++
	a.Days[key] = d
	a.LastActive = key
}

// RecordAssessment counts a completed assessment on the day of now in loc.
func RecordAssessment(a *model.StudyActivity, now time.Time, loc *time.Location) {
	ensure(a)
	key := dayKey(now, loc)
	d := a.Days[key]
	d.Assessments++
	a.Days[key] = d
	a.LastActive = key
}

// =============================================================================
// QUERIES
// =============================================================================

// CurrentStreak counts consecutive active days ending today. A day without
// activity today means a streak of zero.
func CurrentStreak(days map[string]model.DayActivity, today time.Time) int {
	streak := 0
	cur := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, time.UTC)
	for {
		d, ok := days[cur.Format(model.DateLayout)]
		if !ok || !d.Active() {
			return streak
		}
		streak++
		cur = cur.AddDate(0, 0, -1)
	}
}

// Summarize computes the derived metrics for the day of now in loc.
func Summarize(a *model.StudyActivity, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}
	s := Summary{Streak: CurrentStreak(a.Days, now.In(loc))}
	for _, d := range a.Days {
		s.TotalAssessments += d.Assessments
		if d.Active() {
			s.TotalDaysActive++
		}
	}
	return s
}

// Evaluate awards every badge whose rule now holds and returns the streak
// info. The boolean reports whether any badge was added to a.
func Evaluate(a *model.StudyActivity, now time.Time, loc *time.Location) (Info, bool) {
	ensure(a)
	s := Summarize(a, now, loc)
	info := Info{
		Streak:           s.Streak,
		TotalAssessments: s.TotalAssessments,
		TotalDaysActive:  s.TotalDaysActive,
		NewlyEarned:      []string{},
		LastActive:       a.LastActive,
	}
	for _, b := range Badges {
		if _, have := a.Badges[b.Name]; have || !b.Rule(s) {
			continue
		}
		a.Badges[b.Name] = now.UTC()
		info.NewlyEarned = append(info.NewlyEarned, b.Name)
	}
	info.Badges = earned(a.Badges)
	return info, len(info.NewlyEarned) > 0
}

// earned lists awarded badges in award time order, names breaking ties.
func earned(badges map[string]time.Time) []string {
	names := make([]string, 0, len(badges))
	for n := range badges {
		names = append(names, n)
	}
	order := make(map[string]int, len(Badges))
	for i, b := range Badges {
		order[b.Name] = i
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := badges[names[i]], badges[names[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		oi, iok := order[names[i]]
		oj, jok := order[names[j]]
		if iok && jok {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}
