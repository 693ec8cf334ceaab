// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// DateLayout is the key format of StudyActivity.Days.
const DateLayout = "2006-01-02"

// =============================================================================
// STUDY ACTIVITY
// =============================================================================

// DayActivity counts what happened on one calendar day.
type DayActivity struct {
	Visits      int `json:"visits"`
	Assessments int `json:"assessments"`
}

// Active reports whether anything was recorded for the day.
func (d DayActivity) Active() bool {
	return d.Visits+d.Assessments > 0
}

// StudyActivity is the "study_activity" document. Streaks and totals are
// derived from Days on every query and are not stored.
type StudyActivity struct {
	Days       map[string]DayActivity `json:"days"`
	Badges     map[string]time.Time   `json:"badges"`
	LastActive string                 `json:"last_active,omitempty"`
}

// Defaults implements docstore.Defaulter.
func (a *StudyActivity) Defaults() {
	a.Days = map[string]DayActivity{}
	a.Badges = map[string]time.Time{}
}

// =============================================================================
// SPACED REPETITION CARDS
// =============================================================================

// Card is a flashcard scheduled with SM-2.
type Card struct {
	ID           string     `json:"id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Repetitions  int        `json:"repetitions"`
	Interval     int        `json:"interval"`
	EFactor      float64    `json:"efactor"`
	NextReview   time.Time  `json:"next_review"`
	CreatedAt    time.Time  `json:"created_at"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	LastQuality  *int       `json:"last_quality,omitempty"`
}

// DueString implements schedule.Item.
func (c Card) DueString() string {
	if c.NextReview.IsZero() {
		return ""
	}
	return c.NextReview.Format(time.RFC3339Nano)
}

// Done implements schedule.Item. Cards are never finished.
func (c Card) Done() bool { return false }

// CardDeck is the "srs_cards" document.
type CardDeck struct {
	Cards []Card `json:"cards"`
}

// UnmarshalJSON also accepts a bare array of cards.
func (d *CardDeck) UnmarshalJSON(data []byte) error {
	return decodeList(data, "cards", &d.Cards)
}

// Find returns the index of the card with id, or -1.
func (d *CardDeck) Find(id string) int {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

// FindFront returns the index of the card whose front is exactly front, or -1.
func (d *CardDeck) FindFront(front string) int {
	for i := range d.Cards {
		if d.Cards[i].Front == front {
			return i
		}
	}
	return -1
}
