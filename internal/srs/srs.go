// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package srs schedules flashcards with the SM-2 spaced repetition algorithm.
package srs

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/schedule"
)

// SM-2 constants.
const (
	InitialEFactor = 2.5
	MinEFactor     = 1.3
	MaxQuality     = 5
	// PassQuality is the lowest grade that counts as a successful recall
	PassQuality = 3
)

// ErrEmptyFront is returned when adding a card without front text.
var ErrEmptyFront = errors.New("card front is empty")

// NewCard returns a card that is due immediately.
func NewCard(front, back string, now time.Time) model.Card {
	now = now.UTC()
	return model.Card{
		ID:         model.NewID(),
		Front:      front,
		Back:       back,
		EFactor:    InitialEFactor,
		NextReview: now,
		CreatedAt:  now,
	}
}

// Add appends a new card unless one with the same front already exists, in
// which case the existing card is returned. The boolean reports whether the
// deck changed.
func Add(d *model.CardDeck, front, back string, now time.Time) (model.Card, bool, error) {
	front = strings.TrimSpace(front)
	if front == "" {
		return model.Card{}, false, ErrEmptyFront
	}
	if i := d.FindFront(front); i >= 0 {
		return d.Cards[i], false, nil
	}
	c := NewCard(front, strings.TrimSpace(back), now)
	d.Cards = append(d.Cards, c)
	return c, true, nil
}

// Pair is a front/back pair for bulk import.
type Pair struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Import adds every pair whose front is new and returns how many were added.
func Import(d *model.CardDeck, pairs []Pair, now time.Time) int {
	added := 0
	for _, p := range pairs {
		if _, ok, err := Add(d, p.Front, p.Back, now); err == nil && ok {
			added++
		}
	}
	return added
}

// Clamp restricts a grade to 0..5.
func Clamp(q int) int {
	return max(0, min(MaxQuality, q))
}

// Review applies one SM-2 step to c for grade q (clamped to 0..5).
//
// A failed recall (q < 3) resets the repetition count and schedules the card
// for tomorrow, leaving the e-factor alone. A successful recall advances the
// interval to 1, then 6, then round(interval * ef) days and adjusts the
// e-factor, never below 1.3.
func Review(c model.Card, q int, now time.Time) model.Card {
	q = Clamp(q)
	now = now.UTC()
	if c.EFactor == 0 {
		c.EFactor = InitialEFactor
	}

	if q < PassQuality {
		c.Repetitions = 0
		c.Interval = 1
	} else {
		ef := c.EFactor
		reps := c.Repetitions + 1
		var interval int
		switch reps {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			prev := c.Interval
			if prev < 1 {
				prev = 1
			}
			interval = int(math.RoundToEven(float64(prev) * ef))
		}
		miss := float64(MaxQuality - q)
		ef += 0.1 - miss*(0.08+miss*0.02)
		if ef < MinEFactor {
			ef = MinEFactor
		}
		c.EFactor = math.Round(ef*10000) / 10000
		c.Repetitions = reps
		c.Interval = interval
	}

	c.NextReview = now.AddDate(0, 0, c.Interval)
	c.LastReviewed = &now
	c.LastQuality = &q
	return c
}

// ReviewByID reviews the card with id in place.
func ReviewByID(d *model.CardDeck, id string, q int, now time.Time) (model.Card, error) {
	i := d.Find(id)
	if i < 0 {
		return model.Card{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	d.Cards[i] = Review(d.Cards[i], q, now)
	return d.Cards[i], nil
}

// Due returns the cards whose next review is at or before now, earliest first.
func Due(d *model.CardDeck, now time.Time) []model.Card {
	return schedule.DueNow(d.Cards, now, time.UTC)
}
