// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-tools/internal/model"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestReview_SuccessSequence(t *testing.T) {
	c := NewCard("ich habe ein haus", "Ich habe ein Haus.", t0)
	assert.Equal(t, InitialEFactor, c.EFactor)

	c = Review(c, 5, t0)
	assert.Equal(t, 1, c.Repetitions)
	assert.Equal(t, 1, c.Interval)
	assert.InDelta(t, 2.6, c.EFactor, 1e-9)
	assert.Equal(t, t0.AddDate(0, 0, 1), c.NextReview)

	c = Review(c, 5, t0)
	assert.Equal(t, 2, c.Repetitions)
	assert.Equal(t, 6, c.Interval)
	assert.InDelta(t, 2.7, c.EFactor, 1e-9)

	c = Review(c, 5, t0)
	assert.Equal(t, 3, c.Repetitions)
	assert.Equal(t, 16, c.Interval) // round(6 * 2.7)
	assert.InDelta(t, 2.8, c.EFactor, 1e-9)
	require.NotNil(t, c.LastQuality)
	assert.Equal(t, 5, *c.LastQuality)
}

func TestReview_HardRecallLowersEFactor(t *testing.T) {
	c := Review(NewCard("a", "b", t0), 3, t0)
	assert.InDelta(t, 2.36, c.EFactor, 1e-9)
	assert.Equal(t, 1, c.Repetitions)
}

func TestReview_FailureResets(t *testing.T) {
	c := NewCard("a", "b", t0)
	c = Review(c, 5, t0)
	c = Review(c, 5, t0)
	ef := c.EFactor

	c = Review(c, 1, t0)
	assert.Equal(t, 0, c.Repetitions)
	assert.Equal(t, 1, c.Interval)
	assert.Equal(t, ef, c.EFactor, "failure leaves e-factor unchanged")
	assert.Equal(t, t0.AddDate(0, 0, 1), c.NextReview)
}

func TestReview_EFactorFloor(t *testing.T) {
	c := NewCard("a", "b", t0)
	for i := 0; i < 20; i++ {
		c = Review(c, 3, t0)
	}
	assert.Equal(t, MinEFactor, c.EFactor)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(9))
	assert.Equal(t, 0, Clamp(-3))
	assert.Equal(t, 4, Clamp(4))

	c := Review(NewCard("a", "b", t0), 42, t0)
	assert.Equal(t, 5, *c.LastQuality)
}

func TestAdd_DeduplicatesFront(t *testing.T) {
	var d model.CardDeck
	first, added, err := Add(&d, "Haus", "house", t0)
	require.NoError(t, err)
	assert.True(t, added)

	again, added, err := Add(&d, " Haus ", "other", t0)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, d.Cards, 1)

	_, _, err = Add(&d, "  ", "x", t0)
	assert.ErrorIs(t, err, ErrEmptyFront)
}

func TestImport(t *testing.T) {
	var d model.CardDeck
	Add(&d, "Haus", "house", t0)
	n := Import(&d, []Pair{{"Haus", "x"}, {"Auto", "car"}, {"", "skip"}, {"Buch", "book"}}, t0)
	assert.Equal(t, 2, n)
	assert.Len(t, d.Cards, 3)
}

func TestDue(t *testing.T) {
	var d model.CardDeck
	a, _, _ := Add(&d, "a", "", t0)
	b, _, _ := Add(&d, "b", "", t0.Add(-time.Hour))
	Add(&d, "c", "", t0.Add(time.Hour))

	due := Due(&d, t0)
	require.Len(t, due, 2)
	assert.Equal(t, b.ID, due[0].ID)
	assert.Equal(t, a.ID, due[1].ID)

	_, err := ReviewByID(&d, a.ID, 4, t0)
	require.NoError(t, err)
	assert.Len(t, Due(&d, t0), 1)

	_, err = ReviewByID(&d, "missing", 4, t0)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
