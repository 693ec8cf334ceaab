// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Len(t, id, 26)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

// =============================================================================
// TODO TESTS
// =============================================================================

func TestTodoList_AddComplete(t *testing.T) {
	var l TodoList
	a := l.Add("buy milk", "2025-03-01T10:00", testNow)
	b := l.Add("call bob", "", testNow)
	require.Len(t, l.Items, 2)
	assert.NotEqual(t, a.ID, b.ID)

	done, err := l.Complete(a.ID, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.Done())

	_, err = l.Complete(a.ID, testNow)
	assert.ErrorIs(t, err, ErrAlreadyDone)
	_, err = l.Complete("missing", testNow)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, l.Open(false), 1)
	assert.Len(t, l.Open(true), 2)
}

func TestTodoList_LegacyArray(t *testing.T) {
	var l TodoList
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"1","text":"old"}]`), &l))
	require.Len(t, l.Items, 1)
	assert.Equal(t, "old", l.Items[0].Text)

	var wrapped TodoList
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"id":"2","text":"new"}]}`), &wrapped))
	assert.Equal(t, "new", wrapped.Items[0].Text)
}

// =============================================================================
// REMINDER TESTS
// =============================================================================

func TestReminderList_Dismiss(t *testing.T) {
	var l ReminderList
	r := l.Add("stand up", "2025-03-01T09:15", testNow)

	got, err := l.Dismiss(r.ID, testNow)
	require.NoError(t, err)
	assert.True(t, got.Dismissed)
	assert.Len(t, l.Items, 1, "dismissed reminders are kept")

	_, err = l.Dismiss(r.ID, testNow)
	assert.ErrorIs(t, err, ErrAlreadyDone)
	_, err = l.Dismiss("nope", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// NOTE TESTS
// =============================================================================

func TestNoteBook_Filter(t *testing.T) {
	var b NoteBook
	b.Add("verbs", []string{"German"}, testNow)
	b.Add("groceries", nil, testNow)

	assert.Len(t, b.Filter(""), 2)
	got := b.Filter("german")
	require.Len(t, got, 1)
	assert.Equal(t, "verbs", got[0].Text)
	assert.NotNil(t, b.Filter("none"))
}

// =============================================================================
// STUDY / CARD TESTS
// =============================================================================

func TestStudyActivity_Defaults(t *testing.T) {
	var a StudyActivity
	a.Defaults()
	assert.NotNil(t, a.Days)
	assert.NotNil(t, a.Badges)
	assert.False(t, DayActivity{}.Active())
	assert.True(t, DayActivity{Visits: 1}.Active())
}

func TestCard_DueString(t *testing.T) {
	c := Card{NextReview: testNow}
	assert.Equal(t, "2025-03-01T09:00:00Z", c.DueString())
	assert.Equal(t, "", Card{}.DueString())
	assert.False(t, c.Done())
}

func TestCardDeck_Find(t *testing.T) {
	d := CardDeck{Cards: []Card{{ID: "a", Front: "Haus"}, {ID: "b", Front: "Auto"}}}
	assert.Equal(t, 1, d.Find("b"))
	assert.Equal(t, -1, d.Find("z"))
	assert.Equal(t, 0, d.FindFront("Haus"))
	assert.Equal(t, -1, d.FindFront("haus"))
}
