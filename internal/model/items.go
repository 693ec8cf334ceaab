// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Document names.
const (
	DocNotes         = "notes"
	DocTodos         = "todos"
	DocReminders     = "reminders"
	DocStudyActivity = "study_activity"
	DocCards         = "srs_cards"
)

var (
	// ErrNotFound is returned when no item has the requested ID.
	ErrNotFound = errors.New("item not found")
	// ErrAlreadyDone is returned when completing or dismissing twice.
	ErrAlreadyDone = errors.New("item already done")
)

// NewID returns a new time-sortable identifier.
func NewID() string {
	return ulid.Make().String()
}

// decodeList accepts either {"<key>": [...]} or a bare legacy array.
func decodeList[T any](data []byte, key string, dst *[]T) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, dst)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// =============================================================================
// NOTES
// =============================================================================

// Note is a free-text note.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasTag reports whether the note carries tag, ignoring case.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// NoteBook is the "notes" document.
type NoteBook struct {
	Notes []Note `json:"notes"`
}

// UnmarshalJSON also accepts a bare array of notes.
func (b *NoteBook) UnmarshalJSON(data []byte) error {
	return decodeList(data, "notes", &b.Notes)
}

// Add appends a note.
func (b *NoteBook) Add(text string, tags []string, now time.Time) Note {
	n := Note{ID: NewID(), Text: text, Tags: tags, CreatedAt: now.UTC()}
	b.Notes = append(b.Notes, n)
	return n
}

// Filter returns notes carrying tag, or all notes when tag is empty.
func (b *NoteBook) Filter(tag string) []Note {
	out := []Note{}
	for _, n := range b.Notes {
		if tag == "" || n.HasTag(tag) {
			out = append(out, n)
		}
	}
	return out
}

// =============================================================================
// TODOS
// =============================================================================

// TodoItem is a task with an optional due time.
type TodoItem struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	DueAt       string     `json:"due_at,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DueString implements schedule.Item.
func (t TodoItem) DueString() string { return t.DueAt }

// Done implements schedule.Item.
func (t TodoItem) Done() bool { return t.Completed }

// TodoList is the "todos" document.
type TodoList struct {
	Items []TodoItem `json:"items"`
}

// UnmarshalJSON also accepts a bare array of items.
func (l *TodoList) UnmarshalJSON(data []byte) error {
	return decodeList(data, "items", &l.Items)
}

// Add appends a todo. due must already be validated.
func (l *TodoList) Add(text, due string, now time.Time) TodoItem {
	it := TodoItem{ID: NewID(), Text: text, DueAt: due, CreatedAt: now.UTC()}
	l.Items = append(l.Items, it)
	return it
}

// Complete marks the todo with id as done.
func (l *TodoList) Complete(id string, now time.Time) (TodoItem, error) {
	for i := range l.Items {
		if l.Items[i].ID != id {
			continue
		}
		if l.Items[i].Completed {
			return l.Items[i], fmt.Errorf("%w: %s", ErrAlreadyDone, id)
		}
		at := now.UTC()
		l.Items[i].Completed = true
		l.Items[i].CompletedAt = &at
		return l.Items[i], nil
	}
	return TodoItem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Open returns items not yet completed; all items when includeDone is set.
func (l *TodoList) Open(includeDone bool) []TodoItem {
	out := []TodoItem{}
	for _, it := range l.Items {
		if includeDone || !it.Completed {
			out = append(out, it)
		}
	}
	return out
}

// =============================================================================
// REMINDERS
// =============================================================================

// ReminderItem is a reminder. Dismissing one is its completion; reminders
// are never deleted.
type ReminderItem struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	DueAt       string     `json:"due_at"`
	Dismissed   bool       `json:"dismissed"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
}

// DueString implements schedule.Item.
func (r ReminderItem) DueString() string { return r.DueAt }

// Done implements schedule.Item.
func (r ReminderItem) Done() bool { return r.Dismissed }

// ReminderList is the "reminders" document.
type ReminderList struct {
	Items []ReminderItem `json:"items"`
}

// UnmarshalJSON also accepts a bare array of reminders.
func (l *ReminderList) UnmarshalJSON(data []byte) error {
	return decodeList(data, "items", &l.Items)
}

// Add appends a reminder. due must already be validated.
func (l *ReminderList) Add(text, due string, now time.Time) ReminderItem {
	r := ReminderItem{ID: NewID(), Text: text, DueAt: due, CreatedAt: now.UTC()}
	l.Items = append(l.Items, r)
	return r
}

// Dismiss marks the reminder with id as dismissed.
func (l *ReminderList) Dismiss(id string, now time.Time) (ReminderItem, error) {
	for i := range l.Items {
		if l.Items[i].ID != id {
			continue
		}
		if l.Items[i].Dismissed {
			return l.Items[i], fmt.Errorf("%w: %s", ErrAlreadyDone, id)
		}
		at := now.UTC()
		l.Items[i].Dismissed = true
		l.Items[i].DismissedAt = &at
		return l.Items[i], nil
	}
	return ReminderItem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
