// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the persisted user documents and their items.
//
// # Key Types
//
//   - NoteBook / Note: free-text notes with tags ("notes")
//   - TodoList / TodoItem: tasks with an optional due time ("todos")
//   - ReminderList / ReminderItem: reminders that are dismissed, never deleted ("reminders")
//   - StudyActivity: per-day visit and assessment counts plus awarded badges ("study_activity")
//   - CardDeck / Card: spaced-repetition flashcards ("srs_cards")
//
// Item IDs are ULIDs, so they sort by creation time. The list documents also
// decode from a bare JSON array, the shape of files written before the
// documents were wrapped in an object.
//
// Todos, reminders and cards implement schedule.Item.
package model
