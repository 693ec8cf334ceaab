// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"strings"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/schedule"
)

func requireText(args Args, field string) (string, error) {
	s := strings.TrimSpace(args.String(field))
	if s == "" {
		return "", invalidArg(field, "must not be empty")
	}
	return s, nil
}

func dueArg(deps Deps, args Args, field string) (string, error) {
	raw := args.String(field)
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	due, err := schedule.NormalizeDue(raw, deps.Location)
	if err != nil {
		return "", invalidArg(field, "%v", err)
	}
	return due, nil
}

// cleanTags trims tags and drops empty or repeated ones.
func cleanTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if t == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// =============================================================================
// NOTES
// =============================================================================

func noteTools(deps Deps) []Entry {
	return []Entry{
		Mutating(Descriptor{
			Name:        "add_note",
			Description: "Save a note with optional tags.",
			Document:    model.DocNotes,
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Note text"},
				{Name: "tags", Type: TypeArray, Description: "Tags (strings)"},
			},
		}, func(_ context.Context, book *model.NoteBook, args Args) (any, error) {
			text, err := requireText(args, "text")
			if err != nil {
				return nil, err
			}
			return book.Add(text, cleanTags(args.Strings("tags")), deps.Now()), nil
		}),

		Mutating(Descriptor{
			Name:        "list_notes",
			Description: "List saved notes, optionally only those with a tag.",
			Document:    model.DocNotes,
			Params: []Parameter{
				{Name: "tag", Type: TypeString, Description: "Only notes with this tag"},
			},
		}, func(_ context.Context, book *model.NoteBook, args Args) (any, error) {
			return book.Filter(strings.TrimSpace(args.String("tag"))), docstore.ErrNoChange
		}),
	}
}

// =============================================================================
// TODOS
// =============================================================================

func todoTools(deps Deps) []Entry {
	return []Entry{
		Mutating(Descriptor{
			Name:        "add_todo",
			Description: "Add a todo with an optional due time.",
			Document:    model.DocTodos,
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "What needs doing"},
				{Name: "due_at", Type: TypeString, Description: "Due time (RFC 3339 or YYYY-MM-DD HH:MM)"},
			},
		}, func(_ context.Context, list *model.TodoList, args Args) (any, error) {
			text, err := requireText(args, "text")
			if err != nil {
				return nil, err
			}
			due, err := dueArg(deps, args, "due_at")
			if err != nil {
				return nil, err
			}
			return list.Add(text, due, deps.Now()), nil
		}),

		Mutating(Descriptor{
			Name:        "complete_todo",
			Description: "Mark a todo as completed.",
			Document:    model.DocTodos,
			Params: []Parameter{
				{Name: "id", Type: TypeString, Required: true, Description: "Todo ID"},
			},
		}, func(_ context.Context, list *model.TodoList, args Args) (any, error) {
			return list.Complete(strings.TrimSpace(args.String("id")), deps.Now())
		}),

		Mutating(Descriptor{
			Name:        "list_todos",
			Description: "List todos in creation order.",
			Document:    model.DocTodos,
			Params: []Parameter{
				{Name: "include_done", Type: TypeBoolean, Default: false, Description: "Include completed todos"},
			},
		}, func(_ context.Context, list *model.TodoList, args Args) (any, error) {
			return list.Open(args.Bool("include_done")), docstore.ErrNoChange
		}),

		Mutating(Descriptor{
			Name:        "due_todos",
			Description: "Open todos whose due time has passed, earliest first.",
			Document:    model.DocTodos,
			Params:      []Parameter{atParam},
		}, func(_ context.Context, list *model.TodoList, args Args) (any, error) {
			ref, err := referenceTime(deps, args)
			if err != nil {
				return nil, err
			}
			return schedule.DueNow(list.Items, ref, deps.Location), docstore.ErrNoChange
		}),
	}
}

// =============================================================================
// REMINDERS
// =============================================================================

func reminderTools(deps Deps) []Entry {
	return []Entry{
		Mutating(Descriptor{
			Name:        "add_reminder",
			Description: "Add a reminder for a given time.",
			Document:    model.DocReminders,
			Params: []Parameter{
				{Name: "text", Type: TypeString, Required: true, Description: "Reminder text"},
				{Name: "due_at", Type: TypeString, Required: true, Description: "When to remind (RFC 3339 or YYYY-MM-DD HH:MM)"},
			},
		}, func(_ context.Context, list *model.ReminderList, args Args) (any, error) {
			text, err := requireText(args, "text")
			if err != nil {
				return nil, err
			}
			due, err := dueArg(deps, args, "due_at")
			if err != nil {
				return nil, err
			}
			if due == "" {
				return nil, invalidArg("due_at", "must not be empty")
			}
			return list.Add(text, due, deps.Now()), nil
		}),

		Mutating(Descriptor{
			Name:        "dismiss_reminder",
			Description: "Dismiss a reminder so it is no longer due.",
			Document:    model.DocReminders,
			Params: []Parameter{
				{Name: "id", Type: TypeString, Required: true, Description: "Reminder ID"},
			},
		}, func(_ context.Context, list *model.ReminderList, args Args) (any, error) {
			return list.Dismiss(strings.TrimSpace(args.String("id")), deps.Now())
		}),

		Mutating(Descriptor{
			Name:        "due_reminders",
			Description: "Reminders that are due and not dismissed, earliest first.",
			Document:    model.DocReminders,
			Params:      []Parameter{atParam},
		}, func(_ context.Context, list *model.ReminderList, args Args) (any, error) {
			ref, err := referenceTime(deps, args)
			if err != nil {
				return nil, err
			}
			return schedule.DueNow(list.Items, ref, deps.Location), docstore.ErrNoChange
		}),
	}
}
