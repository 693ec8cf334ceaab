// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"strings"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/srs"
	"github.com/jeranaias/rigrun-tools/internal/streaks"
)

// =============================================================================
// STUDY STREAKS
// =============================================================================

func studyTools(deps Deps) []Entry {
	record := func(apply func(*model.StudyActivity)) MutateFunc[model.StudyActivity] {
		return func(_ context.Context, a *model.StudyActivity, _ Args) (any, error) {
			apply(a)
			info, _ := streaks.Evaluate(a, deps.Now(), deps.Location)
			return info, nil
		}
	}

	return []Entry{
		Mutating(Descriptor{
			Name:        "record_visit",
			Description: "Record a study visit for today and update the streak.",
			Document:    model.DocStudyActivity,
		}, record(func(a *model.StudyActivity) {
			streaks.RecordVisit(a, deps.Now(), deps.Location)
		})),

		Mutating(Descriptor{
			Name:        "record_assessment",
			Description: "Record a completed assessment for today.",
			Document:    model.DocStudyActivity,
		}, record(func(a *model.StudyActivity) {
			streaks.RecordAssessment(a, deps.Now(), deps.Location)
		})),

		Mutating(Descriptor{
			Name:        "streak_info",
			Description: "Current streak, totals and earned badges.",
			Document:    model.DocStudyActivity,
		}, func(_ context.Context, a *model.StudyActivity, _ Args) (any, error) {
			info, changed := streaks.Evaluate(a, deps.Now(), deps.Location)
			if !changed {
				return info, docstore.ErrNoChange
			}
			return info, nil
		}),
	}
}

// =============================================================================
// FLASHCARDS
// =============================================================================

// AddCardResult is the value of add_card.
type AddCardResult struct {
	Card  model.Card `json:"card"`
	Added bool       `json:"added"`
}

// ImportResult is the value of import_cards.
type ImportResult struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

func cardTools(deps Deps) []Entry {
	return []Entry{
		Mutating(Descriptor{
			Name:        "add_card",
			Description: "Add a flashcard. A card with the same front is returned unchanged.",
			Document:    model.DocCards,
			Params: []Parameter{
				{Name: "front", Type: TypeString, Required: true, Description: "Prompt side"},
				{Name: "back", Type: TypeString, Default: "", Description: "Answer side"},
			},
		}, func(_ context.Context, deck *model.CardDeck, args Args) (any, error) {
			c, added, err := srs.Add(deck, args.String("front"), args.String("back"), deps.Now())
			if err != nil {
				return nil, err
			}
			res := AddCardResult{Card: c, Added: added}
			if !added {
				return res, docstore.ErrNoChange
			}
			return res, nil
		}),

		Mutating(Descriptor{
			Name:        "review_card",
			Description: "Grade a recall of a card from 0 (blackout) to 5 (perfect) and reschedule it.",
			Document:    model.DocCards,
			Params: []Parameter{
				{Name: "id", Type: TypeString, Required: true, Description: "Card ID"},
				{Name: "quality", Type: TypeInteger, Required: true, Description: "Recall grade 0-5"},
			},
		}, func(_ context.Context, deck *model.CardDeck, args Args) (any, error) {
			q := args.Int("quality")
			if q < 0 || q > srs.MaxQuality {
				return nil, invalidArg("quality", "must be between 0 and %d", srs.MaxQuality)
			}
			return srs.ReviewByID(deck, strings.TrimSpace(args.String("id")), int(q), deps.Now())
		}),

		Mutating(Descriptor{
			Name:        "due_cards",
			Description: "Cards due for review, earliest first.",
			Document:    model.DocCards,
			Params: []Parameter{
				{Name: "limit", Type: TypeInteger, Default: 0, Description: "Maximum cards to return (0 for all)"},
				atParam,
			},
		}, func(_ context.Context, deck *model.CardDeck, args Args) (any, error) {
			ref, err := referenceTime(deps, args)
			if err != nil {
				return nil, err
			}
			due := srs.Due(deck, ref)
			if n := args.Int("limit"); n > 0 && int(n) < len(due) {
				due = due[:n]
			}
			return due, docstore.ErrNoChange
		}),

		Mutating(Descriptor{
			Name:        "import_cards",
			Description: "Add many cards at once from objects with front and back fields. German attempts with original (or sentence) and correction fields are accepted too.",
			Document:    model.DocCards,
			Params: []Parameter{
				{Name: "cards", Type: TypeArray, Required: true, Description: "List of {\"front\": ..., \"back\": ...}"},
			},
		}, func(_ context.Context, deck *model.CardDeck, args Args) (any, error) {
			raw := args.Array("cards")
			pairs := make([]srs.Pair, 0, len(raw))
			for _, item := range raw {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, invalidArg("cards", "every element must be an object")
				}
				pairs = append(pairs, srs.Pair{
					Front: firstString(obj, "front", "original", "sentence"),
					Back:  firstString(obj, "back", "correction"),
				})
			}
			n := srs.Import(deck, pairs, deps.Now())
			res := ImportResult{Added: n, Total: len(deck.Cards)}
			if n == 0 {
				return res, docstore.ErrNoChange
			}
			return res, nil
		}),
	}
}

// firstString returns the first non-blank string among obj's keys.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
