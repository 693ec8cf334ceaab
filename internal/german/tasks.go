// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package german

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// Task types.
const (
	TaskCorrection     = "correction"
	TaskFillBlank      = "fill_blank"
	TaskMultipleChoice = "multiple_choice"
	TaskTranslation    = "translation"
	TaskRoleplay       = "roleplay"
)

// TaskTypes lists every task type GenerateTasks understands.
var TaskTypes = []string{TaskCorrection, TaskFillBlank, TaskMultipleChoice, TaskTranslation, TaskRoleplay}

// DefaultTaskTypes is used when no types are requested.
var DefaultTaskTypes = []string{TaskCorrection, TaskFillBlank, TaskTranslation}

// Blank replaces the masked word in fill_blank and multiple_choice prompts.
const Blank = "_____"

// ErrUnknownTaskType is returned for a type outside TaskTypes.
var ErrUnknownTaskType = errors.New("unknown task type")

// Task is one exercise built from a sentence.
type Task struct {
	Type       string      `json:"type"`
	Prompt     string      `json:"prompt"`
	Answer     string      `json:"answer,omitempty"`
	Options    []string    `json:"options,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Note       string      `json:"note,omitempty"`
}

// GenerateTasks builds up to n exercises from sentence, one per entry of
// types in order. An empty types means DefaultTaskTypes. Word tasks mask a
// word longer than three letters chosen with rnd and are skipped when the
// sentence has none.
func GenerateTasks(sentence, level string, n int, types []string, rnd *rand.Rand) ([]Task, error) {
	if len(types) == 0 {
		types = DefaultTaskTypes
	}
	for _, t := range types {
		if !isTaskType(t) {
			return nil, fmt.Errorf("%w %q", ErrUnknownTaskType, t)
		}
	}
	if n <= 0 {
		return []Task{}, nil
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sentence = strings.TrimSpace(sentence)
	words := strings.Fields(sentence)
	var candidates []int
	for i, w := range words {
		if utf8.RuneCountInString(bare(w)) > 3 {
			candidates = append(candidates, i)
		}
	}

	tasks := []Task{}
	for _, t := range types[:min(n, len(types))] {
		switch t {
		case TaskCorrection:
			a := Assess(sentence, level)
			tasks = append(tasks, Task{
				Type:       t,
				Prompt:     "Correct the sentence and explain your changes: " + sentence,
				Assessment: &a,
			})
		case TaskFillBlank:
			if len(candidates) == 0 {
				continue
			}
			idx := candidates[rnd.IntN(len(candidates))]
			tasks = append(tasks, Task{
				Type:   t,
				Prompt: "Fill in the blank: " + masked(words, idx),
				Answer: bare(words[idx]),
			})
		case TaskMultipleChoice:
			if len(candidates) == 0 {
				continue
			}
			idx := candidates[rnd.IntN(len(candidates))]
			correct := bare(words[idx])
			options := distinct(correct, capitalizeWord(correct), strings.ToLower(correct), correct+"en")
			rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
			tasks = append(tasks, Task{
				Type:    t,
				Prompt:  "Choose the correct word for the blank in: " + masked(words, idx),
				Options: options,
				Answer:  correct,
			})
		case TaskTranslation:
			tasks = append(tasks, Task{
				Type:   t,
				Prompt: "Translate to English: " + sentence,
				Note:   "(user to provide)",
			})
		case TaskRoleplay:
			tasks = append(tasks, Task{
				Type:   t,
				Prompt: fmt.Sprintf("Roleplay: respond in German as a native speaker to: '%s'", sentence),
				Note:   "Encourage a short reply of 1-3 sentences.",
			})
		}
	}
	return tasks, nil
}

func isTaskType(t string) bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// masked joins words with words[idx] replaced by Blank.
func masked(words []string, idx int) string {
	out := make([]string, len(words))
	copy(out, words)
	out[idx] = Blank
	return strings.Join(out, " ")
}

// capitalizeWord upper-cases the first letter and lower-cases the rest.
func capitalizeWord(s string) string {
	return capitalizeFirst(strings.ToLower(s))
}

// distinct drops repeats, keeping first occurrences in order.
func distinct(values ...string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
