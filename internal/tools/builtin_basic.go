// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jeranaias/rigrun-tools/internal/calc"
	"github.com/jeranaias/rigrun-tools/internal/german"
)

// CalcResult is the value of calculate.
type CalcResult struct {
	Expression string      `json:"expression"`
	Result     calc.Number `json:"result"`
}

func (r CalcResult) String() string {
	return r.Result.String()
}

// CEFR levels accepted by assess_german.
var germanLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

func basicTools(deps Deps) []Entry {
	ev := deps.Evaluator
	return []Entry{
		Pure(Descriptor{
			Name: "calculate",
			Description: "Evaluate an arithmetic expression.\n" +
				"Supports + - * / // % ** and parentheses over integers and decimals.",
			Params: []Parameter{
				{Name: "expression", Type: TypeString, Required: true, Description: "Expression such as (15 + 10) * 2"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			expr := args.String("expression")
			n, err := ev.Evaluate(expr)
			if err != nil {
				return nil, err
			}
			return CalcResult{Expression: strings.TrimSpace(expr), Result: n}, nil
		}),

		Pure(Descriptor{
			Name:        "say_hello",
			Description: "Greet someone by name.",
			Params: []Parameter{
				{Name: "name", Type: TypeString, Required: true, Description: "Who to greet"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			name := strings.TrimSpace(args.String("name"))
			if name == "" {
				return nil, invalidArg("name", "must not be empty")
			}
			return fmt.Sprintf("Hello %s, I hope you are well today.", name), nil
		}),

		Pure(Descriptor{
			Name: "assess_german",
			Description: "Check a simple German sentence.\n" +
				"Reports punctuation, capitalization, verb position and article agreement issues with a score.",
			Params: []Parameter{
				{Name: "sentence", Type: TypeString, Required: true, Description: "German sentence"},
				{Name: "level", Type: TypeString, Default: "A1", Enum: germanLevels, Description: "Learner level"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			return german.Assess(args.String("sentence"), args.String("level")), nil
		}),

		Pure(Descriptor{
			Name: "generate_tasks",
			Description: "Build German exercises from a sentence.\n" +
				"Types are correction, fill_blank, multiple_choice, translation and roleplay.",
			Params: []Parameter{
				{Name: "sentence", Type: TypeString, Required: true, Description: "German sentence"},
				{Name: "level", Type: TypeString, Default: "A1", Enum: germanLevels, Description: "Learner level"},
				{Name: "count", Type: TypeInteger, Default: 3, Description: "Maximum number of tasks"},
				{Name: "types", Type: TypeArray, Description: "Task types in order (default correction, fill_blank, translation)"},
				{Name: "seed", Type: TypeInteger, Description: "Seed for repeatable word choice"},
			},
		}, func(_ context.Context, args Args) (any, error) {
			sentence := strings.TrimSpace(args.String("sentence"))
			if sentence == "" {
				return nil, invalidArg("sentence", "must not be empty")
			}
			n := args.Int("count")
			if n < 1 {
				return nil, invalidArg("count", "must be at least 1")
			}
			types := args.Strings("types")
			if len(types) != len(args.Array("types")) {
				return nil, invalidArg("types", "every element must be a string")
			}
			var rnd *rand.Rand
			if args.Has("seed") {
				seed := uint64(args.Int("seed"))
				rnd = rand.New(rand.NewPCG(seed, seed))
			}
			tasks, err := german.GenerateTasks(sentence, args.String("level"), int(n), types, rnd)
			if err != nil {
				return nil, invalidArg("types", "%v", err)
			}
			return tasks, nil
		}),
	}
}
