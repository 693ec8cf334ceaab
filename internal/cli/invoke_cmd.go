// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

func newInvokeCmd(opts *rootOptions) *cobra.Command {
	var pairs []string

	cmd := &cobra.Command{
		Use:   "invoke <tool> [json-args|-]",
		Short: "Run one tool",
		Long: `Run one tool by name. Arguments are a JSON object, "-" to read the object
from stdin, or repeated --arg key=value pairs. Values of string parameters are
taken as written; other values that parse as JSON (numbers, booleans,
arrays) are decoded.`,
		Example: `  rigrun-tools invoke calculate '{"expression": "(15 + 10) * 2"}'
  rigrun-tools invoke add_todo --arg text="file taxes" --arg due_at="2025-04-15 09:00"
  echo '{"city": "Paris"}' | rigrun-tools invoke get_weather -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 2 {
				raw = args[1]
			}
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			name := strings.TrimSpace(args[0])
			toolArgs, err := parseToolArgs(raw, cmd.InOrStdin(), pairs, stringParams(app.Dispatcher.Registry(), name))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
			defer stop()

			res, err := app.Invoke(ctx, name, toolArgs)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts, app).result("invoke", res)
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "argument as key=value (repeatable)")
	return cmd
}

func newCalcCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calc <expression>",
		Short: "Evaluate an arithmetic expression",
		Long: `Evaluate an arithmetic expression with + - * / // % ** and parentheses.
Numbers are integers or decimals; nothing else is accepted.`,
		Example: `  rigrun-tools calc "(15 + 10) * 2"
  rigrun-tools calc 2 ** 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Invoke(cmdContext(cmd), "calculate", map[string]any{
				"expression": strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts, app).result("calc", res)
		},
	}
}

// cmdContext returns the command context, or Background before Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
