// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/audit"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		tool    string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool invocations",
		Long: `Show recent tool invocations from the history database, newest first,
or one summary row per tool with --summary. Arguments are never stored;
each entry carries the argument fingerprint instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > 10000 {
				return newUsageError("--limit", strconv.Itoa(limit), "must be between 1 and 10000", "--limit 50")
			}

			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.History == nil {
				return fmt.Errorf("history is disabled (history.enabled = false or the database could not be opened)")
			}

			out := cmd.OutOrStdout()
			ctx := cmdContext(cmd)
			if summary {
				rows, err := app.History.Summary(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(out, NewJSONResponse("history", rows))
				}
				writeSummaryTable(out, rows)
				return nil
			}

			entries, err := app.History.Recent(ctx, limit, tool)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(out, NewJSONResponse("history", entries))
			}
			writeHistoryTable(out, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVar(&tool, "tool", "", "only show this tool")
	cmd.Flags().BoolVar(&summary, "summary", false, "one row per tool")
	return cmd
}

func writeHistoryTable(w io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No invocations recorded."))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Recent invocations (%d)", len(entries))))
	fmt.Fprintln(w, RenderSeparator())
	for _, e := range entries {
		cached := ""
		if e.Cached {
			cached = DimStyle.Render(" cached")
		}
		fmt.Fprintf(w, "%s %s %s %s%s\n",
			DimStyle.Render(e.At.Local().Format("2006-01-02 15:04:05")),
			util.PadRight(util.TruncateWidth(e.Tool, 18), 18),
			RenderStatus(e.Outcome),
			e.Duration.Round(time.Microsecond),
			cached,
		)
	}
}

func writeSummaryTable(w io.Writer, rows []audit.ToolSummary) {
	if len(rows) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No invocations recorded."))
		return
	}
	fmt.Fprintf(w, "%s %6s %6s %6s %12s  %s\n",
		util.PadRight("TOOL", 18), "CALLS", "ERRORS", "CACHED", "AVG", "LAST")
	for _, r := range rows {
		fmt.Fprintf(w, "%s %6d %6d %6d %12s  %s\n",
			util.PadRight(util.TruncateWidth(r.Tool, 18), 18),
			r.Calls, r.Errors, r.CacheHits,
			r.AvgTime.Round(time.Microsecond),
			r.LastAt.Local().Format("2006-01-02 15:04"),
		)
	}
}
