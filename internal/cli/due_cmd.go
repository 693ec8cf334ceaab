// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/schedule"
	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// dueRefresh re-renders a watched due list so items become due on time.
const dueRefresh = time.Minute

// dueReport is everything due at one reference time.
type dueReport struct {
	At        time.Time            `json:"at"`
	Reminders []model.ReminderItem `json:"reminders"`
	Todos     []model.TodoItem     `json:"todos"`
	Cards     []model.Card         `json:"cards"`
}

// Empty reports whether nothing is due.
func (r dueReport) Empty() bool {
	return len(r.Reminders) == 0 && len(r.Todos) == 0 && len(r.Cards) == 0
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	var (
		at    string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show due reminders, todos and flashcards",
		Long: `Show reminders, todos and flashcards that are due, earliest first.
With --watch the list is redrawn whenever a document changes and once a
minute until interrupted.`,
		Example: `  rigrun-tools due
  rigrun-tools due --at "2025-03-01 09:30"
  rigrun-tools due --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			p := newPrinter(cmd.OutOrStdout(), opts, app)
			if !watch {
				report, err := collectDue(cmdContext(cmd), app, at)
				if err != nil {
					return err
				}
				return writeDue(p, report)
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchDue(ctx, app, p, at, dueRefresh)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference time (RFC 3339 or YYYY-MM-DD HH:MM); defaults to now")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "redraw when documents change")
	return cmd
}

// collectDue runs the three due tools at the same reference time.
func collectDue(ctx context.Context, app *App, at string) (dueReport, error) {
	ref := time.Now().In(app.Location)
	if at != "" {
		t, err := schedule.ParseDue(at, app.Location)
		if err != nil {
			return dueReport{}, &tools.Error{Kind: tools.KindInvalidArguments, Field: "at", Message: err.Error()}
		}
		ref = t
	}
	args := map[string]any{"at": ref.Format(time.RFC3339)}

	report := dueReport{At: ref}
	var err error
	if report.Reminders, err = invokeAs[[]model.ReminderItem](ctx, app, "due_reminders", args); err != nil {
		return dueReport{}, err
	}
	if report.Todos, err = invokeAs[[]model.TodoItem](ctx, app, "due_todos", args); err != nil {
		return dueReport{}, err
	}
	if report.Cards, err = invokeAs[[]model.Card](ctx, app, "due_cards", args); err != nil {
		return dueReport{}, err
	}
	return report, nil
}

// invokeAs runs a tool and asserts the type of its value.
func invokeAs[T any](ctx context.Context, app *App, name string, args map[string]any) (T, error) {
	var zero T
	res, err := app.Invoke(ctx, name, args)
	if err != nil {
		return zero, err
	}
	v, ok := res.Value.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T", name, res.Value)
	}
	return v, nil
}

// watchDue redraws the due list on document changes and every refresh.
func watchDue(ctx context.Context, app *App, p printer, at string, refresh time.Duration) error {
	changes, err := app.Docs.Watch(ctx, model.DocReminders, model.DocTodos, model.DocCards)
	if err != nil {
		return fmt.Errorf("watch documents: %w", err)
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	draw := func(reason string) error {
		report, err := collectDue(ctx, app, at)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Printf("DUE_REFRESH | reason=%s reminders=%d todos=%d cards=%d",
			reason, len(report.Reminders), len(report.Todos), len(report.Cards))
		return writeDue(p, report)
	}

	if err := draw("start"); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if err := draw("change:" + change.Name); err != nil {
				return err
			}
		case <-ticker.C:
			if err := draw("tick"); err != nil {
				return err
			}
		}
	}
}

func writeDue(p printer, r dueReport) error {
	if p.json {
		return writeJSON(p.w, NewJSONResponse("due", r))
	}
	return p.document(dueMarkdown(r))
}

// dueMarkdown renders a report as a markdown document.
func dueMarkdown(r dueReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Due at %s\n\n", r.At.Format("2006-01-02 15:04 MST"))
	if r.Empty() {
		b.WriteString("Nothing is due.\n")
		return b.String()
	}
	if len(r.Reminders) > 0 {
		fmt.Fprintf(&b, "## Reminders (%d)\n\n", len(r.Reminders))
		for _, it := range r.Reminders {
			fmt.Fprintf(&b, "- **%s** %s `%s`\n", it.DueAt, it.Text, it.ID)
		}
		b.WriteString("\n")
	}
	if len(r.Todos) > 0 {
		fmt.Fprintf(&b, "## Todos (%d)\n\n", len(r.Todos))
		for _, it := range r.Todos {
			fmt.Fprintf(&b, "- **%s** %s `%s`\n", it.DueAt, it.Text, it.ID)
		}
		b.WriteString("\n")
	}
	if len(r.Cards) > 0 {
		fmt.Fprintf(&b, "## Cards (%d)\n\n", len(r.Cards))
		for _, c := range r.Cards {
			fmt.Fprintf(&b, "- %s `%s`\n", c.Front, c.ID)
		}
	}
	return b.String()
}
