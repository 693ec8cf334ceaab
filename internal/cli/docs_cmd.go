// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/export"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

// knownDocuments are listed even before their first write.
var knownDocuments = []string{
	model.DocNotes,
	model.DocTodos,
	model.DocReminders,
	model.DocStudyActivity,
	model.DocCards,
}

// docStatus describes one document file.
type docStatus struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Exists        bool      `json:"exists"`
	Status        string    `json:"status"`
	SchemaVersion int       `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	Size          int64     `json:"size"`
	Error         string    `json:"error,omitempty"`
}

func newDocsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect stored documents",
		Long: `Inspect the JSON documents in the data directory.

A corrupt document makes every tool that owns it fail with CorruptDocument
until it is repaired by hand or moved aside with "docs quarantine".`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List documents and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := documentStatuses(app.Docs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("docs list", rows))
			}
			fmt.Fprintln(out, TitleStyle.Render("Documents")+" "+DimStyle.Render(app.Docs.Dir()))
			fmt.Fprintln(out, RenderSeparator())
			for _, r := range rows {
				updated := "-"
				if !r.UpdatedAt.IsZero() {
					updated = r.UpdatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%s %s v%d %8d B  %s\n",
					util.PadRight(r.Name, 16), renderDocStatus(r.Status),
					r.SchemaVersion, r.Size, DimStyle.Render(updated))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a document's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			snap, err := app.Docs.ReadRaw(args[0])
			if err != nil {
				return err
			}
			if !snap.Exists {
				return fmt.Errorf("%w: %s", docstore.ErrNotFound, args[0])
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("docs show", map[string]any{
					"name":           snap.Name,
					"schema_version": snap.SchemaVersion,
					"updated_at":     snap.UpdatedAt,
					"data":           snap.Data,
				}))
			}
			return writeIndented(out, snap.Data)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quarantine <name>",
		Short: "Move a document aside so it starts fresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			dest, err := app.Docs.Quarantine(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("docs quarantine", map[string]string{
					"name": args[0], "moved_to": dest,
				}))
			}
			fmt.Fprintf(out, "%s %s moved to %s\n", SuccessStyle.Render("[OK]"), args[0], dest)
			return nil
		},
	})
	cmd.AddCommand(newDocsExportCmd(opts))
	return cmd
}

func newDocsExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format      string
		outputDir   string
		title       string
		includeDone bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every document to one file",
		Long: `Export notes, todos, reminders, flashcards and study progress to a
single Markdown, JSON or HTML file. Completed todos and dismissed reminders
are left out of Markdown and HTML unless --include-done is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			exportOpts := &export.Options{
				OutputDir:   outputDir,
				IncludeDone: includeDone,
				Title:       title,
			}
			if app.Config.UI.Theme == "light" {
				exportOpts.Theme = "light"
			}
			exporter, err := export.ForFormat(format, exportOpts)
			if err != nil {
				return newUsageError("format", format, err.Error(), "rigrun-tools docs export --format html")
			}

			bundle, err := export.Load(app.Docs, time.Now(), app.Location)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(bundle, exporter, exportOpts)
			if err != nil {
				return err
			}
			log.Printf("DOCS_EXPORT | format=%s path=%s", format, path)

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("docs export", map[string]any{
					"path":      path,
					"format":    format,
					"mime_type": exporter.MimeType(),
				}))
			}
			fmt.Fprintf(out, "%s exported to %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json or html")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to write the file into")
	cmd.Flags().StringVar(&title, "title", "", "document title (default \"rigrun-tools export\")")
	cmd.Flags().BoolVar(&includeDone, "include-done", false, "keep completed todos and dismissed reminders")
	return cmd
}

// documentStatuses reports the known documents plus any others on disk.
func documentStatuses(docs *docstore.Store) ([]docStatus, error) {
	names, err := docs.Names()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(knownDocuments))
	all := append([]string(nil), knownDocuments...)
	for _, n := range knownDocuments {
		seen[n] = true
	}
	for _, n := range names {
		if !seen[n] {
			all = append(all, n)
		}
	}

	rows := make([]docStatus, 0, len(all))
	for _, name := range all {
		row := docStatus{Name: name, Path: docs.Path(name), Status: "missing"}
		if info, err := os.Stat(row.Path); err == nil {
			row.Exists = true
			row.Size = info.Size()
		}
		snap, err := docs.ReadRaw(name)
		switch {
		case errors.Is(err, docstore.ErrCorrupt):
			row.Status = "corrupt"
			row.Error = err.Error()
		case err != nil:
			row.Status = "error"
			row.Error = err.Error()
		case snap.Exists && snap.SchemaVersion == 0:
			row.Status = "legacy"
		case snap.Exists:
			row.Status = "ok"
			row.SchemaVersion = snap.SchemaVersion
			row.UpdatedAt = snap.UpdatedAt
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func renderDocStatus(status string) string {
	cell := util.PadRight(status, 10)
	switch status {
	case "ok":
		return SuccessStyle.Render(cell)
	case "corrupt", "error":
		return ErrorStyle.Render(cell)
	case "legacy":
		return WarningStyle.Render(cell)
	default:
		return DimStyle.Render(cell)
	}
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
