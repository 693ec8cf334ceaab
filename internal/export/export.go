// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/streaks"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

// =============================================================================
// BUNDLE
// =============================================================================

// Bundle is a point-in-time copy of every document.
type Bundle struct {
	ExportedAt time.Time            `json:"exported_at"`
	Notes      []model.Note         `json:"notes"`
	Todos      []model.TodoItem     `json:"todos"`
	Reminders  []model.ReminderItem `json:"reminders"`
	Cards      []model.Card         `json:"cards"`
	Study      streaks.Info         `json:"study"`
}

// Load reads all documents from docs. A corrupt document fails the export.
func Load(docs *docstore.Store, now time.Time, loc *time.Location) (*Bundle, error) {
	notes, err := docstore.Read[model.NoteBook](docs, model.DocNotes)
	if err != nil {
		return nil, err
	}
	todos, err := docstore.Read[model.TodoList](docs, model.DocTodos)
	if err != nil {
		return nil, err
	}
	reminders, err := docstore.Read[model.ReminderList](docs, model.DocReminders)
	if err != nil {
		return nil, err
	}
	deck, err := docstore.Read[model.CardDeck](docs, model.DocCards)
	if err != nil {
		return nil, err
	}
	activity, err := docstore.Read[model.StudyActivity](docs, model.DocStudyActivity)
	if err != nil {
		return nil, err
	}
	// badges are only evaluated on the copy; the export never writes
	info, _ := streaks.Evaluate(&activity, now, loc)
	info.NewlyEarned = nil

	return &Bundle{
		ExportedAt: now,
		Notes:      notes.Notes,
		Todos:      todos.Items,
		Reminders:  reminders.Items,
		Cards:      deck.Cards,
		Study:      info,
	}, nil
}

// Empty reports whether the bundle holds no items.
func (b *Bundle) Empty() bool {
	return len(b.Notes)+len(b.Todos)+len(b.Reminders)+len(b.Cards) == 0
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a bundle in one format.
type Exporter interface {
	// Export converts the bundle to the target format and returns the content.
	Export(b *Bundle) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"markdown", "json", "html"}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeDone keeps completed todos and dismissed reminders.
	IncludeDone bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Title heads the document.
	Title string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir: ".",
		Theme:     "dark",
		Title:     "rigrun-tools export",
	}
}

func (o *Options) fill() *Options {
	if o == nil {
		return DefaultOptions()
	}
	out := *o
	def := DefaultOptions()
	if out.OutputDir == "" {
		out.OutputDir = def.OutputDir
	}
	if out.Theme != "light" {
		out.Theme = def.Theme
	}
	if out.Title == "" {
		out.Title = def.Title
	}
	return &out
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders b and writes it atomically under opts.OutputDir with
// owner-only permissions. It returns the output file path.
func ExportToFile(b *Bundle, exporter Exporter, opts *Options) (string, error) {
	opts = opts.fill()

	content, err := exporter.Export(b)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s",
		sanitizeFilename(opts.Title),
		b.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	if err := os.MkdirAll(opts.OutputDir, 0700); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// visibleTodos drops completed todos unless opts keeps them.
func visibleTodos(items []model.TodoItem, opts *Options) []model.TodoItem {
	if opts.IncludeDone {
		return items
	}
	out := make([]model.TodoItem, 0, len(items))
	for _, it := range items {
		if !it.Completed {
			out = append(out, it)
		}
	}
	return out
}

// visibleReminders drops dismissed reminders unless opts keeps them.
func visibleReminders(items []model.ReminderItem, opts *Options) []model.ReminderItem {
	if opts.IncludeDone {
		return items
	}
	out := make([]model.ReminderItem, 0, len(items))
	for _, it := range items {
		if !it.Dismissed {
			out = append(out, it)
		}
	}
	return out
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "export"
	}
	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// checkStamp marks done items.
func checkStamp(done bool) string {
	if done {
		return "x"
	}
	return " "
}
