// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/model"
)

var exportTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func seededStore(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(t.TempDir(), docstore.Options{})
	require.NoError(t, err)

	var notes model.NoteBook
	notes.Add("Buy <milk> & eggs", []string{"shopping"}, exportTime)
	require.NoError(t, s.Write(model.DocNotes, notes))

	var todos model.TodoList
	todos.Add("write report", "2025-03-15T17:00:00Z", exportTime)
	done := todos.Add("file taxes", "", exportTime)
	_, err = todos.Complete(done.ID, exportTime)
	require.NoError(t, err)
	require.NoError(t, s.Write(model.DocTodos, todos))

	var reminders model.ReminderList
	reminders.Add("call mom", "2025-03-14T18:00:00Z", exportTime)
	require.NoError(t, s.Write(model.DocReminders, reminders))

	deck := model.CardDeck{Cards: []model.Card{{
		ID: "c1", Front: "der Hund", Back: "the dog | animal", Interval: 6,
		EFactor: 2.5, NextReview: exportTime.Add(24 * time.Hour), CreatedAt: exportTime,
	}}}
	require.NoError(t, s.Write(model.DocCards, deck))
	return s
}

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load(seededStore(t), exportTime, time.UTC)
	require.NoError(t, err)
	return b
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_ReadsAllDocuments(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, exportTime, b.ExportedAt)
	assert.Len(t, b.Notes, 1)
	assert.Len(t, b.Todos, 2)
	assert.Len(t, b.Reminders, 1)
	assert.Len(t, b.Cards, 1)
	assert.Zero(t, b.Study.Streak)
	assert.Empty(t, b.Study.NewlyEarned)
	assert.False(t, b.Empty())
}

func TestLoad_EmptyStore(t *testing.T) {
	s, err := docstore.Open(t.TempDir(), docstore.Options{})
	require.NoError(t, err)
	b, err := Load(s, exportTime, time.UTC)
	require.NoError(t, err)
	assert.True(t, b.Empty())
}

func TestLoad_CorruptDocumentFails(t *testing.T) {
	s, err := docstore.Open(t.TempDir(), docstore.Options{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(model.DocTodos), []byte("{not json"), 0600))

	_, err = Load(s, exportTime, time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrCorrupt)
}

// =============================================================================
// FORMATS
// =============================================================================

func TestMarkdownExporter_Sections(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{Title: "Weekly"}).Export(loadBundle(t))
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Weekly\n"))
	for _, heading := range []string{"# Weekly", "## Notes", "## Todos", "## Reminders", "## Flashcards", "## Study"} {
		assert.Contains(t, md, heading)
	}
	assert.Contains(t, md, "- [ ] write report (due 2025-03-15T17:00:00Z)")
	assert.NotContains(t, md, "file taxes")
	assert.Contains(t, md, "`shopping`")
	assert.Contains(t, md, `the dog \| animal`)
	assert.Contains(t, md, "| 6d |")
}

func TestMarkdownExporter_IncludeDone(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{IncludeDone: true}).Export(loadBundle(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), "- [x] file taxes")
	assert.Contains(t, string(out), "todos: 2")
}

func TestMarkdownExporter_EmptyBundle(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(&Bundle{ExportedAt: exportTime})
	require.NoError(t, err)
	assert.Contains(t, string(out), "_No notes._")
	assert.Contains(t, string(out), "_No cards._")
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	b := loadBundle(t)
	out, err := NewJSONExporter(nil).Export(b)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "}\n"))

	var back Bundle
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Len(t, back.Todos, 2, "json keeps completed items")
	assert.Equal(t, b.Cards[0].Front, back.Cards[0].Front)
	assert.True(t, b.ExportedAt.Equal(back.ExportedAt))
}

func TestHTMLExporter_EscapesAndThemes(t *testing.T) {
	b := loadBundle(t)

	out, err := NewHTMLExporter(&Options{Theme: "light", Title: "<script>"}).Export(b)
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, `<body class="light-theme">`)
	assert.Contains(t, page, "Buy &lt;milk&gt; &amp; eggs")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "<title>&lt;script&gt;</title>")

	out, err = NewHTMLExporter(&Options{Theme: "neon"}).Export(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<body class="dark-theme">`)
}

func TestExporters_NilBundle(t *testing.T) {
	for _, format := range Formats {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = exp.Export(nil)
		assert.Error(t, err, format)
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		mime   string
	}{
		{"markdown", ".md", "text/markdown"},
		{"MD", ".md", "text/markdown"},
		{"json", ".json", "application/json"},
		{"html", ".html", "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := ForFormat(tt.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.FileExtension())
			assert.Equal(t, tt.mime, exp.MimeType())
		})
	}

	_, err := ForFormat("pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markdown, json, html")
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	opts := &Options{OutputDir: dir, Title: "My: Export"}

	path, err := ExportToFile(loadBundle(t), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My-_Export_20250314_093000.md"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Todos")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a/b\\c", "a-b-c"},
		{"two words", "two_words"},
		{"ctl\x01x", "ctl-x"},
		{"", "export"},
		{strings.Repeat("é", 60), strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "-", formatTimestamp(time.Time{}))
	assert.Equal(t, "2025-03-14 09:30", formatTimestamp(exportTime))
}
