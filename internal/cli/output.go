// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Text, JSON and markdown output shared by all commands.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// =============================================================================
// JSON RESPONSES
// =============================================================================

// JSONResponse is the envelope written by every command in --json mode.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// resultPayload is the --json data of a tool invocation.
type resultPayload struct {
	Tool       string `json:"tool"`
	Value      any    `json:"value"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
}

func newResultPayload(res tools.Result) resultPayload {
	return resultPayload{
		Tool:       res.Tool,
		Value:      res.Value,
		Cached:     res.Cached,
		DurationMs: res.Duration.Milliseconds(),
	}
}

// =============================================================================
// VALUE FORMATTING
// =============================================================================

// formatValue renders a tool value for humans. Values with a String method
// use it; everything else is pretty JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// renderMarkdown renders md for a terminal. The input is returned unchanged
// when the renderer cannot be built.
func renderMarkdown(md, theme string, width int) string {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle(theme)),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// printer writes command output in the mode chosen by the global flags.
type printer struct {
	w        io.Writer
	json     bool
	markdown bool
	theme    string
}

func newPrinter(w io.Writer, opts *rootOptions, app *App) printer {
	p := printer{w: w, json: opts.json}
	if app != nil {
		p.markdown = app.Config.UI.Markdown && isTerminalWriter(w)
		p.theme = app.Config.UI.Theme
	}
	return p
}

// document writes md rendered on terminals and verbatim elsewhere.
func (p printer) document(md string) error {
	if p.markdown {
		md = renderMarkdown(md, p.theme, GetTerminalWidth())
	}
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	_, err := io.WriteString(p.w, md)
	return err
}

// result writes one tool result.
func (p printer) result(command string, res tools.Result) error {
	if p.json {
		return writeJSON(p.w, NewJSONResponse(command, newResultPayload(res)))
	}
	if wiki, ok := res.Value.(tools.WikiSummary); ok && p.markdown {
		return p.document(wikiMarkdown(wiki))
	}
	_, err := fmt.Fprintln(p.w, formatValue(res.Value))
	return err
}

func wikiMarkdown(w tools.WikiSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", w.Title)
	if w.Description != "" {
		fmt.Fprintf(&b, "_%s_\n\n", w.Description)
	}
	b.WriteString(w.Extract)
	b.WriteString("\n")
	if w.URL != "" {
		fmt.Fprintf(&b, "\n%s\n", w.URL)
	}
	return b.String()
}
