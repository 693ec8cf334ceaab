// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-tools/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports documents to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: opts.fill()}
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Exported  string `yaml:"exported"`
	Notes     int    `yaml:"notes"`
	Todos     int    `yaml:"todos"`
	Reminders int    `yaml:"reminders"`
	Cards     int    `yaml:"cards"`
	Streak    int    `yaml:"streak"`
	Generator string `yaml:"generator"`
}

// Export converts a bundle to Markdown format.
func (e *MarkdownExporter) Export(b *Bundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	todos := visibleTodos(b.Todos, e.options)
	reminders := visibleReminders(b.Reminders, e.options)

	fm, err := yaml.Marshal(frontMatter{
		Title:     e.options.Title,
		Exported:  b.ExportedAt.Format(time.RFC3339),
		Notes:     len(b.Notes),
		Todos:     len(todos),
		Reminders: len(reminders),
		Cards:     len(b.Cards),
		Streak:    b.Study.Streak,
		Generator: "rigrun-tools",
	})
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(e.options.Title))

	sb.WriteString("## Notes\n\n")
	if len(b.Notes) == 0 {
		sb.WriteString("_No notes._\n\n")
	}
	for _, n := range b.Notes {
		fmt.Fprintf(&sb, "- %s", util.OneLine(n.Text))
		if len(n.Tags) > 0 {
			fmt.Fprintf(&sb, " `%s`", strings.Join(n.Tags, "` `"))
		}
		fmt.Fprintf(&sb, " _(%s)_\n", formatTimestamp(n.CreatedAt))
	}
	if len(b.Notes) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("## Todos\n\n")
	if len(todos) == 0 {
		sb.WriteString("_No todos._\n\n")
	}
	for _, t := range todos {
		fmt.Fprintf(&sb, "- [%s] %s", checkStamp(t.Completed), util.OneLine(t.Text))
		if t.DueAt != "" {
			fmt.Fprintf(&sb, " (due %s)", t.DueAt)
		}
		sb.WriteString("\n")
	}
	if len(todos) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("## Reminders\n\n")
	if len(reminders) == 0 {
		sb.WriteString("_No reminders._\n\n")
	}
	for _, r := range reminders {
		fmt.Fprintf(&sb, "- [%s] **%s** %s\n", checkStamp(r.Dismissed), r.DueAt, util.OneLine(r.Text))
	}
	if len(reminders) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("## Flashcards\n\n")
	if len(b.Cards) == 0 {
		sb.WriteString("_No cards._\n\n")
	} else {
		sb.WriteString("| Front | Back | Next review | Interval |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, c := range b.Cards {
			fmt.Fprintf(&sb, "| %s | %s | %s | %dd |\n",
				escapeCell(c.Front), escapeCell(c.Back), formatTimestamp(c.NextReview), c.Interval)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Study\n\n")
	fmt.Fprintf(&sb, "- **Streak**: %d days\n", b.Study.Streak)
	fmt.Fprintf(&sb, "- **Days active**: %d\n", b.Study.TotalDaysActive)
	fmt.Fprintf(&sb, "- **Assessments**: %d\n", b.Study.TotalAssessments)
	if len(b.Study.Badges) > 0 {
		fmt.Fprintf(&sb, "- **Badges**: %s\n", strings.Join(b.Study.Badges, ", "))
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", "\\#", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]")
	return r.Replace(s)
}

// escapeCell makes s safe inside a table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(util.OneLine(s), "|", "\\|")
}
