// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports documents to a standalone page with embedded CSS.
// Every user string is escaped.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: opts.fill()}
}

// Export converts a bundle to HTML format.
func (e *HTMLExporter) Export(b *Bundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	esc := html.EscapeString
	todos := visibleTodos(b.Todos, e.options)
	reminders := visibleReminders(b.Reminders, e.options)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", esc(e.options.Title))
	sb.WriteString("    <meta name=\"generator\" content=\"rigrun-tools\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", b.ExportedAt.Format(time.RFC3339))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.options.Theme)
	sb.WriteString("    <div class=\"container\">\n")
	fmt.Fprintf(&sb, "        <h1>%s</h1>\n", esc(e.options.Title))

	sb.WriteString("        <section>\n            <h2>Notes</h2>\n")
	if len(b.Notes) == 0 {
		sb.WriteString("            <p class=\"empty\">No notes.</p>\n")
	} else {
		sb.WriteString("            <ul>\n")
		for _, n := range b.Notes {
			fmt.Fprintf(&sb, "                <li>%s", esc(n.Text))
			for _, t := range n.Tags {
				fmt.Fprintf(&sb, " <span class=\"tag\">%s</span>", esc(t))
			}
			fmt.Fprintf(&sb, " <time>%s</time></li>\n", formatTimestamp(n.CreatedAt))
		}
		sb.WriteString("            </ul>\n")
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <section>\n            <h2>Todos</h2>\n")
	if len(todos) == 0 {
		sb.WriteString("            <p class=\"empty\">No todos.</p>\n")
	} else {
		sb.WriteString("            <ul class=\"checklist\">\n")
		for _, t := range todos {
			fmt.Fprintf(&sb, "                <li class=\"%s\">%s", doneClass(t.Completed), esc(t.Text))
			if t.DueAt != "" {
				fmt.Fprintf(&sb, " <time>%s</time>", esc(t.DueAt))
			}
			sb.WriteString("</li>\n")
		}
		sb.WriteString("            </ul>\n")
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <section>\n            <h2>Reminders</h2>\n")
	if len(reminders) == 0 {
		sb.WriteString("            <p class=\"empty\">No reminders.</p>\n")
	} else {
		sb.WriteString("            <ul class=\"checklist\">\n")
		for _, r := range reminders {
			fmt.Fprintf(&sb, "                <li class=\"%s\"><time>%s</time> %s</li>\n",
				doneClass(r.Dismissed), esc(r.DueAt), esc(r.Text))
		}
		sb.WriteString("            </ul>\n")
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <section>\n            <h2>Flashcards</h2>\n")
	if len(b.Cards) == 0 {
		sb.WriteString("            <p class=\"empty\">No cards.</p>\n")
	} else {
		sb.WriteString("            <table>\n")
		sb.WriteString("                <tr><th>Front</th><th>Back</th><th>Next review</th><th>Interval</th></tr>\n")
		for _, c := range b.Cards {
			fmt.Fprintf(&sb, "                <tr><td>%s</td><td>%s</td><td>%s</td><td>%dd</td></tr>\n",
				esc(c.Front), esc(c.Back), formatTimestamp(c.NextReview), c.Interval)
		}
		sb.WriteString("            </table>\n")
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <section>\n            <h2>Study</h2>\n")
	fmt.Fprintf(&sb, "            <p>Streak <strong>%d</strong> days, %d days active, %d assessments.</p>\n",
		b.Study.Streak, b.Study.TotalDaysActive, b.Study.TotalAssessments)
	for _, badge := range b.Study.Badges {
		fmt.Fprintf(&sb, "            <span class=\"badge\">%s</span>\n", esc(badge))
	}
	sb.WriteString("        </section>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>rigrun-tools</strong> on %s</p>\n",
		b.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func doneClass(done bool) string {
	if done {
		return "done"
	}
	return "open"
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

// getCSS returns the embedded CSS for the HTML export.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
        }

        /* Dark theme (default) */
        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
        }

        /* Light theme */
        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f5f5f5;
            --text-primary: #1a1b26;
            --text-muted: #6b7280;
            --border-color: #e5e7eb;
            --accent-blue: #2563eb;
            --accent-green: #16a34a;
        }

        body {
            font-family: var(--font-sans);
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
        }

        .container { max-width: 880px; margin: 0 auto; padding: 2rem 1rem; }
        h1 { margin-bottom: 1.5rem; color: var(--accent-blue); }
        h2 { margin: 1.5rem 0 0.5rem; border-bottom: 1px solid var(--border-color); }
        ul { list-style: none; }
        li { padding: 0.25rem 0; }
        .checklist li.open::before { content: "\2610  "; }
        .checklist li.done::before { content: "\2611  "; color: var(--accent-green); }
        .checklist li.done { text-decoration: line-through; color: var(--text-muted); }
        time { color: var(--text-muted); font-size: 0.9em; }
        .tag, .badge {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 4px;
            padding: 0 0.4rem;
            font-size: 0.85em;
        }
        .empty { color: var(--text-muted); font-style: italic; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid var(--border-color); padding: 0.3rem 0.5rem; text-align: left; }
        th { background: var(--bg-secondary); }
        .footer { margin-top: 2rem; color: var(--text-muted); font-size: 0.85em; }
    </style>
`
}
