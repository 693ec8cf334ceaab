// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive tool console for rigrun-tools.
//
// Lines are tool calls ("add_note {\"text\": \"hi\"}"), calculator
// shortcuts ("= 2 ** 10") or console commands (due, tools, cache, history,
// help, quit). Input history persists in the config directory.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/config"
)

const chatHelp = `Commands:
  <tool> {json}      Run a tool with a JSON object of arguments
  <tool> k=v ...     Run a tool with key=value arguments (no spaces in values)
  = <expression>     Evaluate an expression
  due                Show due reminders, todos and cards
  tools              List tools
  cache [clear]      Show cache statistics, or clear the cache
  history [n]        Show the last n invocations
  help               Show this help
  quit, exit         Leave the console`

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput reads one line, adding non-empty input to history.
func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CONSOLE
// =============================================================================

// console executes console lines against an App.
type console struct {
	app *App
	out printer
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive tool console",
		Long:  "Start an interactive console with line editing and history.\n\n" + chatHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			c := &console{app: app, out: newPrinter(cmd.OutOrStdout(), opts, app)}
			return c.run(cmdContext(cmd), newLineReader(), cmd.ErrOrStderr())
		},
	}
}

func (c *console) run(ctx context.Context, in *lineReader, errOut io.Writer) error {
	defer in.Close()

	fmt.Fprintln(c.out.w, TitleStyle.Render("rigrun-tools")+" "+DimStyle.Render(
		fmt.Sprintf("%d tools. Type help for commands, quit to leave.", c.app.Dispatcher.Registry().Len())))

	for {
		input, err := in.ReadInput("tools> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out.w)
				return nil
			}
			return err
		}
		err = c.handleLine(ctx, input)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			DisplayError(errOut, err, false)
		}
	}
}

// handleLine executes one console line. It returns errQuit to leave.
func (c *console) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if expr, ok := strings.CutPrefix(line, "="); ok {
		if strings.TrimSpace(expr) == "" {
			return newUsageError("expression", "", "nothing to evaluate", "= (15 + 10) * 2")
		}
		return c.invoke(ctx, "calculate", map[string]any{"expression": strings.TrimSpace(expr)})
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "quit", "exit", ":q":
		return errQuit
	case "help", "?":
		_, err := fmt.Fprintln(c.out.w, chatHelp)
		return err
	case "tools":
		return writeDescriptors(c.out.w, "text", c.app.Dispatcher.Registry().Descriptors(), false)
	case "due":
		report, err := collectDue(ctx, c.app, rest)
		if err != nil {
			return err
		}
		return writeDue(c.out, report)
	case "cache":
		return c.cacheCommand(rest)
	case "history":
		return c.historyCommand(ctx, rest)
	}

	args, err := consoleArgs(rest, stringParams(c.app.Dispatcher.Registry(), name))
	if err != nil {
		return err
	}
	return c.invoke(ctx, name, args)
}

// consoleArgs accepts a JSON object or whitespace-separated key=value pairs.
func consoleArgs(rest string, strs map[string]bool) (map[string]any, error) {
	if rest == "" || strings.HasPrefix(rest, "{") {
		return parseToolArgs(rest, nil, nil, strs)
	}
	return parseToolArgs("", nil, strings.Fields(rest), strs)
}

func (c *console) invoke(ctx context.Context, name string, args map[string]any) error {
	res, err := c.app.Invoke(ctx, name, args)
	if err != nil {
		return err
	}
	if err := c.out.result("chat", res); err != nil {
		return err
	}
	if res.Cached && !c.out.json {
		fmt.Fprintln(c.out.w, DimStyle.Render("(cached)"))
	}
	return nil
}

func (c *console) cacheCommand(rest string) error {
	switch rest {
	case "", "stats":
		st := c.app.Cache.Stats()
		if c.out.json {
			return writeJSON(c.out.w, NewJSONResponse("cache", st))
		}
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Entries:"), st.Entries)
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Hits:"), st.Hits)
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Misses:"), st.Misses)
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Computes:"), st.Computes)
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Evictions:"), st.Evictions)
		fmt.Fprintf(c.out.w, "%s%d\n", RenderLabel("Expirations:"), st.Expirations)
		return nil
	case "clear":
		n := c.app.Cache.Purge()
		fmt.Fprintf(c.out.w, "%s removed %d cached results\n", SuccessStyle.Render("[OK]"), n)
		return nil
	default:
		return newUsageError("cache", rest, "expected stats or clear", "cache clear")
	}
}

func (c *console) historyCommand(ctx context.Context, rest string) error {
	limit := 10
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return newUsageError("history", rest, "expected a positive count", "history 20")
		}
		limit = n
	}
	if c.app.History == nil {
		fmt.Fprintln(c.out.w, DimStyle.Render("History is disabled."))
		return nil
	}
	entries, err := c.app.History.Recent(ctx, limit, "")
	if err != nil {
		return err
	}
	if c.out.json {
		return writeJSON(c.out.w, NewJSONResponse("history", entries))
	}
	writeHistoryTable(c.out.w, entries)
	return nil
}
