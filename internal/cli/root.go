// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	configPath string
	dataDir    string
	tz         string
	json       bool
	verbose    bool
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rigrun-tools",
		Short: "Local tools for calculation, notes, reminders and study",
		Long: `rigrun-tools is a small set of local tools: a safe calculator, notes,
todos, reminders, study streaks, flashcards, weather and Wikipedia lookups.

Tools can be run from the shell, an interactive console, an MCP client
or a loopback HTTP API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogging(cmd.ErrOrStderr(), opts.verbose)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Field: "flags", Reason: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "configuration file (default ~/.rigrun-tools/config.toml)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding the JSON documents")
	pf.StringVar(&opts.tz, "tz", "", "time zone for zone-less due times (IANA name or Local)")
	pf.BoolVar(&opts.json, "json", false, "machine-readable JSON output")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log events to stderr")

	root.AddCommand(
		newInvokeCmd(opts),
		newToolsCmd(opts),
		newCalcCmd(opts),
		newDueCmd(opts),
		newChatCmd(opts),
		newMCPCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newDocsCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:])
}

func run(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		err = &UsageError{Field: "command", Reason: err.Error()}
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		DisplayError(cmd.OutOrStdout(), err, true)
	} else {
		DisplayError(cmd.ErrOrStderr(), err, false)
	}
	return GetExitCode(err)
}

// configureLogging silences the event log unless it was asked for.
func configureLogging(stderr io.Writer, verbose bool) {
	if verbose || os.Getenv("RIGRUN_TOOLS_DEBUG") != "" {
		log.SetOutput(stderr)
		log.SetFlags(log.LstdFlags)
		return
	}
	log.SetOutput(io.Discard)
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), NewJSONResponse("version", info))
			}
			out := cmd.OutOrStdout()
			_, err := io.WriteString(out, TitleStyle.Render("rigrun-tools")+" "+Version+"\n"+
				DimStyle.Render("commit "+GitCommit+", built "+BuildDate)+"\n")
			return err
		},
	}
}
