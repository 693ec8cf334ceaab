// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-tools/internal/tools"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

const (
	toolNameWidth  = 18
	toolClassWidth = 10
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List registered tools",
		Long:  "List every registered tool, or describe one tool with its parameters.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				format = "json"
			}
			switch format {
			case "text", "json", "yaml":
			default:
				return newUsageError("--format", format, "must be text, json or yaml", "--format yaml")
			}

			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			reg := app.Dispatcher.Registry()
			descs := reg.Descriptors()
			if len(args) == 1 {
				desc, ok := reg.Lookup(args[0])
				if !ok {
					return &tools.Error{Kind: tools.KindUnknownTool, Tool: args[0], Message: "no such tool"}
				}
				descs = []tools.Descriptor{desc}
			}
			return writeDescriptors(cmd.OutOrStdout(), format, descs, len(args) == 1)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func writeDescriptors(w io.Writer, format string, descs []tools.Descriptor, detailed bool) error {
	switch format {
	case "json":
		return writeJSON(w, NewJSONResponse("tools", descs))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(descs); err != nil {
			return err
		}
		return enc.Close()
	}

	if detailed {
		return writeToolDetail(w, descs[0])
	}

	width := GetTerminalWidth()
	descWidth := width - toolNameWidth - toolClassWidth - 2
	if descWidth < 20 {
		descWidth = 20
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Tools (%d)", len(descs))))
	fmt.Fprintln(w, RenderSeparator(min(width, 70)))
	for _, d := range descs {
		name := util.PadRight(util.TruncateWidth(d.Name, toolNameWidth-1), toolNameWidth)
		pad := strings.Repeat(" ", max(toolClassWidth-len(d.SideEffect), 1))
		desc := util.TruncateWidth(util.OneLine(d.ShortDescription()), descWidth)
		fmt.Fprintf(w, "%s%s%s%s\n", name, renderSideEffect(string(d.SideEffect)), pad, DimStyle.Render(desc))
	}
	return nil
}

func writeToolDetail(w io.Writer, d tools.Descriptor) error {
	fmt.Fprintln(w, TitleStyle.Render(d.Name)+"  "+renderSideEffect(string(d.SideEffect)))
	fmt.Fprintln(w, d.Description)
	if d.Document != "" {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Document:"), d.Document)
	}
	if d.TTL > 0 {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Cache TTL:"), d.TTL)
	}
	if len(d.Params) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No parameters."))
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Parameters"))
	for _, p := range d.Params {
		flags := string(p.Type)
		if p.Required {
			flags += ", required"
		}
		if p.Default != nil {
			flags += fmt.Sprintf(", default %v", p.Default)
		}
		if len(p.Enum) > 0 {
			flags += ", one of " + strings.Join(p.Enum, "|")
		}
		fmt.Fprintf(w, "  %s %s\n", util.PadRight(p.Name, 14), DimStyle.Render("("+flags+")"))
		if p.Description != "" {
			fmt.Fprintf(w, "  %s %s\n", strings.Repeat(" ", 14), p.Description)
		}
	}
	return nil
}
