// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("config show", cfg.Redacted()))
			}
			return toml.NewEncoder(out).Encode(cfg.Redacted())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, exists, err := configFilePath(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, NewJSONResponse("config path", map[string]any{
					"path": path, "exists": exists,
				}))
			}
			if exists {
				fmt.Fprintln(out, path)
			} else {
				fmt.Fprintln(out, path+" "+DimStyle.Render("(not created; defaults in use)"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting by dotted key (e.g. tools.weather.units)",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			keys := config.GetAllKeys()
			sort.Strings(keys)
			return keys, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			v, err := cfg.Redacted().Get(args[0])
			if err != nil {
				return newUsageError("key", args[0], err.Error(), "config get tools.weather.units")
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), NewJSONResponse("config get", map[string]any{
					"key": args[0], "value": v,
				}))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the configuration file",
		Example: `  rigrun-tools config set schedule.timezone Europe/Berlin
  rigrun-tools config set tools.offline true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, exists, err := configFilePath(opts)
			if err != nil {
				return err
			}
			// file values only, so environment overrides are not persisted
			cfg := config.Default()
			if exists {
				load := config.LoadTOML
				if strings.HasSuffix(path, ".json") {
					load = config.LoadJSON
				}
				if err := load(cfg, path); err != nil {
					return &ConfigError{Err: err}
				}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return newUsageError("key", args[0], err.Error(), "config set tools.weather.units imperial")
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return &ConfigError{Err: err}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return &ConfigError{Err: err}
			}
			if err := config.Save(cfg, path); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("[OK]"), args[0], args[1])
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, exists, err := configFilePath(opts)
			if err != nil {
				return err
			}
			if exists && !force {
				return newUsageError("config", path, "file already exists", "config init --force")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return &ConfigError{Err: err}
			}
			if err := config.Save(config.Default(), path); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

// configFilePath returns the file that Load would read, or the TOML path
// when none exists.
func configFilePath(opts *rootOptions) (string, bool, error) {
	if opts.configPath != "" {
		path := config.ExpandHome(opts.configPath)
		_, err := os.Stat(path)
		return path, err == nil, nil
	}
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", false, &ConfigError{Err: err}
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, true, nil
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath, true, nil
		}
	}
	return tomlPath, false, nil
}
