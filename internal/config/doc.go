// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves rigrun-tools settings.
//
// The file lives at ~/.rigrun-tools/config.toml; a config.json next to it is
// read when no TOML file exists. Sections are data, schedule, cache, calc,
// tools (timeouts, offline mode, weather, wikipedia), history, server and ui.
//
// # Precedence
//
// Highest first:
//   - CLI flags such as --data-dir and --tz
//   - RIGRUN_TOOLS_* variables and OPENWEATHER_API_KEY
//   - .env files (working directory, then ~/.rigrun-tools/.env); these only
//     fill variables that are not already set
//   - the config file
//   - Default()
//
// Validate collects every problem into ValidateErrors instead of stopping at
// the first one. Get and Set address fields by dotted key ("tools.weather.units").
//
// # Usage
//
//	config.LoadEnvFiles()
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	loc, err := cfg.Location()
package config
