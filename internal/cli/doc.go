// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the rigrun-tools command line.
//
// Every command builds the same App (configuration, document store, result
// cache, history and dispatcher) and talks to tools only through the
// dispatcher, so validation, caching and history behave the same from the
// shell, the chat console, the MCP bridge and the HTTP API.
//
// # Commands
//
//   - invoke: Run one tool with JSON or --arg key=value arguments
//   - tools: List registered tools (text, json or yaml)
//   - calc: Evaluate an arithmetic expression
//   - due: Show due todos, reminders and flashcards, optionally watching
//   - chat: Interactive console with line editing and history
//   - mcp: Serve the tools over MCP on stdio
//   - serve: Serve the tools over a loopback HTTP API
//   - history: Show recent invocations or per-tool summaries
//   - docs: List, show, quarantine or export stored documents
//   - config: Show the effective configuration or its path
//
// # Global Flags
//
//	--config PATH    Configuration file (TOML, or JSON by extension)
//	--data-dir DIR   Override data.dir
//	--tz ZONE        Override schedule.timezone
//	--json           Machine-readable output
//	--verbose        Log events to stderr
//
// Exit codes follow the failure kind; see ExitCodeForKind.
package cli
