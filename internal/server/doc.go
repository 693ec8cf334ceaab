// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes a tools.Dispatcher to other programs.
//
// Two transports share the dispatcher, so validation, caching, history and
// the failure taxonomy behave the same everywhere:
//
//   - MCP over stdio (mark3labs/mcp-go): every descriptor becomes an MCP tool
//     with a JSON Schema built from its parameters
//   - A loopback HTTP API with bearer authentication and per-client rate
//     limiting
//
// # Endpoints
//
//   - GET  /v1/tools          - List tool descriptors
//   - GET  /v1/tools/{name}   - Describe one tool
//   - POST /v1/tools/{name}   - Invoke with a JSON object body
//   - GET  /v1/history        - Recent invocations
//   - GET  /health            - Health check
//   - GET  /stats             - Usage statistics
//   - GET  /cache/stats       - Cache statistics
//   - POST /cache/clear       - Clear cache
//
// # Usage
//
//	mcp := server.NewMCPServer(dispatcher, version)
//	err := server.ServeStdio(ctx, mcp, os.Stdin, os.Stdout, log.New(os.Stderr, "", 0))
//
//	srv := server.NewServer(dispatcher, server.Config{Token: token})
//	err := srv.Start()
package server
