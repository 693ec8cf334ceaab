// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// ============================================================================
// MCP BRIDGE
// ============================================================================

// MCPServerName is reported in the initialize handshake.
const MCPServerName = "rigrun-tools"

const mcpInstructions = "Local tools: a safe calculator, notes, todos, reminders, " +
	"study streaks, flashcards, weather and Wikipedia lookups. " +
	"Due times are ISO-8601; results are JSON."

// NewMCPServer registers every tool of d on a new MCP server. Calls are
// routed through d.Invoke so validation, caching and history apply.
func NewMCPServer(d *tools.Dispatcher, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		MCPServerName,
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(mcpInstructions),
	)
	for _, desc := range d.Registry().Descriptors() {
		s.AddTool(MCPTool(desc), mcpHandler(d, desc.Name))
	}
	return s
}

// MCPTool converts a descriptor to an MCP tool definition.
func MCPTool(desc tools.Descriptor) mcp.Tool {
	schema, err := json.Marshal(InputSchema(desc))
	if err != nil {
		// descriptor defaults are canonical JSON types after registration
		schema = []byte(`{"type":"object"}`)
	}
	tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, schema)

	readOnly := desc.SideEffect != tools.SideEffectMutating
	tool.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(readOnly),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(readOnly),
		OpenWorldHint:   mcp.ToBoolPtr(desc.SideEffect == tools.SideEffectCacheable),
	}
	return tool
}

// InputSchema builds the JSON Schema object for desc's parameters.
func InputSchema(desc tools.Descriptor) map[string]any {
	props := make(map[string]any, len(desc.Params))
	required := []string{}
	for _, p := range desc.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Type == tools.TypeArray {
			prop["items"] = map[string]any{}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func mcpHandler(d *tools.Dispatcher, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := d.Invoke(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(mcpErrorText(err)), nil
		}
		text, err := json.MarshalIndent(res.Value, "", "  ")
		if err != nil {
			log.Printf("MCP_ENCODE_ERROR | tool=%s error=%v", name, err)
			return mcp.NewToolResultError(string(tools.KindUpstreamFailure) + ": result could not be encoded"), nil
		}
		return mcp.NewToolResultText(string(text)), nil
	}
}

// mcpErrorText renders "Kind: message" without internal causes.
func mcpErrorText(err error) string {
	var te *tools.Error
	if errors.As(err, &te) {
		return te.Error()
	}
	return string(tools.KindOf(err)) + ": tool failed unexpectedly"
}

// ServeStdio runs s over in/out until in closes or ctx is done. Protocol
// errors go to errLog; stdout carries only protocol frames.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer, errLog *log.Logger) error {
	stdio := mcpserver.NewStdioServer(s)
	if errLog != nil {
		stdio.SetErrorLogger(errLog)
	}
	log.Printf("MCP_START | transport=stdio")
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		log.Printf("MCP_STOP | transport=stdio")
		return nil
	}
	return err
}
