// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all CLI commands in rigrun-tools.
//
// STANDARDIZED PATTERN:
//   - Commands ALWAYS return errors (never just print and return nil)
//   - Execute displays the error once and picks the exit code
//   - Tool failures keep their kind all the way to the exit code

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigrun-tools/internal/config"
	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or tool arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates an upstream service failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates an unknown tool or document
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitEvalError indicates an expression evaluated to no usable number
	ExitEvalError = 9
	// ExitDataError indicates a stored document could not be read
	ExitDataError = 10
)

// ExitCodeForKind maps a tool failure kind to a process exit code.
func ExitCodeForKind(kind tools.Kind) int {
	switch kind {
	case "":
		return ExitSuccess
	case tools.KindInvalidArguments, tools.KindParseError, tools.KindDisallowedConstruct, tools.KindInputTooLarge:
		return ExitUsageError
	case tools.KindUnknownTool:
		return ExitNotFoundError
	case tools.KindDivisionByZero, tools.KindOverflow, tools.KindUndefinedResult:
		return ExitEvalError
	case tools.KindTimeout:
		return ExitTimeoutError
	case tools.KindCorruptDocument:
		return ExitDataError
	case tools.KindUpstreamFailure:
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Field   string // Flag or argument that was wrong
	Value   string // Value that was provided
	Reason  string // Why it was rejected
	Example string // Example of valid usage (optional)
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a configuration load failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// newUsageError creates a usage error with an example.
func newUsageError(field, value, reason, example string) error {
	return &UsageError{Field: field, Value: value, Reason: reason, Example: example}
}

// =============================================================================
// EXIT CODE SELECTION
// =============================================================================

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *tools.Error
	if errors.As(err, &te) {
		return ExitCodeForKind(te.Kind)
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) || errors.Is(err, docstore.ErrInvalidName) {
		return ExitUsageError
	}

	switch {
	case errors.Is(err, docstore.ErrCorrupt):
		return ExitDataError
	case errors.Is(err, docstore.ErrNotFound):
		return ExitNotFoundError
	}

	var cfgErr *ConfigError
	var verrs config.ValidateErrors
	if errors.As(err, &cfgErr) || errors.As(err, &verrs) {
		return ExitConfigError
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError writes err in a consistent format. In JSON mode a structured
// envelope is written to w; otherwise a styled line.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// DisplayErrorJSON writes an error as JSON.
func DisplayErrorJSON(w io.Writer, err error) {
	output := map[string]any{
		"success":   false,
		"error":     err.Error(),
		"exit_code": GetExitCode(err),
	}

	var te *tools.Error
	var usageErr *UsageError
	switch {
	case errors.As(err, &te):
		output["error_type"] = "tool_error"
		output["kind"] = string(te.Kind)
		output["message"] = te.Message
		if te.Tool != "" {
			output["tool"] = te.Tool
		}
		if te.Field != "" {
			output["field"] = te.Field
		}
	case errors.As(err, &usageErr):
		output["error_type"] = "usage_error"
		output["field"] = usageErr.Field
		output["reason"] = usageErr.Reason
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}
