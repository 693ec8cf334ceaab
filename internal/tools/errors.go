// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rigrun-tools/internal/calc"
	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/model"
	"github.com/jeranaias/rigrun-tools/internal/schedule"
	"github.com/jeranaias/rigrun-tools/internal/srs"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies a failed invocation.
type Kind string

const (
	KindParseError          Kind = "ParseError"
	KindDisallowedConstruct Kind = "DisallowedConstruct"
	KindInputTooLarge       Kind = "InputTooLarge"
	KindDivisionByZero      Kind = "DivisionByZero"
	KindOverflow            Kind = "Overflow"
	KindUndefinedResult     Kind = "UndefinedResult"
	KindUnknownTool         Kind = "UnknownTool"
	KindInvalidArguments    Kind = "InvalidArguments"
	KindTimeout             Kind = "Timeout"
	KindCorruptDocument     Kind = "CorruptDocument"
	KindUpstreamFailure     Kind = "UpstreamFailure"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindParseError, KindDisallowedConstruct, KindInputTooLarge, KindDivisionByZero,
	KindOverflow, KindUndefinedResult, KindUnknownTool, KindInvalidArguments,
	KindTimeout, KindCorruptDocument, KindUpstreamFailure,
}

// genericFailure is shown for errors that carry no safe message of their own.
const genericFailure = "tool failed unexpectedly"

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is the only error type returned by Dispatcher.Invoke.
type Error struct {
	Kind Kind
	// Tool is the invoked tool name
	Tool string
	// Field names the offending argument for InvalidArguments
	Field   string
	Message string
	// Err is the underlying cause, kept for errors.Is and logs
	Err error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" for nil. Errors that are not *Error
// report UpstreamFailure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUpstreamFailure
}

// IsKind reports whether err has kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func invalidArg(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArguments, Field: field, Message: fmt.Sprintf(format, args...)}
}

func upstream(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstreamFailure, Message: fmt.Sprintf(format, args...), Err: cause}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

var calcKinds = map[error]Kind{
	calc.ErrParse:               KindParseError,
	calc.ErrDisallowedConstruct: KindDisallowedConstruct,
	calc.ErrInputTooLarge:       KindInputTooLarge,
	calc.ErrDivisionByZero:      KindDivisionByZero,
	calc.ErrOverflow:            KindOverflow,
	calc.ErrUndefined:           KindUndefinedResult,
}

// argumentErrors are domain errors caused by the caller's input.
var argumentErrors = []error{
	schedule.ErrBadDue,
	model.ErrNotFound,
	model.ErrAlreadyDone,
	srs.ErrEmptyFront,
	docstore.ErrInvalidName,
}

// classify converts any error returned by a tool into an *Error for tool.
func classify(tool string, err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		// a failed flight hands the same *Error to every waiter
		c := *te
		if c.Tool == "" {
			c.Tool = tool
		}
		return &c
	}

	if sentinel := calc.KindOf(err); sentinel != nil {
		if k, ok := calcKinds[sentinel]; ok {
			return &Error{Kind: k, Tool: tool, Message: err.Error(), Err: err}
		}
	}
	if errors.Is(err, docstore.ErrCorrupt) {
		return &Error{Kind: KindCorruptDocument, Tool: tool, Message: corruptMessage(err), Err: err}
	}
	for _, sentinel := range argumentErrors {
		if errors.Is(err, sentinel) {
			return &Error{Kind: KindInvalidArguments, Tool: tool, Message: err.Error(), Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Tool: tool, Message: "tool did not finish in time", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUpstreamFailure, Tool: tool, Message: "invocation canceled", Err: err}
	}
	return &Error{Kind: KindUpstreamFailure, Tool: tool, Message: genericFailure, Err: err}
}

// corruptMessage names the document without exposing its path.
func corruptMessage(err error) string {
	var ce *docstore.CorruptError
	if errors.As(err, &ce) && ce.Name != "" {
		return fmt.Sprintf("document %q is corrupt; repair it or run \"docs quarantine %s\"", ce.Name, ce.Name)
	}
	return "document is corrupt"
}
