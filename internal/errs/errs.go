// Package errs defines the error taxonomy surfaced at the turn boundary.
// Every failure a chat turn can produce maps to exactly one of these, so the
// response normalizer never leaks a raw stack trace to the caller.
package errs

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated means no valid session exists. Surfaced distinctly from
// broker rejections so the client prompts re-login instead of retrying.
var ErrUnauthenticated = errors.New("not logged in")

// ClassificationError means the intent-extraction call failed or returned a
// schema-invalid result.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not understand intent: %s: %v", e.Reason, e.Err)
	}
	return "could not understand intent: " + e.Reason
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// SymbolNotFoundError means the resolver exhausted all three lookup tiers.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found in instrument index", e.Symbol)
}

// ToolCallError means a broker or feed endpoint returned a failure shape or a
// transport error. Message preserves the verbatim broker message when present.
type ToolCallError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolCallError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, msg)
}

func (e *ToolCallError) Unwrap() error { return e.Err }

// DataInsufficiencyError means an analytic recipe needed more candle history
// than the broker returned. Indicators need warm-up rows.
type DataInsufficiencyError struct {
	Symbol string
	Rows   int
	Min    int
}

func (e *DataInsufficiencyError) Error() string {
	return fmt.Sprintf("not enough candle data for %s: got %d rows, need at least %d", e.Symbol, e.Rows, e.Min)
}

// MalformedUpstreamError means an LLM-mediated extraction returned non-JSON
// or truncated JSON and the one structural repair attempt also failed.
type MalformedUpstreamError struct {
	Raw string
	Err error
}

func (e *MalformedUpstreamError) Error() string {
	return fmt.Sprintf("malformed upstream JSON: %v", e.Err)
}

func (e *MalformedUpstreamError) Unwrap() error { return e.Err }
