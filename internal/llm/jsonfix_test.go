package llm

import (
	"errors"
	"testing"

	"llm-trading-agent/internal/errs"
)

func TestExtractObjectFromProse(t *testing.T) {
	raw := `Sure! Here is the result: {"intent": "get_ltp", "tradingsymbol": "INFY"} hope that helps.`

	got, ok := ExtractObject(raw)
	if !ok {
		t.Fatal("expected an object")
	}
	if got != `{"intent": "get_ltp", "tradingsymbol": "INFY"}` {
		t.Errorf("unexpected extraction: %s", got)
	}
}

func TestExtractObjectStripsFences(t *testing.T) {
	raw := "```json\n{\"intent\": \"get_portfolio\"}\n```"

	got, ok := ExtractObject(raw)
	if !ok || got != `{"intent": "get_portfolio"}` {
		t.Errorf("unexpected extraction: %q (ok=%v)", got, ok)
	}
}

func TestExtractObjectHandlesNestedBraces(t *testing.T) {
	raw := `{"outer": {"inner": 1}, "note": "a } in a string"}`

	got, ok := ExtractObject(raw)
	if !ok || got != raw {
		t.Errorf("nested object mangled: %q (ok=%v)", got, ok)
	}
}

func TestExtractArray(t *testing.T) {
	raw := `rows follow [1, [2, 3], 4] trailing`

	got, ok := ExtractArray(raw)
	if !ok || got != `[1, [2, 3], 4]` {
		t.Errorf("unexpected extraction: %q (ok=%v)", got, ok)
	}
}

func TestUnmarshalObjectRepairsTruncation(t *testing.T) {
	raw := `{"intent": "get_ltp", "tradingsymbol": "RELIANCE`

	var out map[string]any
	if err := UnmarshalObject(raw, &out); err != nil {
		t.Fatalf("expected repair to succeed, got %v", err)
	}
	if out["tradingsymbol"] != "RELIANCE" {
		t.Errorf("repaired payload lost a field: %#v", out)
	}
}

func TestUnmarshalObjectGivesUpOnGarbage(t *testing.T) {
	var out map[string]any
	err := UnmarshalObject("no json here at all", &out)

	var malformed *errs.MalformedUpstreamError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedUpstreamError, got %v", err)
	}
	if malformed.Raw == "" {
		t.Error("error should preserve the raw text for logging")
	}
}

func TestUnmarshalObjectSingleRepairOnly(t *testing.T) {
	// Repair closes brackets, but it cannot invent structure for a payload
	// that is broken beyond truncation.
	var out map[string]any
	err := UnmarshalObject(`{"a": [}]`, &out)

	var malformed *errs.MalformedUpstreamError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedUpstreamError, got %v", err)
	}
}
