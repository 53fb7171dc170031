package llm

import (
	"encoding/json"
	"strings"

	"llm-trading-agent/internal/errs"
)

// ExtractObject pulls the first balanced JSON object out of model text,
// ignoring markdown fences and surrounding prose. Returns the object text and
// whether one was found.
func ExtractObject(s string) (string, bool) {
	s = stripFences(s)
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}

// ExtractArray pulls the first balanced JSON array out of model text.
func ExtractArray(s string) (string, bool) {
	s = stripFences(s)
	start := strings.Index(s, "[")
	if start == -1 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// UnmarshalObject extracts and decodes the first JSON object in raw. When the
// object is truncated it makes one repair attempt by closing open strings and
// brackets; a second failure is a MalformedUpstreamError.
func UnmarshalObject(raw string, v any) error {
	text, ok := ExtractObject(raw)
	if !ok {
		// No balanced object at all; try repairing from the first brace.
		s := stripFences(raw)
		start := strings.Index(s, "{")
		if start == -1 {
			return &errs.MalformedUpstreamError{Raw: raw}
		}
		text = s[start:]
	}

	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	repaired := closeOpen(text)
	if rerr := json.Unmarshal([]byte(repaired), v); rerr == nil {
		return nil
	}
	return &errs.MalformedUpstreamError{Raw: raw, Err: err}
}

// closeOpen appends the closers for any unterminated string or unbalanced
// brackets, innermost first.
func closeOpen(s string) string {
	var stack []byte
	inStr := false
	esc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(s, ", \n\t"))
	if inStr {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
