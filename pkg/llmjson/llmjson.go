// Package llmjson salvages structured data out of free-form LLM text.
// Model replies frequently arrive wrapped in code fences, with trailing
// commas, unquoted keys, or truncated mid-structure. Parse applies a
// layered cleanup pipeline so that one malformed token does not abort a
// multi-minute simulation run.
package llmjson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SnippetLimit bounds the payload excerpt carried by a ParseError.
const SnippetLimit = 400

// ParseError is returned when every repair fallback has been exhausted.
// Snippet holds the beginning of the offending payload for diagnosis.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse LLM JSON: %v (payload starts: %s)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse extracts and repairs the first JSON value found in text.
// Each cleanup step is idempotent on already-clean input, so valid JSON
// round-trips unchanged.
func Parse(text string) (interface{}, error) {
	raw := ExtractBlock(StripFences(text))

	cleaned := stripComments(raw)
	cleaned = removeTrailingCommas(cleaned)
	cleaned = normalizeLiterals(cleaned)
	cleaned = quoteBareKeys(cleaned)
	cleaned = autoClose(cleaned)

	var v interface{}
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v, nil
	}

	// The cleanup heuristics can themselves mangle unusual-but-valid
	// payloads, so retry the raw extracted text before giving up.
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, nil
	}

	// Last resort: the model may have emitted a Python-style dict with
	// single-quoted strings.
	requoted := singleToDoubleQuotes(cleaned)
	var firstErr error
	if err := json.Unmarshal([]byte(requoted), &v); err != nil {
		firstErr = err
	} else {
		return v, nil
	}

	snippet := raw
	if len(snippet) > SnippetLimit {
		snippet = snippet[:SnippetLimit]
	}
	snippet = strings.ReplaceAll(snippet, "\n", "\\n")
	return nil, &ParseError{Snippet: snippet, Err: firstErr}
}

// ParseObject is Parse restricted to a top-level JSON object.
func ParseObject(text string) (map[string]interface{}, error) {
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &ParseError{Snippet: snippetOf(text), Err: fmt.Errorf("expected JSON object, got %T", v)}
	}
	return obj, nil
}

func snippetOf(text string) string {
	if len(text) > SnippetLimit {
		text = text[:SnippetLimit]
	}
	return strings.ReplaceAll(text, "\n", "\\n")
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

// StripFences removes a surrounding Markdown code fence, optionally
// tagged "json".
func StripFences(text string) string {
	return fenceRe.ReplaceAllString(strings.TrimSpace(text), "")
}

// ExtractBlock returns the first top-level {...} or [...] block in text,
// scanning with a bracket-depth counter that skips bracket characters
// inside quoted strings. If the structure is truncated, the scanned
// prefix is returned as-is; autoClose handles closure later.
func ExtractBlock(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if text[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	// Truncated mid-structure.
	return text[start:]
}

// stripComments removes // line comments and /* */ block comments while
// preserving string contents.
func stripComments(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(text) {
			if text[i+1] == '/' {
				for i < len(text) && text[i] != '\n' {
					i++
				}
				if i < len(text) {
					sb.WriteByte('\n')
				}
				continue
			}
			if text[i+1] == '*' {
				i += 2
				for i+1 < len(text) && !(text[i] == '*' && text[i+1] == '/') {
					i++
				}
				i++ // skip the trailing '/'
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

func removeTrailingCommas(text string) string {
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

var (
	nanRe      = regexp.MustCompile(`(?i)\bNaN\b`)
	infinityRe = regexp.MustCompile(`(?i)-?\bInfinity\b`)
)

// normalizeLiterals maps JSON5 numeric literals onto null. Applied
// outside strings only; a NaN inside a quoted string is left alone.
func normalizeLiterals(text string) string {
	return mapOutsideStrings(text, func(s string) string {
		s = nanRe.ReplaceAllString(s, "null")
		return infinityRe.ReplaceAllString(s, "null")
	})
}

var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// quoteBareKeys wraps unquoted object keys in double quotes, best effort.
func quoteBareKeys(text string) string {
	return mapOutsideStrings(text, func(s string) string {
		return bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	})
}

// mapOutsideStrings applies fn to the segments of text that lie outside
// double-quoted strings, leaving string contents untouched.
func mapOutsideStrings(text string, fn func(string) string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	segStart := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				sb.WriteString(text[segStart : i+1])
				segStart = i + 1
			}
			continue
		}
		if c == '"' {
			sb.WriteString(fn(text[segStart:i]))
			segStart = i
			inString = true
		}
	}
	if segStart < len(text) {
		if inString {
			sb.WriteString(text[segStart:])
		} else {
			sb.WriteString(fn(text[segStart:]))
		}
	}
	return sb.String()
}

// autoClose appends the closers for any unbalanced brackets or braces,
// in reverse order of opening. An unterminated string is closed first.
func autoClose(text string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
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
	if !inString && len(stack) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}

// singleToDoubleQuotes converts unescaped single quotes to double
// quotes. Heuristic for Python-dict-shaped replies; only used as the
// final fallback.
func singleToDoubleQuotes(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\'' && (i == 0 || text[i-1] != '\\') {
			sb.WriteByte('"')
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
