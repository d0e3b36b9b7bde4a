// Package jsonutil extracts JSON values out of raw LLM text, shared by
// every pipeline stage that parses a model response (nodes, refiners,
// the harmony compiler).
package jsonutil

import (
	"strings"

	"github.com/arabicverse/qasida/internal/poem"
)

// Extract pulls a JSON value out of raw LLM text that may be wrapped in
// markdown code fences and may carry leading or trailing prose. It finds
// the *matching* closing brace/bracket for the first opening one, so a
// JSON value followed by trailing commentary text — which json.Unmarshal
// rejects outright — can still be parsed.
func Extract(text string) (string, error) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := -1
	var open, close byte
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", &poem.ParseError{Message: "no JSON value found in response", Raw: text}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
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
				return content[start : i+1], nil
			}
		}
	}
	return "", &poem.ParseError{Message: "unterminated JSON value in response", Raw: text}
}
