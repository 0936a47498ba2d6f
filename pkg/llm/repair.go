package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Some models leak chat-template sentinels like <|tool▁calls▁end|> after the
// argument payload. One or more of them, with optional whitespace, at the end.
var trailingSentinels = regexp.MustCompile(`(?:\s*<\|[^<>|]*\|>)+\s*$`)

// TrimToolArguments strips trailing sentinel markers and anything around the
// first complete top-level JSON value. The scan is string-aware so braces
// inside string literals do not affect nesting depth. If no balanced value is
// found the remainder from the first opening brace is returned and left for
// DecodeToolArguments to reject.
func TrimToolArguments(raw string) string {
	s := trailingSentinels.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}

// DecodeToolArguments parses a tool-call argument payload, tolerating the
// JSON damage reasoning models commonly produce: LaTeX backslashes emitted
// unescaped and raw control characters inside string literals. Candidates
// are tried in order of least intervention; the first that decodes wins.
func DecodeToolArguments(raw string) (map[string]interface{}, error) {
	trimmed := TrimToolArguments(raw)

	candidates := []string{
		trimmed,
		escapeBackslashes(trimmed),
		reescapeControl(trimmed),
		reescapeControl(escapeBackslashes(trimmed)),
	}

	for _, candidate := range candidates {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &args); err == nil {
			return args, nil
		}
	}

	return nil, &FormatError{Message: fmt.Sprintf("tool arguments are not valid JSON: %s", truncate(raw, 200))}
}

// CollapseMarkerEscapes returns candidate readings of an over-escaped marker
// string: as-is, backslashes halved once, and halved twice. Lemma-editing
// tools try each against the proof text in order. Replacement bodies are
// never collapsed, only markers.
func CollapseMarkerEscapes(s string) []string {
	candidates := []string{s}

	cur := s
	for i := 0; i < 2; i++ {
		next := strings.ReplaceAll(cur, `\\`, `\`)
		if next == cur {
			break
		}
		candidates = append(candidates, next)
		cur = next
	}

	return candidates
}

// escapeBackslashes doubles every backslash that does not begin a valid JSON
// escape sequence. Valid escapes pass through untouched, so `\n` stays `\n`
// while `\frac` becomes `\\frac`.
func escapeBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if n := escapeLen(s, i); n > 0 {
			b.WriteString(s[i : i+n])
			i += n - 1
			continue
		}
		b.WriteString(`\\`)
	}

	return b.String()
}

// escapeLen returns the length of the valid JSON escape sequence starting at
// the backslash s[i], or 0 if it is not one.
func escapeLen(s string, i int) int {
	if i+1 >= len(s) {
		return 0
	}
	switch s[i+1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if i+5 < len(s) && isHex(s[i+2]) && isHex(s[i+3]) && isHex(s[i+4]) && isHex(s[i+5]) {
			return 6
		}
	}
	return 0
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

var controlReplacer = strings.NewReplacer(
	"\r", `\r`,
	"\n", `\n`,
	"\t", `\t`,
)

// reescapeControl re-escapes literal carriage returns, newlines, and tabs
// that should have been emitted as JSON escapes.
func reescapeControl(s string) string {
	return controlReplacer.Replace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
