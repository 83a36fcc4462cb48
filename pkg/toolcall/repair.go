package toolcall

import (
	"encoding/json"
	"strings"
)

// Repair attempts to turn truncated or sloppy argument JSON into a valid
// document: trailing commas are stripped, an unterminated string is closed
// and unmatched braces and brackets are balanced.
//
// Valid input is returned as is. If the repaired text still does not parse,
// the original text is returned unchanged.
func Repair(s string) string {
	if strings.TrimSpace(s) == "" || json.Valid([]byte(s)) {
		return s
	}

	var (
		out      strings.Builder
		stack    []byte
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return s
			}
			stack = stack[:len(stack)-1]
			trimTrailingComma(&out)
		}
		out.WriteByte(ch)
	}

	if inString {
		if escaped {
			str := out.String()
			out.Reset()
			out.WriteString(str[:len(str)-1])
		}
		out.WriteByte('"')
	}

	trimTrailingComma(&out)

	for i := len(stack) - 1; i >= 0; i-- {
		out.WriteByte(stack[i])
	}

	repaired := out.String()
	if !json.Valid([]byte(repaired)) {
		return s
	}
	return repaired
}

// trimTrailingComma removes a trailing comma (and surrounding whitespace)
// from what has been written so far.
func trimTrailingComma(out *strings.Builder) {
	str := strings.TrimRight(out.String(), " \t\r\n")
	if !strings.HasSuffix(str, ",") {
		return
	}
	str = strings.TrimRight(str[:len(str)-1], " \t\r\n")
	out.Reset()
	out.WriteString(str)
}
