package factory

import (
	"strconv"
	"strings"
)

// ParseLiteral infers the type of a keyword argument value. It accepts
// integers, floats, True/False (either case), None, quoted strings and
// tuples or lists of those. Anything else is returned as the raw string.
func ParseLiteral(s string) any {
	if v, ok := parseLiteral(strings.TrimSpace(s)); ok {
		return v
	}
	return s
}

func parseLiteral(s string) (any, bool) {
	switch s {
	case "True", "true":
		return true, true
	case "False", "false":
		return false, true
	case "None":
		return nil, true
	case "":
		return nil, false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), true
	}
	if isNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && last == first {
			return s[1 : len(s)-1], true
		}
		if (first == '(' && last == ')') || (first == '[' && last == ']') {
			return parseSequence(s[1 : len(s)-1])
		}
	}
	return nil, false
}

func parseSequence(body string) (any, bool) {
	items := []any{}
	if strings.TrimSpace(body) == "" {
		return items, true
	}
	parts := splitTopLevel(body)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		// trailing comma as in (5,)
		if part == "" && i == len(parts)-1 && i > 0 {
			break
		}
		v, ok := parseLiteral(part)
		if !ok {
			return nil, false
		}
		items = append(items, v)
	}
	return items, true
}

// splitTopLevel splits on commas outside brackets and quotes
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// isNumeric rejects words ParseFloat would accept, such as inf and nan
func isNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
