package backlog

import (
	"fmt"
	"sort"
	"strings"
)

// Call is a parsed strategy expression such as `min_pledge(50, reverse=false)`
type Call struct {
	Name   string
	Args   []string
	Kwargs map[string]string
}

func (c Call) String() string {
	parts := append([]string{}, c.Args...)
	keys := make([]string, 0, len(c.Kwargs))
	for k := range c.Kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+c.Kwargs[k])
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// ParseCall parses `name`, `name()` or `name(arg, key=value, ...)`.
// Arguments are plain strings, optionally quoted; nothing is evaluated.
func ParseCall(expr string) (Call, error) {
	expr = strings.TrimSpace(expr)
	call := Call{Kwargs: map[string]string{}}

	open := strings.IndexByte(expr, '(')
	if open < 0 {
		call.Name = expr
		if !isIdentifier(call.Name) {
			return Call{}, fmt.Errorf("%w: bad name in %q", ErrInvalidStrategy, expr)
		}
		return call, nil
	}
	if !strings.HasSuffix(expr, ")") {
		return Call{}, fmt.Errorf("%w: missing closing parenthesis in %q", ErrInvalidStrategy, expr)
	}

	call.Name = strings.TrimSpace(expr[:open])
	if !isIdentifier(call.Name) {
		return Call{}, fmt.Errorf("%w: bad name in %q", ErrInvalidStrategy, expr)
	}

	inner := strings.TrimSpace(expr[open+1 : len(expr)-1])
	if inner == "" {
		return call, nil
	}

	for _, raw := range splitTopLevel(inner) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return Call{}, fmt.Errorf("%w: empty argument in %q", ErrInvalidStrategy, expr)
		}
		if eq := indexUnquoted(raw, '='); eq > 0 {
			key := strings.TrimSpace(raw[:eq])
			if isIdentifier(key) {
				if _, dup := call.Kwargs[key]; dup {
					return Call{}, fmt.Errorf("%w: %s given twice in %q", ErrInvalidStrategy, key, expr)
				}
				call.Kwargs[key] = unquote(strings.TrimSpace(raw[eq+1:]))
				continue
			}
		}
		if len(call.Kwargs) > 0 {
			return Call{}, fmt.Errorf("%w: positional argument after keyword argument in %q", ErrInvalidStrategy, expr)
		}
		call.Args = append(call.Args, unquote(raw))
	}

	return call, nil
}

// SplitExpressions splits "a, b(1, 2), c" on top-level commas
func SplitExpressions(s string) []string {
	var out []string
	for _, part := range splitTopLevel(s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitTopLevel splits on commas outside parentheses and quotes
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
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func indexUnquoted(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == target:
			return i
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
