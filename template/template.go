// Package template evaluates `{{segment||segment}}` expressions over a
// weave.Resolver scope (spec §4.2). Rendering is pure and deterministic.
package template

import (
	"encoding/json"
	"strings"

	"github.com/spetersoncode/weave"
)

// Render replaces every `{{...}}` expression in tmpl with the first segment
// that resolves to a defined, non-empty value. Segments are tried in order;
// a quoted literal always resolves; a dotted path resolves against scope.
func Render(tmpl string, scope weave.Resolver) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "{{")
		if start < 0 {
			out.WriteString(tmpl[i:])
			break
		}
		start += i
		out.WriteString(tmpl[i:start])

		end := strings.Index(tmpl[start:], "}}")
		if end < 0 {
			return "", &weave.TemplateError{Template: tmpl, Msg: "unterminated expression"}
		}
		end += start

		expr := tmpl[start+2 : end]
		val, err := evalExpr(expr, scope)
		if err != nil {
			return "", err
		}
		out.WriteString(val)
		i = end + 2
	}
	return out.String(), nil
}

// evalExpr evaluates the body of one `{{...}}` expression: a `||`-separated
// chain of quoted literals or dotted paths, first defined non-empty wins.
func evalExpr(expr string, scope weave.Resolver) (string, error) {
	segments := splitSegments(expr)
	if len(segments) == 0 {
		return "", &weave.TemplateError{Template: expr, Msg: "empty expression"}
	}

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if isLiteral(seg) {
			lit, err := unquote(seg)
			if err != nil {
				return "", &weave.TemplateError{Template: expr, Msg: err.Error()}
			}
			return lit, nil
		}

		val, ok := scope.Lookup(seg)
		if !ok || val == nil {
			continue
		}
		s, empty := stringify(val)
		if empty {
			continue
		}
		return s, nil
	}

	return "", nil
}

// splitSegments splits on top-level `||`, respecting quoted literals so a
// `||` inside a quoted string is not treated as a separator.
func splitSegments(expr string) []string {
	var segs []string
	var cur strings.Builder
	inQuote := false
	escaped := false
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && r == '|' && i+1 < len(runes) && runes[i+1] == '|':
			segs = append(segs, cur.String())
			cur.Reset()
			i++
		default:
			cur.WriteRune(r)
		}
	}
	segs = append(segs, cur.String())
	return segs
}

func isLiteral(seg string) bool {
	return strings.HasPrefix(seg, `"`) && strings.HasSuffix(seg, `"`) && len(seg) >= 2
}

// unquote strips the surrounding quotes and resolves `\"` escapes.
func unquote(seg string) (string, error) {
	inner := seg[1 : len(seg)-1]
	var out strings.Builder
	escaped := false
	for _, r := range inner {
		if escaped {
			out.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		out.WriteRune(r)
	}
	if escaped {
		return "", errUnterminatedEscape
	}
	return out.String(), nil
}

var errUnterminatedEscape = &unterminatedEscapeError{}

type unterminatedEscapeError struct{}

func (e *unterminatedEscapeError) Error() string { return "unterminated escape in literal" }

// stringify renders a resolved scope value for substitution. Strings pass
// through as-is; everything else is canonical JSON. The bool return reports
// whether the result counts as "empty" for fallback purposes: a non-literal
// empty string is treated as undefined (spec §4.2).
func stringify(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, s == ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", true
	}
	return string(b), false
}

// RenderTree recursively renders every string leaf of an arbitrary JSON-like
// structure (map[string]any, []any, string, or scalar) against scope.
func RenderTree(node any, scope weave.Resolver) (any, error) {
	switch v := node.(type) {
	case string:
		return Render(v, scope)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			rv, err := RenderTree(val, scope)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			rv, err := RenderTree(val, scope)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
