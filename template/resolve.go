package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Context holds the bindings a template is rendered against. Values may be
// nil, bool, numbers, strings, slices, or nested map[string]any; dot paths
// address nested maps. A Context is never mutated by the engine: iteration
// derives new contexts instead.
type Context = map[string]any

// varRe matches a bare variable directive: a dot path, optionally starting
// with @ (for the iteration names @index, @first, @last).
var varRe = regexp.MustCompile(`\{\{\s*(@?[A-Za-z_]\w*(?:\.\w+)*)\s*\}\}`)

// resolve walks a dot-separated path through nested maps. The second return
// is false as soon as a key is missing or the current value is not a map;
// callers decide the fallback (usually: leave the directive untouched).
func resolve(path string, data Context) (any, bool) {
	if data == nil {
		return nil, false
	}
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// substituteVariables is the final pipeline stage: it replaces every bare
// variable directive whose path resolves, and leaves the rest as literal
// text.
func substituteVariables(tmpl string, data Context) string {
	return varRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := varRe.FindStringSubmatch(match)[1]
		v, ok := resolve(path, data)
		if !ok {
			return match
		}
		return formatValue(v)
	})
}

// formatValue renders a resolved value as output text. nil renders empty,
// floats drop trailing zeros, slices join with commas, maps render as
// compact JSON.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = formatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", v)
}

// splitArgs splits a whitespace-separated argument list while respecting
// single- and double-quoted strings.
func splitArgs(raw string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, ch := range raw {
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
			current.WriteRune(ch)
		case inQuote && ch == quoteChar:
			inQuote = false
			current.WriteRune(ch)
		case !inQuote && (ch == ' ' || ch == '\t' || ch == '\n'):
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// splitOnRune splits raw on sep outside of quoted strings. Used for
// transform pipelines (sep '|') and transform argument lists (sep ',').
func splitOnRune(raw string, sep rune) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, ch := range raw {
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
			current.WriteRune(ch)
		case inQuote && ch == quoteChar:
			inQuote = false
			current.WriteRune(ch)
		case !inQuote && ch == sep:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	parts = append(parts, current.String())
	return parts
}

// parseLiteral interprets a token as a literal: quoted string (quotes
// stripped, no further interpretation), number, true/false, or
// null/undefined. The second return is false when the token is not a
// literal.
func parseLiteral(token string) (any, bool) {
	if isQuoted(token) {
		return token[1 : len(token)-1], true
	}
	switch token {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null", "undefined":
		return nil, true
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, true
	}
	return nil, false
}

// resolveToken interprets a helper argument token: literal first, context
// path otherwise. Unresolvable paths become nil.
func resolveToken(token string, data Context) any {
	if v, ok := parseLiteral(token); ok {
		return v
	}
	v, _ := resolve(token, data)
	return v
}

// quoteLiteral renders a value back into the literal grammar, so that a
// nested helper call's result can be spliced into the outer call's argument
// text.
func quoteLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return `"` + t + `"`
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	}
	return formatValue(v)
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
}

// toFloat coerces a value to float64 for the arithmetic and comparison
// helpers. Non-numeric values coerce to 0 (or 1 for true).
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// toSlice coerces a value to []any via reflection. The second return is
// false for non-slice values.
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
