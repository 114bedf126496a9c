package template

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TransformFunc is a named function applied in a pipe chain like
// {{ value | name:arg1,arg2 }}. Per-stage arguments are literals, never
// context paths. Returning an error makes the engine log a warning and pass
// the incoming value through unchanged.
type TransformFunc func(value any, args ...any) (any, error)

// Transform defaults.
const (
	defaultTruncateLength = 50
	truncateSuffix        = "..."
)

// expandTransforms resolves pipe-chain directives: the head is resolved as a
// variable path (or literal), then each stage consumes the previous stage's
// output left to right.
func (e *Engine) expandTransforms(tmpl string, data Context) string {
	return directiveRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		if inner == "" {
			return match
		}
		switch inner[0] {
		case '#', '/', '>':
			return match
		}
		stages := splitOnRune(inner, '|')
		if len(stages) < 2 {
			return match
		}

		head := strings.TrimSpace(stages[0])
		value, ok := parseLiteral(head)
		if !ok {
			value, _ = resolve(head, data)
		}
		for _, stage := range stages[1:] {
			value = e.applyTransform(strings.TrimSpace(stage), value)
		}
		return formatValue(value)
	})
}

// applyTransform applies one pipeline stage, "name" or "name:arg1,arg2".
// Unknown transforms and transform errors pass the value through unchanged.
func (e *Engine) applyTransform(stage string, value any) any {
	name, rawArgs, _ := strings.Cut(stage, ":")
	name = strings.TrimSpace(name)

	var args []any
	if rawArgs != "" {
		for _, raw := range splitOnRune(rawArgs, ',') {
			raw = strings.TrimSpace(raw)
			if v, ok := parseLiteral(raw); ok {
				args = append(args, v)
			} else {
				args = append(args, raw)
			}
		}
	}

	fn, ok := e.transforms[name]
	if !ok {
		slog.Warn("unknown transform, passing value through",
			slog.String("transform", name))
		return value
	}
	out, err := fn(value, args...)
	if err != nil {
		slog.Warn("transform failed, passing value through",
			slog.String("transform", name),
			slog.Any("error", err))
		return value
	}
	return out
}

// builtinTransforms returns the transform registry the engine starts with.
func builtinTransforms(e *Engine) map[string]TransformFunc {
	t := map[string]TransformFunc{}

	// String case and format.
	t["upper"] = stringTransform(strings.ToUpper)
	t["uppercase"] = t["upper"]
	t["lower"] = stringTransform(strings.ToLower)
	t["lowercase"] = t["lower"]
	t["capitalize"] = stringTransform(capitalize)
	t["trim"] = stringTransform(strings.TrimSpace)
	t["slug"] = stringTransform(slugify)
	t["camelCase"] = stringTransform(toCamelCase)
	t["snakeCase"] = stringTransform(toSnakeCase)
	t["kebabCase"] = stringTransform(toKebabCase)
	t["truncate"] = func(v any, args ...any) (any, error) {
		s := stringValue(v)
		n := defaultTruncateLength
		if len(args) > 0 {
			n = int(toFloat(args[0]))
		}
		if n < 0 || len(s) <= n {
			return s, nil
		}
		return s[:n] + truncateSuffix, nil
	}

	// Numeric formatting.
	t["toFixed"] = func(v any, args ...any) (any, error) {
		digits := 2
		if len(args) > 0 {
			digits = int(toFloat(args[0]))
		}
		return strconv.FormatFloat(toFloat(v), 'f', digits, 64), nil
	}
	t["toPrecision"] = func(v any, args ...any) (any, error) {
		digits := 6
		if len(args) > 0 {
			digits = int(toFloat(args[0]))
		}
		return strconv.FormatFloat(toFloat(v), 'g', digits, 64), nil
	}

	// Array slicing and shaping.
	t["first"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok || len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}
	t["last"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok || len(items) == 0 {
			return nil, nil
		}
		return items[len(items)-1], nil
	}
	t["take"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		n := clampIndex(intArg(args, 0, 1), len(items))
		return items[:n], nil
	}
	t["skip"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		n := clampIndex(intArg(args, 0, 0), len(items))
		return items[n:], nil
	}
	t["slice"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		start := clampIndex(intArg(args, 0, 0), len(items))
		end := clampIndex(intArg(args, 1, len(items)), len(items))
		if start > end {
			return []any{}, nil
		}
		return items[start:end], nil
	}
	t["filter"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		key := stringValue(arg(args, 0))
		var out []any
		for _, item := range items {
			keep := isTruthy(item)
			if key != "" {
				m, isMap := item.(map[string]any)
				keep = isMap && isTruthy(m[key])
			}
			if keep {
				out = append(out, item)
			}
		}
		return out, nil
	}
	t["map"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		key := stringValue(arg(args, 0))
		out := make([]any, len(items))
		for i, item := range items {
			if m, isMap := item.(map[string]any); isMap {
				out[i] = m[key]
			}
		}
		return out, nil
	}
	t["sortBy"] = func(v any, args ...any) (any, error) {
		items, ok := toSlice(v)
		if !ok {
			return v, nil
		}
		key := stringValue(arg(args, 0))
		out := make([]any, len(items))
		copy(out, items)
		sort.SliceStable(out, func(i, j int) bool {
			return formatValue(fieldOf(out[i], key)) < formatValue(fieldOf(out[j], key))
		})
		return out, nil
	}
	t["reverse"] = func(v any, args ...any) (any, error) {
		if items := reverseSlice(v); items != nil {
			return items, nil
		}
		return v, nil
	}
	t["sort"] = func(v any, args ...any) (any, error) {
		if items := sortSlice(v); items != nil {
			return items, nil
		}
		return v, nil
	}
	t["unique"] = func(v any, args ...any) (any, error) {
		if items := uniqueSlice(v); items != nil {
			return items, nil
		}
		return v, nil
	}

	// Date formatting.
	t["date"] = func(v any, args ...any) (any, error) {
		layout := e.dateFormat
		if len(args) > 0 {
			layout = stringValue(args[0])
		}
		tm, ok := toTime(v)
		if !ok {
			return nil, fmt.Errorf("date: cannot interpret %v as a time", v)
		}
		return tm.Format(layout), nil
	}

	// Structural.
	t["json"] = func(v any, args ...any) (any, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return string(b), nil
	}
	t["yaml"] = func(v any, args ...any) (any, error) {
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
	t["csv"] = toCSV

	// Encoding.
	t["urlEncode"] = stringTransform(url.QueryEscape)
	t["urlDecode"] = func(v any, args ...any) (any, error) {
		s, err := url.QueryUnescape(stringValue(v))
		if err != nil {
			return nil, fmt.Errorf("urlDecode: %w", err)
		}
		return s, nil
	}
	t["base64Encode"] = func(v any, args ...any) (any, error) {
		return base64.StdEncoding.EncodeToString([]byte(stringValue(v))), nil
	}
	t["base64Decode"] = func(v any, args ...any) (any, error) {
		b, err := base64.StdEncoding.DecodeString(stringValue(v))
		if err != nil {
			return nil, fmt.Errorf("base64Decode: %w", err)
		}
		return string(b), nil
	}
	t["escape"] = stringTransform(html.EscapeString)
	t["unescape"] = stringTransform(html.UnescapeString)

	// Utilities.
	t["default"] = func(v any, args ...any) (any, error) {
		if v == nil || v == "" {
			return arg(args, 0), nil
		}
		return v, nil
	}
	t["ternary"] = func(v any, args ...any) (any, error) {
		if isTruthy(v) {
			return arg(args, 0), nil
		}
		return arg(args, 1), nil
	}
	t["typeof"] = func(v any, args ...any) (any, error) { return typeName(v), nil }
	t["length"] = func(v any, args ...any) (any, error) { return lengthOf(v), nil }
	t["keys"] = func(v any, args ...any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return []any{}, nil
		}
		return sortedKeys(m), nil
	}
	t["values"] = func(v any, args ...any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return []any{}, nil
		}
		var out []any
		for _, k := range sortedKeys(m) {
			out = append(out, m[k.(string)])
		}
		return out, nil
	}
	t["entries"] = func(v any, args ...any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return []any{}, nil
		}
		var out []any
		for _, k := range sortedKeys(m) {
			out = append(out, []any{k, m[k.(string)]})
		}
		return out, nil
	}

	return t
}

// stringValue coerces a transform input to text; nil becomes "".
func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return formatValue(v)
}

func stringTransform(op func(string) string) TransformFunc {
	return func(v any, args ...any) (any, error) {
		return op(stringValue(v)), nil
	}
}

func intArg(args []any, i, fallback int) int {
	if i < len(args) {
		return int(toFloat(args[i]))
	}
	return fallback
}

func fieldOf(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return v
}

func sortedKeys(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

// toCSV renders a slice of maps as header-plus-rows CSV, a slice of scalars
// as one comma-separated line, and anything else as plain text.
func toCSV(v any, args ...any) (any, error) {
	items, ok := toSlice(v)
	if !ok {
		return stringValue(v), nil
	}
	if len(items) == 0 {
		return "", nil
	}

	if first, ok := items[0].(map[string]any); ok {
		header := sortedKeys(first)
		var sb strings.Builder
		for i, h := range header {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(csvField(formatValue(h)))
		}
		for _, item := range items {
			sb.WriteByte('\n')
			m, _ := item.(map[string]any)
			for i, h := range header {
				if i > 0 {
					sb.WriteByte(',')
				}
				if m != nil {
					sb.WriteString(csvField(formatValue(m[h.(string)])))
				}
			}
		}
		return sb.String(), nil
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = csvField(formatValue(item))
	}
	return strings.Join(parts, ","), nil
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float32, float64:
		return "number"
	case map[string]any:
		return "object"
	}
	if _, ok := toSlice(v); ok {
		return "array"
	}
	return "object"
}

// slugify lowercases and replaces every non-alphanumeric run with a single
// hyphen.
func slugify(s string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// splitWords splits an identifier-ish string into words on separators and
// lower-to-upper case boundaries.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		case prev != 0 && isLowerRune(prev) && isUpperRune(r):
			words = append(words, current.String())
			current.Reset()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

func isLowerRune(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpperRune(r rune) bool { return r >= 'A' && r <= 'Z' }

func toCamelCase(s string) string {
	words := splitWords(s)
	var sb strings.Builder
	for i, w := range words {
		if i == 0 {
			sb.WriteString(strings.ToLower(w))
			continue
		}
		sb.WriteString(capitalize(strings.ToLower(w)))
	}
	return sb.String()
}

func toSnakeCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

func toKebabCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "-")
}
