package template

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// builtinHelpers returns the helper registry the engine starts with. Helpers
// that need engine settings (date formatting) close over the engine.
func builtinHelpers(e *Engine) map[string]HelperFunc {
	h := map[string]HelperFunc{}

	// Comparison and logic.
	h["eq"] = func(args ...any) (any, error) { return equalValues(arg(args, 0), arg(args, 1)), nil }
	h["neq"] = func(args ...any) (any, error) { return !equalValues(arg(args, 0), arg(args, 1)), nil }
	h["lt"] = numericCompare(func(a, b float64) bool { return a < b })
	h["lte"] = numericCompare(func(a, b float64) bool { return a <= b })
	h["gt"] = numericCompare(func(a, b float64) bool { return a > b })
	h["gte"] = numericCompare(func(a, b float64) bool { return a >= b })
	h["and"] = func(args ...any) (any, error) {
		for _, a := range args {
			if !isTruthy(a) {
				return false, nil
			}
		}
		return len(args) > 0, nil
	}
	h["or"] = func(args ...any) (any, error) {
		for _, a := range args {
			if isTruthy(a) {
				return true, nil
			}
		}
		return false, nil
	}
	h["not"] = func(args ...any) (any, error) { return !isTruthy(arg(args, 0)), nil }

	// Arithmetic.
	h["add"] = numericOp(func(a, b float64) float64 { return a + b })
	h["subtract"] = numericOp(func(a, b float64) float64 { return a - b })
	h["multiply"] = numericOp(func(a, b float64) float64 { return a * b })
	h["divide"] = numericOp(func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	})
	h["mod"] = numericOp(func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return math.Mod(a, b)
	})
	h["round"] = unaryNumeric(math.Round)
	h["floor"] = unaryNumeric(math.Floor)
	h["ceil"] = unaryNumeric(math.Ceil)
	h["abs"] = unaryNumeric(math.Abs)
	h["min"] = func(args ...any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		m := toFloat(args[0])
		for _, a := range args[1:] {
			m = math.Min(m, toFloat(a))
		}
		return m, nil
	}
	h["max"] = func(args ...any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		m := toFloat(args[0])
		for _, a := range args[1:] {
			m = math.Max(m, toFloat(a))
		}
		return m, nil
	}

	// String operations.
	h["uppercase"] = stringOp(strings.ToUpper)
	h["lowercase"] = stringOp(strings.ToLower)
	h["capitalize"] = stringOp(capitalize)
	h["trim"] = stringOp(strings.TrimSpace)
	h["replace"] = func(args ...any) (any, error) {
		return strings.ReplaceAll(formatValue(arg(args, 0)), formatValue(arg(args, 1)), formatValue(arg(args, 2))), nil
	}
	h["substring"] = func(args ...any) (any, error) {
		s := formatValue(arg(args, 0))
		start := clampIndex(int(toFloat(arg(args, 1))), len(s))
		end := len(s)
		if len(args) > 2 {
			end = clampIndex(int(toFloat(args[2])), len(s))
		}
		if start > end {
			return "", nil
		}
		return s[start:end], nil
	}
	h["length"] = func(args ...any) (any, error) { return lengthOf(arg(args, 0)), nil }
	h["contains"] = func(args ...any) (any, error) {
		return strings.Contains(formatValue(arg(args, 0)), formatValue(arg(args, 1))), nil
	}
	h["startsWith"] = func(args ...any) (any, error) {
		return strings.HasPrefix(formatValue(arg(args, 0)), formatValue(arg(args, 1))), nil
	}
	h["endsWith"] = func(args ...any) (any, error) {
		return strings.HasSuffix(formatValue(arg(args, 0)), formatValue(arg(args, 1))), nil
	}
	h["split"] = func(args ...any) (any, error) {
		sep := ","
		if len(args) > 1 {
			sep = formatValue(args[1])
		}
		parts := strings.Split(formatValue(arg(args, 0)), sep)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	}
	h["join"] = func(args ...any) (any, error) {
		sep := ","
		if len(args) > 1 {
			sep = formatValue(args[1])
		}
		items, ok := toSlice(arg(args, 0))
		if !ok {
			return formatValue(arg(args, 0)), nil
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, sep), nil
	}

	// Array operations.
	h["first"] = func(args ...any) (any, error) {
		items, ok := toSlice(arg(args, 0))
		if !ok || len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}
	h["last"] = func(args ...any) (any, error) {
		items, ok := toSlice(arg(args, 0))
		if !ok || len(items) == 0 {
			return nil, nil
		}
		return items[len(items)-1], nil
	}
	h["reverse"] = func(args ...any) (any, error) { return reverseSlice(arg(args, 0)), nil }
	h["sort"] = func(args ...any) (any, error) { return sortSlice(arg(args, 0)), nil }
	h["unique"] = func(args ...any) (any, error) { return uniqueSlice(arg(args, 0)), nil }

	// Date and time.
	h["now"] = func(args ...any) (any, error) {
		return time.Now().Format(e.dateFormat), nil
	}
	h["date"] = func(args ...any) (any, error) {
		layout := e.dateFormat
		if len(args) > 1 {
			layout = formatValue(args[1])
		}
		t, ok := toTime(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("date: cannot interpret %v as a time", arg(args, 0))
		}
		return t.Format(layout), nil
	}

	// Type checks.
	h["isArray"] = typeCheck(func(v any) bool { _, ok := toSlice(v); return ok })
	h["isObject"] = typeCheck(func(v any) bool { _, ok := v.(map[string]any); return ok })
	h["isString"] = typeCheck(func(v any) bool { _, ok := v.(string); return ok })
	h["isNumber"] = typeCheck(isNumber)
	h["isBoolean"] = typeCheck(func(v any) bool { _, ok := v.(bool); return ok })
	h["isDefined"] = typeCheck(func(v any) bool { return v != nil })
	h["isUndefined"] = typeCheck(func(v any) bool { return v == nil })
	h["isNull"] = typeCheck(func(v any) bool { return v == nil })
	h["isEmpty"] = typeCheck(isEmptyValue)

	// Utilities.
	h["default"] = func(args ...any) (any, error) {
		v := arg(args, 0)
		if v == nil || v == "" {
			return arg(args, 1), nil
		}
		return v, nil
	}
	h["json"] = func(args ...any) (any, error) {
		b, err := json.MarshalIndent(arg(args, 0), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return string(b), nil
	}
	h["parseJson"] = func(args ...any) (any, error) {
		var v any
		if err := json.Unmarshal([]byte(formatValue(arg(args, 0))), &v); err != nil {
			return nil, fmt.Errorf("parseJson: %w", err)
		}
		return v, nil
	}

	return h
}

// arg returns args[i] or nil, so helpers tolerate missing arguments.
func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func numericCompare(cmp func(a, b float64) bool) HelperFunc {
	return func(args ...any) (any, error) {
		return cmp(toFloat(arg(args, 0)), toFloat(arg(args, 1))), nil
	}
}

func numericOp(op func(a, b float64) float64) HelperFunc {
	return func(args ...any) (any, error) {
		return op(toFloat(arg(args, 0)), toFloat(arg(args, 1))), nil
	}
}

func unaryNumeric(op func(float64) float64) HelperFunc {
	return func(args ...any) (any, error) {
		return op(toFloat(arg(args, 0))), nil
	}
}

func stringOp(op func(string) string) HelperFunc {
	return func(args ...any) (any, error) {
		return op(formatValue(arg(args, 0))), nil
	}
}

func typeCheck(pred func(any) bool) HelperFunc {
	return func(args ...any) (any, error) {
		return pred(arg(args, 0)), nil
	}
}

// equalValues compares by formatted representation, so numbers compare
// loosely against numeric strings the way template authors expect.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return formatValue(a) == formatValue(b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float32, float64:
		return true
	}
	return false
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	}
	if items, ok := toSlice(v); ok {
		return len(items) == 0
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func lengthOf(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return len(t)
	case map[string]any:
		return len(t)
	}
	if items, ok := toSlice(v); ok {
		return len(items)
	}
	return len(formatValue(v))
}

func reverseSlice(v any) []any {
	items, ok := toSlice(v)
	if !ok {
		return nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}

// sortSlice sorts numerically when every element is a number, otherwise by
// formatted string.
func sortSlice(v any) []any {
	items, ok := toSlice(v)
	if !ok {
		return nil
	}
	out := make([]any, len(items))
	copy(out, items)

	allNumeric := len(out) > 0
	for _, item := range out {
		if !isNumber(item) {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		sort.SliceStable(out, func(i, j int) bool { return toFloat(out[i]) < toFloat(out[j]) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return formatValue(out[i]) < formatValue(out[j]) })
	}
	return out
}

func uniqueSlice(v any) []any {
	items, ok := toSlice(v)
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(items))
	var out []any
	for _, item := range items {
		key := formatValue(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// toTime interprets a value as a time: time.Time itself, an RFC 3339 string,
// or a Unix-seconds number.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	case int, int64, float64, float32:
		return time.Unix(int64(toFloat(t)), 0).UTC(), true
	}
	return time.Time{}, false
}
