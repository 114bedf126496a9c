package template

import (
	"math"
	"reflect"
	"strings"
)

// expandConditionals resolves every outermost #if and #unless block. The
// chosen branch is re-run through the block sub-pipeline, so conditionals
// and loops nest freely up to the depth bound; past the bound the template
// is returned unexpanded rather than erroring.
func (e *Engine) expandConditionals(tmpl string, data Context, st *renderState, depth int) (string, error) {
	if depth >= maxBlockDepth {
		return tmpl, nil
	}
	out := tmpl
	for _, kind := range []blockKind{blockIf, blockUnless} {
		blocks := findOutermostBlocks(out, kind)
		// Replace back to front so earlier offsets stay valid.
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			truthy := e.evalCondition(b.expr, data)
			if kind == blockUnless {
				truthy = !truthy
			}

			var branch string
			switch {
			case truthy:
				branch = b.body
			case b.hasElse:
				branch = b.elseBody
			}

			expanded, err := e.renderFragment(branch, data, st, depth+1)
			if err != nil {
				return "", err
			}
			out = out[:b.start] + expanded + out[b.end:]
		}
	}
	return out, nil
}

// evalCondition evaluates a control expression: a parenthesized helper call
// like (eq status "active"), or a plain context path. An unknown helper name
// falls back to path resolution rather than erroring.
func (e *Engine) evalCondition(expr string, data Context) bool {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		if v, ok := e.evalExpression(expr[1:len(expr)-1], data); ok {
			return isTruthy(v)
		}
	}
	v, _ := resolve(expr, data)
	return isTruthy(v)
}

// isTruthy applies the truthiness rules in priority order: nil is false,
// booleans are themselves, strings are non-empty, numbers are nonzero and
// not NaN, lists are non-empty, maps have at least one key. Anything else
// is true.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case map[string]any:
		return len(t) > 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}
