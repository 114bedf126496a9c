package template

import (
	"log/slog"
	"strings"
)

// expandEachBlocks resolves every outermost #each block against the current
// context. Past the depth bound the template is returned unexpanded.
func (e *Engine) expandEachBlocks(tmpl string, data Context, st *renderState, depth int) (string, error) {
	if depth >= maxBlockDepth {
		return tmpl, nil
	}
	out := tmpl
	blocks := findOutermostBlocks(out, blockEach)
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		expanded, err := e.expandEach(b.expr, b.body, data, st, depth)
		if err != nil {
			return "", err
		}
		out = out[:b.start] + expanded + out[b.end:]
	}
	return out, nil
}

// expandEach iterates the list at arrayPath, rendering the body once per
// item with a derived iteration context, and concatenates the results in
// index order. A path that does not resolve to a list expands to nothing.
func (e *Engine) expandEach(arrayPath, body string, data Context, st *renderState, depth int) (string, error) {
	v, _ := resolve(arrayPath, data)
	items, ok := toSlice(v)
	if !ok {
		slog.Debug("each over non-list value, expanding to empty",
			slog.String("path", arrayPath))
		return "", nil
	}

	var sb strings.Builder
	n := len(items)
	for i, item := range items {
		frag, err := e.renderFragment(body, iterationContext(data, item, i, n), st, depth+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(frag)
	}
	return sb.String(), nil
}

// iterationContext derives the per-item context: a shallow copy of the
// enclosing context plus this/@index/@first/@last, with a map item's own
// keys merged in (shadowing same-named outer keys). The parent context is
// never mutated, so iteration names cannot leak out of the loop.
func iterationContext(data Context, item any, i, n int) Context {
	iter := make(Context, len(data)+4)
	for k, v := range data {
		iter[k] = v
	}
	iter["this"] = item
	iter["@index"] = i
	iter["@first"] = i == 0
	iter["@last"] = i == n-1
	if m, ok := item.(map[string]any); ok {
		for k, v := range m {
			iter[k] = v
		}
	}
	return iter
}

// renderFragment runs a block body through the sub-pipeline: nested loops,
// then conditionals, then partials, helpers, transforms, and finally literal
// variable substitution, all against the supplied context.
func (e *Engine) renderFragment(tmpl string, data Context, st *renderState, depth int) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	out, err := e.expandEachBlocks(tmpl, data, st, depth)
	if err != nil {
		return "", err
	}
	out, err = e.expandConditionals(out, data, st, depth)
	if err != nil {
		return "", err
	}
	out, err = e.expandPartials(out, data, st, 0)
	if err != nil {
		return "", err
	}
	out = e.expandHelpers(out, data)
	out = e.expandTransforms(out, data)
	return substituteVariables(out, data), nil
}
