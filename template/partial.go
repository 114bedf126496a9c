package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// partialRe matches {{> name}} or {{> name contextExpr}}.
var partialRe = regexp.MustCompile(`\{\{>\s*([A-Za-z_][\w.-]*)(?:\s+([^{}]+?))?\s*\}\}`)

// renderBodyFunc renders a partial's body through the remaining pipeline
// stages against the chosen context. The partial processor owns only partial
// expansion; everything else is the caller's.
type renderBodyFunc func(body string, data Context) (string, error)

// expandPartials resolves {{> name}} directives from the partial registry.
// An optional second token is resolved against the current context; when it
// yields a map, that map becomes the context for the partial's body.
//
// Unknown partial names fail soft and stay in the output. Cycles and nesting
// past the depth bound fail fast.
func (e *Engine) expandPartials(tmpl string, data Context, st *renderState, depth int) (string, error) {
	return e.expandPartialsWith(tmpl, data, st, e.renderPartialBody(st), depth)
}

func (e *Engine) expandPartialsWith(tmpl string, data Context, st *renderState, render renderBodyFunc, depth int) (string, error) {
	if depth > maxPartialDepth {
		return "", fmt.Errorf("%w (limit %d)", ErrMaxPartialDepth, maxPartialDepth)
	}

	out := tmpl
	for _, m := range partialRe.FindAllStringSubmatch(tmpl, -1) {
		full, name, ctxExpr := m[0], m[1], strings.TrimSpace(m[2])

		body, ok := e.partials[name]
		if !ok {
			slog.Warn("unknown partial, leaving directive unexpanded",
				slog.String("partial", name))
			continue
		}

		pctx := data
		if ctxExpr != "" {
			if v, ok := resolve(ctxExpr, data); ok {
				if m, ok := v.(map[string]any); ok {
					pctx = m
				}
			}
		}

		rendered, err := e.expandOnePartial(name, body, pctx, st, render, depth)
		if err != nil {
			return "", err
		}
		out = strings.Replace(out, full, rendered, 1)
	}
	return out, nil
}

// expandOnePartial expands a single partial body: nested partial references
// first, then the caller-supplied render callback for the remaining stages.
// The cycle guard covers the full extent of the expansion and is released on
// exit, so sibling references to the same partial stay legal.
func (e *Engine) expandOnePartial(name, body string, data Context, st *renderState, render renderBodyFunc, depth int) (string, error) {
	if _, active := st.renderingPartials[name]; active {
		return "", fmt.Errorf("%w: %s", ErrCircularPartial, name)
	}
	st.renderingPartials[name] = struct{}{}
	defer delete(st.renderingPartials, name)

	nested, err := e.expandPartialsWith(body, data, st, render, depth+1)
	if err != nil {
		return "", err
	}
	return render(nested, data)
}

// renderPartialBody returns the render callback used for partial bodies:
// conditionals, loops, helpers, transforms, and variable substitution
// against the partial's context.
func (e *Engine) renderPartialBody(st *renderState) renderBodyFunc {
	return func(body string, data Context) (string, error) {
		out, err := e.expandConditionals(body, data, st, 0)
		if err != nil {
			return "", err
		}
		out, err = e.expandEachBlocks(out, data, st, 0)
		if err != nil {
			return "", err
		}
		out = e.expandHelpers(out, data)
		out = e.expandTransforms(out, data)
		return substituteVariables(out, data), nil
	}
}
