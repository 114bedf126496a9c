package template

import (
	"log/slog"
	"regexp"
	"strings"
)

// HelperFunc is a named function invocable inline via {{name args}}.
// Returning an error makes the engine log a warning and leave the directive
// as literal text; it never aborts the render.
type HelperFunc func(args ...any) (any, error)

var (
	// directiveRe matches any {{...}} directive for candidate scanning.
	directiveRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

	// identRe matches a leading helper or variable identifier.
	identRe = regexp.MustCompile(`^[A-Za-z_]\w*`)

	// parenGroupRe matches an innermost parenthesized sub-call.
	parenGroupRe = regexp.MustCompile(`\([^()]*\)`)
)

// expandHelpers resolves inline helper invocations, including nested
// parenthesized calls like {{uppercase(capitalize(name))}}. The template is
// re-scanned up to maxHelperPasses times so chained results resolve; a pass
// that changes nothing stops the loop early.
func (e *Engine) expandHelpers(tmpl string, data Context) string {
	out := tmpl
	for pass := 0; pass < maxHelperPasses; pass++ {
		next := directiveRe.ReplaceAllStringFunc(out, func(match string) string {
			inner := strings.TrimSpace(match[2 : len(match)-2])
			if !e.isHelperDirective(inner) {
				return match
			}
			// A bare name that resolves in context is a variable, even
			// when a zero-arg helper shares the name.
			if identRe.FindString(inner) == inner {
				if _, resolves := resolve(inner, data); resolves {
					return match
				}
			}
			v, ok := e.evalExpression(inner, data)
			if !ok {
				return match
			}
			return formatValue(v)
		})
		if next == out {
			break
		}
		out = next
	}
	return out
}

// isHelperDirective reports whether directive text is a call to a registered
// helper. Block tags, partial references, transform chains, and plain
// variables are left for their own pipeline stages.
func (e *Engine) isHelperDirective(inner string) bool {
	if inner == "" || inner == "else" {
		return false
	}
	switch inner[0] {
	case '#', '/', '>':
		return false
	}
	if len(splitOnRune(inner, '|')) > 1 {
		return false
	}
	name := identRe.FindString(inner)
	if name == "" {
		return false
	}
	if _, ok := e.helpers[name]; !ok {
		return false
	}
	rest := inner[len(name):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

// evalExpression evaluates helper-call text. Parenthesized sub-calls are
// detected and pre-expanded innermost-first, splicing each result back into
// the argument text as a literal, then the outer call is parsed and
// dispatched.
func (e *Engine) evalExpression(text string, data Context) (any, bool) {
	for i := 0; i < maxHelperPasses && strings.ContainsRune(text, '('); i++ {
		loc := parenGroupRe.FindStringIndex(text)
		if loc == nil {
			break
		}
		content := strings.TrimSpace(text[loc[0]+1 : loc[1]-1])
		v, ok := e.evalParenGroup(content, data)
		if !ok {
			return nil, false
		}
		text = text[:loc[0]] + " " + quoteLiteral(v) + " " + text[loc[1]:]
	}
	return e.evalCall(strings.TrimSpace(text), data)
}

// evalParenGroup evaluates one parenthesized group: a nested helper call, or
// a bare path/literal like the (name) in {{uppercase(capitalize(name))}}.
func (e *Engine) evalParenGroup(content string, data Context) (any, bool) {
	if v, ok := e.evalCall(content, data); ok {
		return v, true
	}
	tokens := splitArgs(content)
	if len(tokens) == 1 {
		return resolveToken(tokens[0], data), true
	}
	return nil, false
}

// evalCall parses "name arg1 arg2 ..." and dispatches to the registered
// helper. Arguments may be quoted/numeric/boolean/null literals or context
// paths. Returns false for unknown helpers and for helper errors.
func (e *Engine) evalCall(expr string, data Context) (any, bool) {
	tokens := splitArgs(expr)
	if len(tokens) == 0 {
		return nil, false
	}
	fn, ok := e.helpers[tokens[0]]
	if !ok {
		return nil, false
	}
	args := make([]any, len(tokens)-1)
	for i, t := range tokens[1:] {
		args[i] = resolveToken(t, data)
	}
	v, err := fn(args...)
	if err != nil {
		slog.Warn("helper failed, leaving directive unexpanded",
			slog.String("helper", tokens[0]),
			slog.Any("error", err))
		return nil, false
	}
	return v, true
}
