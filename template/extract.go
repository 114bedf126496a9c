package template

import (
	"path/filepath"
	"strings"
)

// ValidationResult reports which variable paths a template needs that the
// supplied context does not provide.
type ValidationResult struct {
	Valid   bool
	Missing []string
}

// ExtractVariables statically scans a template and returns every distinct
// context path it could read, in first-seen order: bare variables, transform
// heads, block control expressions (including helper-call arguments),
// helper arguments, and partial context expressions. The scan follows
// resolvable {{#include}} files; iteration-only names (this, @index, @first,
// @last) are excluded.
func (e *Engine) ExtractVariables(tmpl string) []string {
	seen := make(map[string]bool)
	var out []string
	e.collectVariables(tmpl, seen, &out, make(map[string]bool), 0)
	return out
}

// ValidateContext reports whether data provides every path the template
// reads. Missing lists the paths that resolve to nothing.
func (e *Engine) ValidateContext(tmpl string, data Context) *ValidationResult {
	result := &ValidationResult{Valid: true}
	for _, path := range e.ExtractVariables(tmpl) {
		if _, ok := resolve(path, data); !ok {
			result.Missing = append(result.Missing, path)
			result.Valid = false
		}
	}
	return result
}

func (e *Engine) collectVariables(tmpl string, seen map[string]bool, out *[]string, visited map[string]bool, depth int) {
	if depth > maxIncludeDepth {
		return
	}

	record := func(path string) {
		if path == "" || seen[path] || isIterationName(path) {
			return
		}
		seen[path] = true
		*out = append(*out, path)
	}

	for _, m := range directiveRe.FindAllStringSubmatch(tmpl, -1) {
		inner := strings.TrimSpace(m[1])
		switch {
		case inner == "" || inner == "else":
		case strings.HasPrefix(inner, "#include"):
			// Handled below via includeRe, to honor quoting.
		case strings.HasPrefix(inner, "/"):
		case strings.HasPrefix(inner, ">"):
			if pm := partialRe.FindStringSubmatch(m[0]); pm != nil && strings.TrimSpace(pm[2]) != "" {
				record(pathToken(strings.TrimSpace(pm[2])))
			}
		case strings.HasPrefix(inner, "#"):
			// #each, #if, #unless: the control expression.
			if _, rest, ok := strings.Cut(inner, " "); ok {
				collectExpr(strings.TrimSpace(rest), e.helpers, record)
			}
		case len(splitOnRune(inner, '|')) > 1:
			head := strings.TrimSpace(splitOnRune(inner, '|')[0])
			record(pathToken(head))
		default:
			collectExpr(inner, e.helpers, record)
		}
	}

	// Follow resolvable includes.
	for _, m := range includeRe.FindAllStringSubmatch(tmpl, -1) {
		path := m[1]
		if path == "" {
			path = m[2]
		}
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(e.includeRoot, abs)
		}
		if resolved, err := filepath.Abs(abs); err == nil {
			abs = resolved
		}
		if visited[abs] {
			continue
		}
		visited[abs] = true
		content, err := e.reader.ReadFile(abs)
		if err != nil {
			continue
		}
		e.collectVariables(string(content), seen, out, visited, depth+1)
	}
}

// collectExpr records the context paths inside a directive expression: a
// bare path, or a (possibly nested) helper call whose non-literal arguments
// are paths. Helper names themselves are not variables.
func collectExpr(expr string, helpers map[string]HelperFunc, record func(string)) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return
	}
	cleaned := strings.NewReplacer("(", " ", ")", " ").Replace(expr)
	tokens := splitArgs(cleaned)
	for _, token := range tokens {
		if _, isLiteral := parseLiteral(token); isLiteral {
			continue
		}
		if _, isHelper := helpers[token]; isHelper && len(tokens) > 1 {
			// In a multi-token expression a registered-helper name is
			// the call target, not a variable.
			continue
		}
		if p := pathToken(token); p != "" {
			record(p)
		}
	}
}

// pathToken validates that a token looks like a context path.
func pathToken(token string) string {
	if token == "" {
		return ""
	}
	for i, part := range strings.Split(token, ".") {
		if part == "" {
			return ""
		}
		if i == 0 && strings.HasPrefix(part, "@") {
			part = part[1:]
		}
		for j, ch := range part {
			isAlpha := ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
			isDigit := ch >= '0' && ch <= '9'
			if !isAlpha && !(isDigit && j > 0) {
				return ""
			}
		}
	}
	return token
}

// isIterationName reports whether a path is defined only inside an
// iteration context.
func isIterationName(path string) bool {
	if path == "this" || strings.HasPrefix(path, "this.") {
		return true
	}
	switch path {
	case "@index", "@first", "@last":
		return true
	}
	return false
}
