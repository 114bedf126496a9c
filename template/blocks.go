package template

import (
	"regexp"
	"strings"
)

// Recursion and re-scan bounds. These turn runaway nesting from malformed or
// adversarial templates into bounded terminations instead of stack overflows.
const (
	maxBlockDepth   = 10
	maxIncludeDepth = 10
	maxPartialDepth = 10
	maxHelperPasses = 10
)

// blockKind identifies a paired open/close directive.
type blockKind string

const (
	blockEach   blockKind = "each"
	blockIf     blockKind = "if"
	blockUnless blockKind = "unless"
)

// block is a transient parse result for one balanced block: the full span
// from opening tag through matching closing tag, the control expression, and
// the body split at a top-level {{else}} when one exists.
type block struct {
	start    int // offset of the opening tag
	end      int // offset just past the closing tag
	expr     string
	body     string
	elseBody string
	hasElse  bool
}

func (b block) fullSpan(tmpl string) string { return tmpl[b.start:b.end] }

// tagRe matches any single directive tag.
var tagRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// findOutermostBlocks scans left to right for balanced blocks of one kind.
// Nested blocks of the same kind are tracked with a depth counter so the
// span always ends at the matching closer, not the first one. An opener with
// no matching closer is skipped and stays literal text.
//
// For if/unless the scan does not treat openers inside an #each body as
// outermost: those conditionals depend on loop-item context and are resolved
// per iteration by the each evaluator instead.
func findOutermostBlocks(tmpl string, kind blockKind) []block {
	var eachSpans []block
	if kind != blockEach {
		eachSpans = findOutermostBlocks(tmpl, blockEach)
	}

	var blocks []block
	pos := 0
	for pos < len(tmpl) {
		openStart, openEnd, expr, ok := findOpenTag(tmpl, kind, pos)
		if !ok {
			break
		}
		if insideAny(eachSpans, openStart) {
			pos = openEnd
			continue
		}
		blk, ok := matchBlock(tmpl, kind, openStart, openEnd, expr)
		if !ok {
			// No matching closer: leniency, leave as literal text.
			pos = openEnd
			continue
		}
		blocks = append(blocks, blk)
		pos = blk.end
	}
	return blocks
}

// findOpenTag locates the next opening tag of the given kind at or after
// from. Returns the tag's span and trimmed control expression.
func findOpenTag(tmpl string, kind blockKind, from int) (start, end int, expr string, ok bool) {
	prefix := "{{#" + string(kind)
	for i := from; i < len(tmpl); {
		idx := strings.Index(tmpl[i:], prefix)
		if idx < 0 {
			return 0, 0, "", false
		}
		start = i + idx
		loc := tagRe.FindStringIndex(tmpl[start:])
		if loc == nil || loc[0] != 0 {
			i = start + len(prefix)
			continue
		}
		end = start + loc[1]
		inner := tmpl[start+2 : end-2]
		rest := inner[len(prefix)-2:]
		// Reject prefix collisions like {{#include ...}} matching "#in".
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			i = start + len(prefix)
			continue
		}
		return start, end, strings.TrimSpace(rest), true
	}
	return 0, 0, "", false
}

// matchBlock walks forward from an opening tag, balancing same-kind openers
// and closers, recording a single top-level {{else}} for if/unless. Nested
// #each spans are jumped over during an if/unless walk so their contents
// cannot misattribute an else marker.
func matchBlock(tmpl string, kind blockKind, openStart, openEnd int, expr string) (block, bool) {
	closeTag := "/" + string(kind)
	depth := 1
	elseStart, elseEnd := -1, -1

	i := openEnd
	for i < len(tmpl) {
		loc := tagRe.FindStringIndex(tmpl[i:])
		if loc == nil {
			return block{}, false
		}
		tagStart, tagEnd := i+loc[0], i+loc[1]
		inner := strings.TrimSpace(tmpl[tagStart+2 : tagEnd-2])

		switch {
		case inner == closeTag:
			depth--
			if depth == 0 {
				blk := block{start: openStart, end: tagEnd, expr: expr}
				if elseStart >= 0 {
					blk.body = tmpl[openEnd:elseStart]
					blk.elseBody = tmpl[elseEnd:tagStart]
					blk.hasElse = true
				} else {
					blk.body = tmpl[openEnd:tagStart]
				}
				return blk, true
			}
		case isOpenerOf(inner, kind):
			depth++
		case inner == "else" && depth == 1 && kind != blockEach && elseStart < 0:
			elseStart, elseEnd = tagStart, tagEnd
		case kind != blockEach && isOpenerOf(inner, blockEach):
			if nested, ok := matchBlock(tmpl, blockEach, tagStart, tagEnd, ""); ok {
				i = nested.end
				continue
			}
		}
		i = tagEnd
	}
	return block{}, false
}

// isOpenerOf reports whether a tag's inner text opens a block of the given
// kind, with a word boundary so "#if" does not match "#include".
func isOpenerOf(inner string, kind blockKind) bool {
	prefix := "#" + string(kind)
	if !strings.HasPrefix(inner, prefix) {
		return false
	}
	rest := inner[len(prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func insideAny(spans []block, pos int) bool {
	for _, s := range spans {
		if pos > s.start && pos < s.end {
			return true
		}
	}
	return false
}
