package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileReader is the filesystem collaborator used by the include processor
// and by partial file registration. A missing file must be distinguishable
// via errors.Is(err, fs.ErrNotExist).
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// osFileReader reads through the local filesystem.
type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// includeRe matches {{#include "path"}} with single or double quotes.
var includeRe = regexp.MustCompile(`\{\{#include\s+(?:"([^"]*)"|'([^']*)')\s*\}\}`)

// expandIncludes substitutes every {{#include "path"}} directive with the
// recursively include-expanded content of the referenced file. Included
// content flows on through the rest of the pipeline, since includes run
// first.
//
// Unlike the in-template directives, includes fail fast: a missing file,
// a cycle, or nesting past the depth bound aborts the whole render.
func (e *Engine) expandIncludes(tmpl string, data Context, st *renderState, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("%w (limit %d)", ErrMaxIncludeDepth, maxIncludeDepth)
	}

	out := tmpl
	for _, m := range includeRe.FindAllStringSubmatch(tmpl, -1) {
		full := m[0]
		path := m[1]
		if path == "" {
			path = m[2]
		}
		content, err := e.expandOneInclude(path, data, st, depth)
		if err != nil {
			return "", err
		}
		out = strings.Replace(out, full, content, 1)
	}
	return out, nil
}

// expandOneInclude resolves and reads a single included file, guarding
// against cycles for the lexical extent of its expansion. The guard entry is
// removed on exit so sibling branches may include the same file again.
func (e *Engine) expandOneInclude(path string, data Context, st *renderState, depth int) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.includeRoot, abs)
	}
	if resolved, err := filepath.Abs(abs); err == nil {
		abs = resolved
	}

	if _, active := st.includingPaths[abs]; active {
		return "", fmt.Errorf("%w: %s", ErrCircularInclude, abs)
	}
	st.includingPaths[abs] = struct{}{}
	defer delete(st.includingPaths, abs)

	content, err := e.reader.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrIncludeNotFound, abs)
		}
		return "", fmt.Errorf("read include %s: %w", abs, err)
	}
	return e.expandIncludes(string(content), data, st, depth+1)
}
