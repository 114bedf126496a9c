package template

import (
	"fmt"
	"time"

	"github.com/randalmurphal/promptkit/partialstore"
)

// Engine renders prompt templates against a Context. The zero value is not
// usable; construct with NewEngine or NewEngineFromConfig.
//
// Registration methods are setup-time operations. After setup, concurrent
// Render calls against one engine are safe: registries are read-only during
// rendering and each call owns its own cycle-tracking state.
type Engine struct {
	helpers     map[string]HelperFunc
	transforms  map[string]TransformFunc
	partials    map[string]string
	reader      FileReader
	includeRoot string
	dateFormat  string
}

// renderState is the per-call mutable state: the two cycle-tracking sets for
// includes and partials. Fresh at the start of every top-level Render call,
// empty again at its end.
type renderState struct {
	includingPaths    map[string]struct{}
	renderingPartials map[string]struct{}
}

func newRenderState() *renderState {
	return &renderState{
		includingPaths:    make(map[string]struct{}),
		renderingPartials: make(map[string]struct{}),
	}
}

// NewEngine creates an engine with the built-in helpers and transforms,
// reading include files from the local filesystem relative to the working
// directory.
func NewEngine() *Engine {
	e := &Engine{
		partials:   make(map[string]string),
		reader:     osFileReader{},
		dateFormat: time.RFC3339,
	}
	e.helpers = builtinHelpers(e)
	e.transforms = builtinTransforms(e)
	return e
}

// WithFileReader sets the filesystem collaborator used for includes and
// partial file registration. Returns the engine for chaining.
func (e *Engine) WithFileReader(r FileReader) *Engine {
	e.reader = r
	return e
}

// WithIncludeRoot sets the directory relative include paths resolve against.
// Returns the engine for chaining.
func (e *Engine) WithIncludeRoot(dir string) *Engine {
	e.includeRoot = dir
	return e
}

// Render expands the template against data and returns the final string.
//
// The pipeline runs in fixed order: includes, conditionals, iteration,
// partials, helpers, transforms, and a final variable substitution pass.
// Composition failures (circular or missing includes, circular partials,
// depth overruns) abort with a sentinel error; everything else fails soft
// and leaves the offending directive visible in the output.
func (e *Engine) Render(tmpl string, data Context) (string, error) {
	st := newRenderState()

	out, err := e.expandIncludes(tmpl, data, st, 0)
	if err != nil {
		return "", err
	}
	out, err = e.expandConditionals(out, data, st, 0)
	if err != nil {
		return "", err
	}
	out, err = e.expandEachBlocks(out, data, st, 0)
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

// RegisterHelper adds a helper callable as {{name args}}. Registering over
// an existing name (including a built-in) replaces it.
func (e *Engine) RegisterHelper(name string, fn HelperFunc) {
	e.helpers[name] = fn
}

// RegisterTransform adds a transform callable in pipe chains. Registering
// over an existing name replaces it.
func (e *Engine) RegisterTransform(name string, fn TransformFunc) {
	e.transforms[name] = fn
}

// RegisterPartial adds a named partial template, referenced as {{> name}}.
func (e *Engine) RegisterPartial(name, tmpl string) {
	e.partials[name] = tmpl
}

// RegisterPartialFromFile reads a partial template through the engine's
// FileReader and registers its body under the given name. A YAML
// front-matter block, if present, is stripped.
func (e *Engine) RegisterPartialFromFile(name, path string) error {
	content, err := e.reader.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read partial %s: %w", path, err)
	}
	p, err := partialstore.Parse(name, content)
	if err != nil {
		return fmt.Errorf("parse partial %s: %w", path, err)
	}
	e.partials[name] = p.Body
	return nil
}

// LoadPartialsFromDirectory bulk-registers every partial template file in
// dir. Files that fail to parse are skipped with a warning.
func (e *Engine) LoadPartialsFromDirectory(dir string) error {
	store, err := partialstore.LoadDirectory(dir)
	if err != nil {
		return err
	}
	for _, name := range store.Names() {
		body, err := store.Body(name)
		if err != nil {
			return err
		}
		e.partials[name] = body
	}
	return nil
}

// Partials returns the registered partial names. Intended for diagnostics.
func (e *Engine) Partials() []string {
	names := make([]string, 0, len(e.partials))
	for name := range e.partials {
		names = append(names, name)
	}
	return names
}
