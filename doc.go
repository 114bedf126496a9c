// Package promptkit provides a template engine for generating structured
// prompt text.
//
// The engine expands a Handlebars-like directive syntax against a map of
// bindings: variable interpolation, conditionals, iteration, file includes,
// named partials, inline helper calls, and pipe-style value transforms.
//
// Subpackages:
//
//   - template: the rendering engine ({{variable}}, {{#if}}, {{#each}},
//     {{#include}}, {{> partial}}, helpers, transforms)
//   - partialstore: loading partial templates from disk, with optional YAML
//     front-matter and directory watching
//
// # Quick Start
//
//	import "github.com/randalmurphal/promptkit/template"
//
//	engine := template.NewEngine()
//	out, err := engine.Render("Hello {{name}}!", template.Context{"name": "World"})
//	// out: "Hello World!"
//
// Iteration and conditionals:
//
//	tmpl := "{{#each tasks}}{{@index}}. {{title}}{{#if done}} (done){{/if}}\n{{/each}}"
//	out, err := engine.Render(tmpl, template.Context{
//	    "tasks": []any{
//	        map[string]any{"title": "write docs", "done": true},
//	        map[string]any{"title": "ship", "done": false},
//	    },
//	})
//
// Partials loaded from a directory:
//
//	if err := engine.LoadPartialsFromDirectory("prompts/partials"); err != nil {
//	    return err
//	}
//	out, err := engine.Render("{{> header}}\n{{body}}", ctx)
//
// # Design Philosophy
//
//   - In-template mistakes fail soft: an unresolved variable or an unknown
//     helper leaves the directive visible in the output as a diagnostic
//   - Composition mistakes fail fast: circular or missing includes and
//     circular partials abort the render with a sentinel error
//   - Registries (helpers, transforms, partials) are populated at setup time;
//     concurrent renders against one engine are safe once setup is done
//   - Interfaces for extensibility, concrete types for simplicity
package promptkit
