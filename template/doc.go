// Package template provides prompt template rendering with a Handlebars-like
// directive syntax.
//
// # Syntax
//
// Simple variables use double braces and dot paths:
//
//	Hello, {{name}}! Your plan is {{account.plan}}.
//
// Conditionals use #if / #unless with an optional {{else}} branch:
//
//	{{#if urgent}}URGENT: {{else}}FYI: {{/if}}{{title}}
//	{{#unless done}}still open{{/unless}}
//
// The control expression may also be a parenthesized helper call:
//
//	{{#if (eq status "active")}}...{{/if}}
//
// Iteration uses #each; the body sees this, @index, @first, @last, and (for
// map items) the item's own keys:
//
//	{{#each items}}{{@index}}: {{this}}
//	{{/each}}
//
// Helper functions are called inline, with nested calls in parentheses:
//
//	{{uppercase name}}
//	{{uppercase(capitalize(name))}}
//	{{add count 1}}
//
// Transforms form a pipe chain applied left to right; per-stage arguments
// after a colon are literals, not context paths:
//
//	{{ name | upper | truncate:5 }}
//	{{ tags | join:", " }}
//
// Composition comes in two flavors. Includes read another template file in
// place and fail fast on missing files or cycles:
//
//	{{#include "fragments/header.tmpl"}}
//
// Partials expand from an in-memory registry, optionally switching context,
// and leave unknown names in place:
//
//	{{> signature}}
//	{{> userCard author}}
//
// # Failure Policy
//
// In-template mistakes fail soft: unresolved variables, unknown helpers or
// transforms, helper errors, and unclosed blocks leave the directive text in
// the output, where it is visible as a diagnostic. Composition mistakes fail
// fast: circular or missing includes and circular partials abort the render
// with one of the sentinel errors in this package.
//
// # Example
//
//	engine := template.NewEngine()
//	out, err := engine.Render("Hello, {{name}}!", template.Context{"name": "World"})
//	// out: "Hello, World!"
//
// # Custom Helpers and Transforms
//
//	engine.RegisterHelper("shout", func(args ...any) (any, error) {
//	    if len(args) == 0 {
//	        return "", nil
//	    }
//	    return strings.ToUpper(fmt.Sprint(args[0])) + "!", nil
//	})
//	engine.RegisterTransform("repeat", func(v any, args ...any) (any, error) {
//	    n := 2
//	    if len(args) > 0 {
//	        if f, ok := args[0].(float64); ok {
//	            n = int(f)
//	        }
//	    }
//	    return strings.Repeat(fmt.Sprint(v), n), nil
//	})
//
// Registration is a setup-time operation. Once setup is done, concurrent
// Render calls against the same engine are safe: every call owns its own
// cycle-tracking state.
package template
