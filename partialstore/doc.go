// Package partialstore loads and holds named partial templates for the
// template engine.
//
// A partial file is a template body with an optional YAML front-matter block
// between --- delimiters supplying a name and description:
//
//	---
//	name: header
//	description: Standard prompt header
//	---
//	You are {{assistant.name}}, {{assistant.role}}.
//
// Without front-matter the whole file is the body and the name defaults to
// the file stem.
//
// # Loading
//
//	store, err := partialstore.LoadDirectory("prompts/partials")
//	p, ok := store.Get("header")
//
// LoadDirectory reads every .tmpl, .hbs, and .md file in the directory
// (non-recursive). Files that fail to parse are skipped with a warning so
// one bad partial does not block the rest.
//
// # Watching
//
//	events, err := partialstore.Watch(ctx, "prompts/partials")
//	for ev := range events {
//	    // reload policy is the caller's: typically LoadDirectory again
//	}
//
// Watch emits an event per created, modified, or removed partial file and
// closes the channel when the context is cancelled.
package partialstore
