package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEngine_Render_SimpleVariables(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "single variable",
			template: "Hello, {{name}}!",
			data:     Context{"name": "World"},
			want:     "Hello, World!",
		},
		{
			name:     "multiple variables",
			template: "{{greeting}}, {{name}}!",
			data:     Context{"greeting": "Hi", "name": "Alice"},
			want:     "Hi, Alice!",
		},
		{
			name:     "missing variable stays literal",
			template: "Hello, {{name}}!",
			data:     Context{},
			want:     "Hello, {{name}}!",
		},
		{
			name:     "nested dot path",
			template: "Name: {{task.name}}",
			data:     Context{"task": map[string]any{"name": "Test"}},
			want:     "Name: Test",
		},
		{
			name:     "deep dot path",
			template: "{{a.b.c}}",
			data:     Context{"a": map[string]any{"b": map[string]any{"c": "deep"}}},
			want:     "deep",
		},
		{
			name:     "path through non-map stays literal",
			template: "{{a.b.c}}",
			data:     Context{"a": map[string]any{"b": "leaf"}},
			want:     "{{a.b.c}}",
		},
		{
			name:     "number formatting drops trailing zeros",
			template: "{{count}}",
			data:     Context{"count": 3.0},
			want:     "3",
		},
		{
			name:     "bool renders true/false",
			template: "{{ok}}",
			data:     Context{"ok": true},
			want:     "true",
		},
		{
			name:     "nil renders empty",
			template: "[{{gone}}]",
			data:     Context{"gone": nil},
			want:     "[]",
		},
		{
			name:     "slice joins with commas",
			template: "{{tags}}",
			data:     Context{"tags": []any{"a", "b", "c"}},
			want:     "a,b,c",
		},
		{
			name:     "nil context",
			template: "Hello, World!",
			data:     nil,
			want:     "Hello, World!",
		},
		{
			name:     "whitespace inside braces",
			template: "Hello, {{ name }}!",
			data:     Context{"name": "World"},
			want:     "Hello, World!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_Render_Identity(t *testing.T) {
	e := NewEngine()

	for _, tmpl := range []string{
		"",
		"plain text with no directives",
		"text with { single braces } and } reversed {",
		"multi\nline\ntext",
	} {
		got, err := e.Render(tmpl, Context{"unused": 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tmpl {
			t.Errorf("identity violated: got %q, want %q", got, tmpl)
		}
	}
}

func TestEngine_Render_Idempotence(t *testing.T) {
	e := NewEngine()
	data := Context{
		"name":  "Ada",
		"items": []any{"x", "y"},
		"done":  true,
	}

	first, err := e.Render("{{name}}: {{#each items}}{{this}} {{/each}}{{#if done}}ok{{/if}}", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Render(first, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Errorf("re-render changed output: %q -> %q", first, second)
	}
}

func TestEngine_Render_Conditionals(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "if true",
			template: "{{#if urgent}}URGENT: {{/if}}Task",
			data:     Context{"urgent": true},
			want:     "URGENT: Task",
		},
		{
			name:     "if false",
			template: "{{#if urgent}}URGENT: {{/if}}Task",
			data:     Context{"urgent": false},
			want:     "Task",
		},
		{
			name:     "if with else true branch",
			template: "Status: {{#if done}}Complete{{else}}Pending{{/if}}",
			data:     Context{"done": true},
			want:     "Status: Complete",
		},
		{
			name:     "if with else false branch",
			template: "Status: {{#if done}}Complete{{else}}Pending{{/if}}",
			data:     Context{"done": false},
			want:     "Status: Pending",
		},
		{
			name:     "missing path is falsy",
			template: "{{#if nope}}Y{{else}}N{{/if}}",
			data:     Context{},
			want:     "N",
		},
		{
			name:     "empty string is falsy",
			template: "{{#if name}}Hello, {{name}}{{else}}No name{{/if}}",
			data:     Context{"name": ""},
			want:     "No name",
		},
		{
			name:     "non-empty string is truthy",
			template: "{{#if name}}Hello, {{name}}{{/if}}",
			data:     Context{"name": "Alice"},
			want:     "Hello, Alice",
		},
		{
			name:     "zero is falsy",
			template: "{{#if count}}some{{else}}none{{/if}}",
			data:     Context{"count": 0},
			want:     "none",
		},
		{
			name:     "nonzero is truthy",
			template: "{{#if count}}some{{else}}none{{/if}}",
			data:     Context{"count": 2},
			want:     "some",
		},
		{
			name:     "empty list is falsy",
			template: "{{#if items}}have{{else}}empty{{/if}}",
			data:     Context{"items": []any{}},
			want:     "empty",
		},
		{
			name:     "non-empty list is truthy",
			template: "{{#if items}}have{{/if}}",
			data:     Context{"items": []any{1}},
			want:     "have",
		},
		{
			name:     "empty map is falsy",
			template: "{{#if cfg}}have{{else}}empty{{/if}}",
			data:     Context{"cfg": map[string]any{}},
			want:     "empty",
		},
		{
			name:     "non-empty map is truthy",
			template: "{{#if cfg}}have{{/if}}",
			data:     Context{"cfg": map[string]any{"k": 1}},
			want:     "have",
		},
		{
			name:     "unless inverts",
			template: "{{#unless done}}still open{{/unless}}",
			data:     Context{"done": false},
			want:     "still open",
		},
		{
			name:     "unless with else",
			template: "{{#unless done}}open{{else}}closed{{/unless}}",
			data:     Context{"done": true},
			want:     "closed",
		},
		{
			name:     "helper call condition",
			template: `{{#if (eq status "active")}}running{{else}}stopped{{/if}}`,
			data:     Context{"status": "active"},
			want:     "running",
		},
		{
			name:     "helper call condition false",
			template: `{{#if (eq status "active")}}running{{else}}stopped{{/if}}`,
			data:     Context{"status": "idle"},
			want:     "stopped",
		},
		{
			name:     "nested helper call condition",
			template: `{{#if (and (gt n 1) (lt n 10))}}in range{{/if}}`,
			data:     Context{"n": 5},
			want:     "in range",
		},
		{
			name:     "unknown helper falls back to path",
			template: "{{#if (flagged)}}Y{{else}}N{{/if}}",
			data:     Context{},
			want:     "N",
		},
		{
			name:     "nested if blocks",
			template: "{{#if a}}A{{#if b}}B{{/if}}{{/if}}",
			data:     Context{"a": true, "b": true},
			want:     "AB",
		},
		{
			name:     "nested same-kind block matches balanced closer",
			template: "{{#if a}}outer {{#if b}}inner{{/if}} tail{{/if}}",
			data:     Context{"a": true, "b": false},
			want:     "outer  tail",
		},
		{
			name:     "else belongs to outer block",
			template: "{{#if a}}{{#if b}}X{{/if}}{{else}}E{{/if}}",
			data:     Context{"a": false, "b": true},
			want:     "E",
		},
		{
			name:     "unclosed block stays literal",
			template: "{{#if a}}never closed",
			data:     Context{"a": true},
			want:     "{{#if a}}never closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_Render_IfElseMutuallyExclusive(t *testing.T) {
	e := NewEngine()

	for _, b := range []bool{true, false} {
		got, err := e.Render("{{#if b}}Y{{else}}N{{/if}}", Context{"b": b})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b && got != "Y" || !b && got != "N" {
			t.Errorf("b=%v: got %q", b, got)
		}
	}
}

func TestEngine_Render_Iteration(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "each with strings",
			template: "Items: {{#each items}}{{this}} {{/each}}",
			data:     Context{"items": []any{"a", "b", "c"}},
			want:     "Items: a b c ",
		},
		{
			name:     "each over typed slice",
			template: "{{#each items}}{{this}} {{/each}}",
			data:     Context{"items": []string{"x", "y"}},
			want:     "x y ",
		},
		{
			name:     "each over empty list",
			template: "{{#each xs}}{{this}}{{/each}}",
			data:     Context{"xs": []any{}},
			want:     "",
		},
		{
			name:     "each indices",
			template: "{{#each xs}}{{@index}}:{{this}} {{/each}}",
			data:     Context{"xs": []any{"a", "b"}},
			want:     "0:a 1:b ",
		},
		{
			name:     "first and last markers",
			template: "{{#each xs}}{{#if @first}}[{{/if}}{{this}}{{#unless @last}},{{/unless}}{{#if @last}}]{{/if}}{{/each}}",
			data:     Context{"xs": []any{1, 2, 3}},
			want:     "[1,2,3]",
		},
		{
			name:     "map items merge their keys",
			template: "{{#each users}}{{name}}({{age}}) {{/each}}",
			data: Context{"users": []any{
				map[string]any{"name": "Ada", "age": 36},
				map[string]any{"name": "Grace", "age": 45},
			}},
			want: "Ada(36) Grace(45) ",
		},
		{
			name:     "item keys shadow outer context",
			template: "{{#each rows}}{{label}} {{/each}}{{label}}",
			data: Context{
				"label": "outer",
				"rows":  []any{map[string]any{"label": "inner"}},
			},
			want: "inner outer",
		},
		{
			name:     "outer context visible inside loop",
			template: "{{#each xs}}{{prefix}}{{this}} {{/each}}",
			data:     Context{"prefix": ">", "xs": []any{"a"}},
			want:     ">a ",
		},
		{
			name:     "each over non-list expands to empty",
			template: "[{{#each name}}{{this}}{{/each}}]",
			data:     Context{"name": "scalar"},
			want:     "[]",
		},
		{
			name:     "each over missing path expands to empty",
			template: "[{{#each nope}}{{this}}{{/each}}]",
			data:     Context{},
			want:     "[]",
		},
		{
			name:     "nested each over rows",
			template: "{{#each rows}}{{#each this}}{{this}} {{/each}}{{/each}}",
			data:     Context{"rows": []any{[]any{1, 2}, []any{3}}},
			want:     "1 2 3 ",
		},
		{
			name:     "conditional inside each sees item fields",
			template: "{{#each tasks}}{{title}}{{#if done}} (done){{/if}}; {{/each}}",
			data: Context{"tasks": []any{
				map[string]any{"title": "a", "done": true},
				map[string]any{"title": "b", "done": false},
			}},
			want: "a (done); b; ",
		},
		{
			name:     "each inside if branch",
			template: "{{#if show}}{{#each xs}}{{this}}{{/each}}{{/if}}",
			data:     Context{"show": true, "xs": []any{"a", "b"}},
			want:     "ab",
		},
		{
			name:     "each inside else branch",
			template: "{{#if show}}none{{else}}{{#each xs}}{{this}}{{/each}}{{/if}}",
			data:     Context{"show": false, "xs": []any{"a", "b"}},
			want:     "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_Render_EachInIfInEach(t *testing.T) {
	e := NewEngine()

	tmpl := "{{#each rows}}{{#if this}}{{#each this}}{{this}} {{/each}}{{/if}}{{/each}}"
	got, err := e.Render(tmpl, Context{"rows": []any{[]any{1, 2}, []any{3}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1 2 3 " {
		t.Errorf("got %q, want %q", got, "1 2 3 ")
	}
}

func TestEngine_Render_IterationNamesDoNotLeak(t *testing.T) {
	e := NewEngine()

	got, err := e.Render("{{#each xs}}{{this}}{{/each}}|{{this}}|{{@index}}", Context{"xs": []any{"a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Outside the loop the iteration names stay unresolved literals.
	if got != "a|{{this}}|{{@index}}" {
		t.Errorf("got %q", got)
	}
}

func TestEngine_Render_Helpers(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "uppercase",
			template: "{{uppercase name}}",
			data:     Context{"name": "alice"},
			want:     "ALICE",
		},
		{
			name:     "nested helper calls",
			template: "{{uppercase(capitalize(name))}}",
			data:     Context{"name": "alice"},
			want:     "ALICE",
		},
		{
			name:     "nested call result feeds outer arguments",
			template: "{{substring(uppercase(name)) 0 3}}",
			data:     Context{"name": "alice"},
			want:     "ALI",
		},
		{
			name:     "arithmetic",
			template: "{{add count 1}}",
			data:     Context{"count": 2},
			want:     "3",
		},
		{
			name:     "divide by zero yields zero",
			template: "{{divide n 0}}",
			data:     Context{"n": 10},
			want:     "0",
		},
		{
			name:     "string literal arguments",
			template: `{{replace greeting "World" "Go"}}`,
			data:     Context{"greeting": "Hello World"},
			want:     "Hello Go",
		},
		{
			name:     "single quoted literal",
			template: "{{default missing 'fallback'}}",
			data:     Context{},
			want:     "fallback",
		},
		{
			name:     "comparison returns boolean",
			template: "{{gt a b}}",
			data:     Context{"a": 3, "b": 2},
			want:     "true",
		},
		{
			name:     "array helper",
			template: "{{first items}}",
			data:     Context{"items": []any{"x", "y"}},
			want:     "x",
		},
		{
			name:     "sort numbers",
			template: "{{sort nums}}",
			data:     Context{"nums": []any{3, 1, 2}},
			want:     "1,2,3",
		},
		{
			name:     "unique",
			template: "{{unique xs}}",
			data:     Context{"xs": []any{"a", "b", "a"}},
			want:     "a,b",
		},
		{
			name:     "type check",
			template: "{{isArray items}} {{isString items}}",
			data:     Context{"items": []any{1}},
			want:     "true false",
		},
		{
			name:     "length of string and list",
			template: "{{length name}}/{{length items}}",
			data:     Context{"name": "abc", "items": []any{1, 2}},
			want:     "3/2",
		},
		{
			name:     "unknown helper stays literal",
			template: "{{frobnicate x}}",
			data:     Context{"x": 1},
			want:     "{{frobnicate x}}",
		},
		{
			name:     "multiple independent invocations",
			template: "{{uppercase a}} {{lowercase b}}",
			data:     Context{"a": "x", "b": "Y"},
			want:     "X y",
		},
		{
			name:     "context wins over zero-arg helper name",
			template: "{{length}}",
			data:     Context{"length": 5},
			want:     "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_RegisterHelper(t *testing.T) {
	e := NewEngine()
	e.RegisterHelper("shout", func(args ...any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return strings.ToUpper(fmt.Sprint(args[0])) + "!", nil
	})

	got, err := e.Render("{{shout name}}", Context{"name": "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "GO!" {
		t.Errorf("got %q, want %q", got, "GO!")
	}
}

func TestEngine_HelperErrorFailsSoft(t *testing.T) {
	e := NewEngine()
	e.RegisterHelper("boom", func(args ...any) (any, error) {
		return nil, errors.New("kaput")
	})

	got, err := e.Render("before {{boom x}} after", Context{"x": 1})
	if err != nil {
		t.Fatalf("helper error must not abort the render: %v", err)
	}
	if got != "before {{boom x}} after" {
		t.Errorf("got %q", got)
	}
}

func TestEngine_Render_Transforms(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "upper and truncate chain",
			template: "{{ name | upper | truncate:5 }}",
			data:     Context{"name": "alexandria"},
			want:     "ALEXA...",
		},
		{
			name:     "single transform",
			template: "{{ name | capitalize }}",
			data:     Context{"name": "ada"},
			want:     "Ada",
		},
		{
			name:     "slug",
			template: "{{ title | slug }}",
			data:     Context{"title": "Hello, World! Again"},
			want:     "hello-world-again",
		},
		{
			name:     "case conversions",
			template: "{{ id | camelCase }} {{ id | snakeCase }} {{ id | kebabCase }}",
			data:     Context{"id": "user profile name"},
			want:     "userProfileName user_profile_name user-profile-name",
		},
		{
			name:     "toFixed",
			template: "{{ pi | toFixed:2 }}",
			data:     Context{"pi": 3.14159},
			want:     "3.14",
		},
		{
			name:     "join with quoted separator",
			template: `{{ tags | join:", " }}`,
			data:     Context{"tags": []any{"a", "b"}},
			want:     "a, b",
		},
		{
			name:     "take and skip",
			template: "{{ xs | take:2 }}|{{ xs | skip:2 }}",
			data:     Context{"xs": []any{1, 2, 3, 4}},
			want:     "1,2|3,4",
		},
		{
			name:     "sortBy key",
			template: "{{ users | sortBy:name | map:name }}",
			data: Context{"users": []any{
				map[string]any{"name": "b"},
				map[string]any{"name": "a"},
			}},
			want: "a,b",
		},
		{
			name:     "filter by key",
			template: "{{ tasks | filter:done | map:title }}",
			data: Context{"tasks": []any{
				map[string]any{"title": "x", "done": true},
				map[string]any{"title": "y", "done": false},
			}},
			want: "x",
		},
		{
			name:     "default on missing value",
			template: `{{ missing | default:"n/a" }}`,
			data:     Context{},
			want:     "n/a",
		},
		{
			name:     "ternary",
			template: `{{ active | ternary:"on","off" }}`,
			data:     Context{"active": true},
			want:     "on",
		},
		{
			name:     "typeof",
			template: "{{ xs | typeof }}/{{ name | typeof }}/{{ n | typeof }}",
			data:     Context{"xs": []any{}, "name": "s", "n": 1},
			want:     "array/string/number",
		},
		{
			name:     "length",
			template: "{{ name | length }}",
			data:     Context{"name": "four"},
			want:     "4",
		},
		{
			name:     "keys sorted",
			template: "{{ obj | keys }}",
			data:     Context{"obj": map[string]any{"b": 1, "a": 2}},
			want:     "a,b",
		},
		{
			name:     "json",
			template: "{{ obj | json }}",
			data:     Context{"obj": map[string]any{"a": 1}},
			want:     `{"a":1}`,
		},
		{
			name:     "url encode",
			template: "{{ q | urlEncode }}",
			data:     Context{"q": "a b&c"},
			want:     "a+b%26c",
		},
		{
			name:     "base64 round trip",
			template: "{{ s | base64Encode | base64Decode }}",
			data:     Context{"s": "hello"},
			want:     "hello",
		},
		{
			name:     "html escape",
			template: "{{ s | escape }}",
			data:     Context{"s": "<b>"},
			want:     "&lt;b&gt;",
		},
		{
			name:     "unknown transform passes value through",
			template: "{{ name | nonsense }}",
			data:     Context{"name": "ok"},
			want:     "ok",
		},
		{
			name:     "truncate default length",
			template: "{{ long | truncate }}",
			data:     Context{"long": strings.Repeat("a", 60)},
			want:     strings.Repeat("a", 50) + "...",
		},
		{
			name:     "truncate leaves short strings alone",
			template: "{{ name | truncate:10 }}",
			data:     Context{"name": "short"},
			want:     "short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_RegisterTransform(t *testing.T) {
	e := NewEngine()
	e.RegisterTransform("repeat", func(v any, args ...any) (any, error) {
		n := 2
		if len(args) > 0 {
			if f, ok := args[0].(float64); ok {
				n = int(f)
			}
		}
		return strings.Repeat(fmt.Sprint(v), n), nil
	})

	got, err := e.Render("{{ s | repeat:3 }}", Context{"s": "ab"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ababab" {
		t.Errorf("got %q, want %q", got, "ababab")
	}
}

func TestEngine_Render_Includes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "header.tmpl", "== {{title}} ==")
	writeFile(t, dir, "outer.tmpl", `outer({{#include "inner.tmpl"}})`)
	writeFile(t, dir, "inner.tmpl", "inner")

	e := NewEngine().WithIncludeRoot(dir)

	t.Run("basic include", func(t *testing.T) {
		got, err := e.Render(`{{#include "header.tmpl"}} body`, Context{"title": "Doc"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "== Doc == body" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("nested include", func(t *testing.T) {
		got, err := e.Render(`{{#include "outer.tmpl"}}`, Context{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "outer(inner)" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("single quoted path", func(t *testing.T) {
		got, err := e.Render(`{{#include 'inner.tmpl'}}`, Context{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "inner" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("same file twice as siblings", func(t *testing.T) {
		got, err := e.Render(`{{#include "inner.tmpl"}}+{{#include "inner.tmpl"}}`, Context{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "inner+inner" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("missing file fails fast", func(t *testing.T) {
		_, err := e.Render(`{{#include "nope.tmpl"}}`, Context{})
		if !errors.Is(err, ErrIncludeNotFound) {
			t.Fatalf("want ErrIncludeNotFound, got %v", err)
		}
	})
}

func TestEngine_Render_CircularInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tmpl", `A {{#include "b.tmpl"}}`)
	writeFile(t, dir, "b.tmpl", `B {{#include "a.tmpl"}}`)

	e := NewEngine().WithIncludeRoot(dir)

	_, err := e.Render(`{{#include "a.tmpl"}}`, Context{})
	if !errors.Is(err, ErrCircularInclude) {
		t.Fatalf("want ErrCircularInclude, got %v", err)
	}
	if !strings.Contains(err.Error(), "a.tmpl") && !strings.Contains(err.Error(), "b.tmpl") {
		t.Errorf("error should name an offending path: %v", err)
	}
}

func TestEngine_Render_IncludeDepthExceeded(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeFile(t, dir, fmt.Sprintf("f%d.tmpl", i), fmt.Sprintf(`{{#include "f%d.tmpl"}}`, i+1))
	}
	writeFile(t, dir, "f12.tmpl", "bottom")

	e := NewEngine().WithIncludeRoot(dir)

	_, err := e.Render(`{{#include "f0.tmpl"}}`, Context{})
	if !errors.Is(err, ErrMaxIncludeDepth) {
		t.Fatalf("want ErrMaxIncludeDepth, got %v", err)
	}
}

func TestEngine_Render_Partials(t *testing.T) {
	e := NewEngine()
	e.RegisterPartial("greeting", "Hello, {{name}}!")
	e.RegisterPartial("card", "{{name}} <{{email}}>")
	e.RegisterPartial("wrapper", "[{{> greeting}}]")

	tests := []struct {
		name     string
		template string
		data     Context
		want     string
	}{
		{
			name:     "basic partial",
			template: "{{> greeting}}",
			data:     Context{"name": "Ada"},
			want:     "Hello, Ada!",
		},
		{
			name:     "partial with context override",
			template: "{{> card author}}",
			data: Context{
				"name":   "ignored",
				"author": map[string]any{"name": "Grace", "email": "g@navy.mil"},
			},
			want: "Grace <g@navy.mil>",
		},
		{
			name:     "context expression not a map keeps current context",
			template: "{{> greeting name}}",
			data:     Context{"name": "Ada"},
			want:     "Hello, Ada!",
		},
		{
			name:     "nested partial",
			template: "{{> wrapper}}",
			data:     Context{"name": "Ada"},
			want:     "[Hello, Ada!]",
		},
		{
			name:     "unknown partial stays literal",
			template: "{{> nope}} done",
			data:     Context{},
			want:     "{{> nope}} done",
		},
		{
			name:     "same partial twice as siblings",
			template: "{{> greeting}} {{> greeting}}",
			data:     Context{"name": "Ada"},
			want:     "Hello, Ada! Hello, Ada!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_Render_PartialWithBlocks(t *testing.T) {
	e := NewEngine()
	e.RegisterPartial("list", "{{#each items}}{{this}};{{/each}}{{#if empty}}(none){{/if}}")

	got, err := e.Render("{{> list}}", Context{"items": []any{"a", "b"}, "empty": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a;b;" {
		t.Errorf("got %q", got)
	}
}

func TestEngine_Render_CircularPartial(t *testing.T) {
	e := NewEngine()
	e.RegisterPartial("a", "A {{> b}}")
	e.RegisterPartial("b", "B {{> a}}")

	_, err := e.Render("{{> a}}", Context{})
	if !errors.Is(err, ErrCircularPartial) {
		t.Fatalf("want ErrCircularPartial, got %v", err)
	}
	if !strings.Contains(err.Error(), "a") {
		t.Errorf("error should name the partial: %v", err)
	}
}

func TestEngine_Render_PartialDepthExceeded(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 12; i++ {
		e.RegisterPartial(fmt.Sprintf("p%d", i), fmt.Sprintf("{{> p%d}}", i+1))
	}
	e.RegisterPartial("p12", "bottom")

	_, err := e.Render("{{> p0}}", Context{})
	if !errors.Is(err, ErrMaxPartialDepth) {
		t.Fatalf("want ErrMaxPartialDepth, got %v", err)
	}
}

func TestEngine_Render_SiblingPartialAfterFailedBranchIsLegal(t *testing.T) {
	e := NewEngine()
	e.RegisterPartial("leaf", "leaf")
	e.RegisterPartial("mid", "{{> leaf}}")

	// leaf finishes inside mid, then appears again as a sibling.
	got, err := e.Render("{{> mid}} {{> leaf}}", Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "leaf leaf" {
		t.Errorf("got %q", got)
	}
}

func TestEngine_Render_DeepNestingFailsSoft(t *testing.T) {
	e := NewEngine()

	// 12 levels of nested #if: deeper than the bound, must terminate
	// without error and leave the innermost layers unexpanded.
	tmpl := "x"
	for i := 0; i < 12; i++ {
		tmpl = "{{#if a}}" + tmpl + "{{/if}}"
	}
	_, err := e.Render(tmpl, Context{"a": true})
	if err != nil {
		t.Fatalf("deep nesting must not error: %v", err)
	}
}

func TestEngine_RegisterPartialFromFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sig.tmpl", "---\nname: signature\ndescription: sign-off\n---\n-- {{name}}")

	e := NewEngine()
	if err := e.RegisterPartialFromFile("sig", filepath.Join(dir, "sig.tmpl")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := e.Render("{{> sig}}", Context{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "-- Ada" {
		t.Errorf("got %q", got)
	}
}

func TestEngine_LoadPartialsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "header.tmpl", "HEADER {{title}}")
	writeFile(t, dir, "footer.md", "---\nname: footer\n---\nFOOTER")
	writeFile(t, dir, "ignored.txt", "not a partial")

	e := NewEngine()
	if err := e.LoadPartialsFromDirectory(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := e.Render("{{> header}} / {{> footer}}", Context{"title": "T"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "HEADER T / FOOTER" {
		t.Errorf("got %q", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
