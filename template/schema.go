package template

import (
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// ContextSchema derives a JSON Schema describing the context a template
// requires: an object whose required properties are the paths reported by
// ExtractVariables, with dot paths expressed as nested object schemas. Hosts
// can use it to validate request payloads before rendering.
func (e *Engine) ContextSchema(tmpl string) *jsonschema.Schema {
	root := newPathNode()
	for _, path := range e.ExtractVariables(tmpl) {
		node := root
		for _, part := range strings.Split(path, ".") {
			child, ok := node.children[part]
			if !ok {
				child = newPathNode()
				node.children[part] = child
			}
			node = child
		}
	}
	return root.schema()
}

type pathNode struct {
	children map[string]*pathNode
}

func newPathNode() *pathNode {
	return &pathNode{children: make(map[string]*pathNode)}
}

func (n *pathNode) schema() *jsonschema.Schema {
	if len(n.children) == 0 {
		// A leaf may hold any value type; truthiness is checked at render
		// time.
		return &jsonschema.Schema{}
	}

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := jsonschema.NewProperties()
	for _, k := range keys {
		props.Set(k, n.children[k].schema())
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   keys,
	}
}
