package partialstore

import (
	"fmt"
	"sort"
)

// Partial is one named partial template.
type Partial struct {
	// Name is the registry key, referenced as {{> name}}.
	Name string `yaml:"name"`

	// Description is optional documentation from front-matter.
	Description string `yaml:"description,omitempty"`

	// Body is the template text.
	Body string `yaml:"-"`

	// Path is the source file, when the partial was loaded from disk.
	Path string `yaml:"-"`
}

// Store is a registry of partials keyed by name. Populate at setup time;
// reads during rendering are not synchronized.
type Store struct {
	partials map[string]*Partial
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{partials: make(map[string]*Partial)}
}

// Register adds a partial, replacing any existing entry with the same name.
func (s *Store) Register(p *Partial) error {
	if p.Name == "" {
		return ErrNoName
	}
	s.partials[p.Name] = p
	return nil
}

// Get returns the named partial, or false when it is not registered.
func (s *Store) Get(name string) (*Partial, bool) {
	p, ok := s.partials[name]
	return p, ok
}

// Body returns the named partial's template body, or ErrNotFound.
func (s *Store) Body(name string) (string, error) {
	p, ok := s.partials[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p.Body, nil
}

// Names returns the registered partial names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.partials))
	for name := range s.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered partials.
func (s *Store) Len() int {
	return len(s.partials)
}
