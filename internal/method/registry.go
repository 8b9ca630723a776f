package method

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Registry maps method names to factories. It is populated by static
// registration at startup; ambiguous or unknown names are configuration
// errors the caller treats as fatal.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named method. Registering the same name twice is an
// ambiguous configuration and fails.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return eris.New("method: register with empty name")
	}
	if f == nil {
		return eris.Errorf("method: nil factory for %q", name)
	}
	if _, dup := r.factories[name]; dup {
		return eris.Errorf("method: more than one method registered under %q", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns a fresh instance of the named method. Unknown names are
// configuration errors; the message lists what is available.
func (r *Registry) Lookup(name string) (Method, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, eris.Errorf("method: no method named %q (available: %v)", name, r.Names())
	}
	return f(), nil
}

// Names returns all registered method names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
