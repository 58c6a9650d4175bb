package backup

import (
	"github.com/cockroachdb/errors"
)

// Registry holds the declared configurations keyed by name, preserving
// declaration order for listings.
type Registry struct {
	byName map[string]*Configuration
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Configuration)}
}

// Add registers c. Reusing a configuration name is an error.
func (r *Registry) Add(c *Configuration) error {
	if _, ok := r.byName[c.Name()]; ok {
		return errors.Newf("configuration %s declared twice", c.Name())
	}
	r.byName[c.Name()] = c
	r.order = append(r.order, c.Name())
	return nil
}

// Get returns the named configuration, or ErrUnknownConfiguration.
func (r *Registry) Get(name string) (*Configuration, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownConfiguration, "%q", name)
	}
	return c, nil
}

// All returns the configurations in declaration order.
func (r *Registry) All() []*Configuration {
	all := make([]*Configuration, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.byName[name])
	}
	return all
}

// Len returns the number of registered configurations.
func (r *Registry) Len() int { return len(r.order) }
