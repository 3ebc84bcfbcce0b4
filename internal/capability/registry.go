// ABOUTME: Static registry mapping capability names to descriptors.
// ABOUTME: Populated once at startup and read-only afterward; duplicates are a configuration error.

package capability

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateCapability indicates two registrations under the same name.
// This is a fatal configuration error, enforced at startup.
var ErrDuplicateCapability = errors.New("duplicate capability")

// ErrNotFound indicates the named capability is not registered.
var ErrNotFound = errors.New("capability not found")

// Registry holds the capability catalogue. It is not safe for concurrent
// registration, but registration happens only during startup; lookups after
// that point are read-only and need no locking.
type Registry struct {
	caps map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Registering two capabilities under the same
// name fails with ErrDuplicateCapability.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return errors.New("capability name is required")
	}
	if d.Handler == nil {
		return fmt.Errorf("capability %q has no handler", d.Name)
	}
	if _, exists := r.caps[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, d.Name)
	}
	r.caps[d.Name] = d
	return nil
}

// RegisterAll adds every descriptor, stopping at the first failure.
func (r *Registry) RegisterAll(descriptors []*Descriptor) error {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a capability by name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, nil
}

// List returns all descriptors sorted by name, so repeated listings are
// identical regardless of registration order.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.caps))
	for _, d := range r.caps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the catalogue size.
func (r *Registry) Len() int {
	return len(r.caps)
}
