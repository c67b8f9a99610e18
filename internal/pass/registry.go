package pass

import (
	"fmt"
	"sort"

	"github.com/roach88/modkit/internal/target"
)

// Descriptor identifies a selectable pass and how to construct it. Either
// constructor may be nil; a descriptor with neither cannot be instantiated.
type Descriptor struct {
	Name        string
	Description string
	Granularity Granularity
	Analysis    bool

	// New constructs the pass without any context.
	New func() Pass

	// NewWithTarget constructs a target-dependent pass.
	NewWithTarget func(*target.Machine) Pass
}

// DisplayName returns the description used in diagnostics and printer
// headers, falling back to the name.
func (d *Descriptor) DisplayName() string {
	if d.Description != "" {
		return d.Description
	}
	return d.Name
}

// Registry holds pass descriptors in registration order.
type Registry struct {
	order  []*Descriptor
	byName map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Duplicate or empty names are an error.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("register pass: name is required")
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("register pass %q: already registered", d.Name)
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ds ...*Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	return append([]*Descriptor(nil), r.order...)
}

// Names returns every registered name sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, d := range r.order {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
