// Package entity defines entity archetypes and moves entities between saved
// records and the host world.
package entity

import (
	"slices"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs/component"
)

var (
	ErrDuplicateRegistration = eris.New("entity: archetype already registered")
	ErrUnknownType           = eris.New("entity: archetype not registered")
	ErrUnknownArchetype      = eris.New("entity: record has an unknown archetype")
	ErrInvalidArchetype      = eris.New("entity: invalid archetype")
	ErrSealed                = eris.New("entity: registry is sealed")
)

// Archetype is a named, ordered set of component kinds every entity of the type
// carries. The order is the order components are attached and defaulted in.
type Archetype struct {
	Name       string
	Components []string
	// HasUUID marks types other entities may refer to by UUID. Only they are
	// offered as reference targets, and a reference to any other type is an
	// authoring error.
	HasUUID bool
	// Defaults overrides the component kind default for new entities of this type.
	Defaults map[string]json.RawMessage
}

// Owns reports whether kind is one of the archetype's components.
func (a *Archetype) Owns(kind string) bool {
	return slices.Contains(a.Components, kind)
}

// Registry is the catalog of archetypes.
type Registry struct {
	kinds  *component.Registry
	types  map[string]*Archetype
	order  []string
	sealed bool
}

// NewRegistry creates an archetype registry over the given component kinds.
func NewRegistry(kinds *component.Registry) *Registry {
	return &Registry{kinds: kinds, types: make(map[string]*Archetype)}
}

// Components returns the component registry archetypes are checked against.
func (r *Registry) Components() *component.Registry {
	return r.kinds
}

// Register adds an archetype. Every listed kind must already be registered.
func (r *Registry) Register(a Archetype) error {
	if r.sealed {
		return eris.Wrapf(ErrSealed, "register %q", a.Name)
	}
	if a.Name == "" {
		return eris.Wrap(ErrInvalidArchetype, "empty name")
	}
	if _, ok := r.types[a.Name]; ok {
		return eris.Wrapf(ErrDuplicateRegistration, "%q", a.Name)
	}
	seen := make(map[string]bool, len(a.Components))
	for _, kind := range a.Components {
		if seen[kind] {
			return eris.Wrapf(ErrInvalidArchetype, "%q lists %q twice", a.Name, kind)
		}
		seen[kind] = true
		if _, err := r.kinds.Get(kind); err != nil {
			return eris.Wrapf(err, "archetype %q", a.Name)
		}
	}
	for kind := range a.Defaults {
		if !seen[kind] {
			return eris.Wrapf(ErrInvalidArchetype, "%q has a default for %q it does not list", a.Name, kind)
		}
	}
	a.Components = slices.Clone(a.Components)
	r.types[a.Name] = &a
	r.order = append(r.order, a.Name)
	return nil
}

// RegisterType is shorthand for Register with only a name and kinds.
func (r *Registry) RegisterType(name string, kinds ...string) error {
	return r.Register(Archetype{Name: name, Components: kinds})
}

// Seal rejects any further registration, on this registry and its component kinds.
func (r *Registry) Seal() {
	r.sealed = true
	r.kinds.Seal()
}

// Get returns the archetype registered under name.
func (r *Registry) Get(name string) (*Archetype, error) {
	a, ok := r.types[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownType, "%q", name)
	}
	return a, nil
}

// Names returns archetype names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// HasArchetype reports whether name is registered.
func (r *Registry) HasArchetype(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Referenceable reports whether entities of the archetype may be the target of a
// reference.
func (r *Registry) Referenceable(name string) bool {
	a, ok := r.types[name]
	return ok && a.HasUUID
}

// HasKind reports whether the component kind is registered.
func (r *Registry) HasKind(name string) bool {
	return r.kinds.Has(name)
}
