// Package component holds the catalog of component kinds the editor can save,
// load and edit.
package component

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

var (
	ErrDuplicateRegistration = eris.New("component: kind already registered")
	ErrNotFound              = eris.New("component: kind not registered")
	ErrInvalidKind           = eris.New("component: invalid kind")
	ErrSealed                = eris.New("component: registry is sealed")
)

// Kind describes how one component kind is stored in level files.
type Kind struct {
	Name        string
	Serialize   func(data any) (json.RawMessage, error)
	Deserialize func(payload json.RawMessage) (any, error)
	Default     func() any
}

// Registry is the catalog of known component kinds. It is filled during start-up,
// sealed, and then only read. Kinds are never removed.
type Registry struct {
	kinds  map[string]*Kind
	order  []string
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// Register adds a kind. A second registration of the same name fails and leaves
// the first descriptor in place.
func (r *Registry) Register(k Kind) error {
	if r.sealed {
		return eris.Wrapf(ErrSealed, "register %q", k.Name)
	}
	if k.Name == "" {
		return eris.Wrap(ErrInvalidKind, "empty name")
	}
	if k.Serialize == nil || k.Deserialize == nil || k.Default == nil {
		return eris.Wrapf(ErrInvalidKind, "%q is missing serialize, deserialize or default", k.Name)
	}
	if _, ok := r.kinds[k.Name]; ok {
		return eris.Wrapf(ErrDuplicateRegistration, "%q", k.Name)
	}
	r.kinds[k.Name] = &k
	r.order = append(r.order, k.Name)
	return nil
}

// Seal rejects any further registration.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Kind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "%q", name)
	}
	return k, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.kinds[name]
	return ok
}

// Names returns kind names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Order returns the registration position of name, or -1.
func (r *Registry) Order(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	return len(r.order)
}
