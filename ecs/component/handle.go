package component

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Handle is a typed view of a registered kind.
type Handle[T any] struct {
	name string
}

// Name returns the kind name.
func (h Handle[T]) Name() string {
	return h.name
}

// Valid reports whether the handle came from Register.
func (h Handle[T]) Valid() bool {
	return h.name != ""
}

// Register adds a JSON-backed kind for T. Component data is stored as *T.
func Register[T any](r *Registry, name string, def func() T) (Handle[T], error) {
	if def == nil {
		def = func() T {
			var zero T
			return zero
		}
	}
	err := r.Register(Kind{
		Name: name,
		Serialize: func(data any) (json.RawMessage, error) {
			v, err := As[T](data)
			if err != nil {
				return nil, eris.Wrapf(err, "serialize %q", name)
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, eris.Wrapf(err, "serialize %q", name)
			}
			return b, nil
		},
		Deserialize: func(payload json.RawMessage) (any, error) {
			v := def()
			if len(payload) == 0 {
				return &v, nil
			}
			if err := json.Unmarshal(payload, &v); err != nil {
				return nil, eris.Wrapf(err, "deserialize %q", name)
			}
			return &v, nil
		},
		Default: func() any {
			v := def()
			return &v
		},
	})
	if err != nil {
		return Handle[T]{}, err
	}
	return Handle[T]{name: name}, nil
}

// As converts stored component data to *T.
func As[T any](data any) (*T, error) {
	switch v := data.(type) {
	case *T:
		if v == nil {
			return nil, eris.Wrap(ErrInvalidKind, "nil component pointer")
		}
		return v, nil
	case T:
		return &v, nil
	default:
		var zero T
		return nil, eris.Wrapf(ErrInvalidKind, "have %T, want %T", data, &zero)
	}
}
