package ecs

import "github.com/milk9111/levelkit/ecs/component"

// Add attaches value under the handle's kind. Registered kinds store *T.
func Add[T any](w Host, e Entity, handle component.Handle[T], value *T) error {
	if value == nil {
		return ErrNilComponent
	}
	return w.Attach(e, handle.Name(), value)
}

func Remove[T any](w Host, e Entity, handle component.Handle[T]) bool {
	return w.Detach(e, handle.Name())
}

func Has[T any](w Host, e Entity, handle component.Handle[T]) bool {
	_, ok := w.Read(e, handle.Name())
	return ok
}

// Get returns the component stored under the handle's kind.
func Get[T any](w Host, e Entity, handle component.Handle[T]) (*T, bool) {
	value, ok := w.Read(e, handle.Name())
	if !ok {
		return nil, false
	}
	cast, err := component.As[T](value)
	if err != nil {
		return nil, false
	}
	return cast, true
}
