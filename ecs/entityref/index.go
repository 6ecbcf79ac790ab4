// Package entityref maps persistent entity UUIDs to live entity handles.
package entityref

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs"
)

var (
	ErrDuplicateUUID = eris.New("entityref: uuid already bound")
	ErrHandleBound   = eris.New("entityref: entity already has a uuid")
	ErrNilUUID       = eris.New("entityref: nil uuid")
)

// Index keeps the UUID <-> entity bijection for one loaded level.
type Index struct {
	byUUID   map[uuid.UUID]ecs.Entity
	byEntity map[ecs.Entity]uuid.UUID
}

func NewIndex() *Index {
	return &Index{
		byUUID:   make(map[uuid.UUID]ecs.Entity),
		byEntity: make(map[ecs.Entity]uuid.UUID),
	}
}

// Assign binds a fresh UUID to e. An entity that already has one keeps it.
func (x *Index) Assign(e ecs.Entity) uuid.UUID {
	if u, ok := x.byEntity[e]; ok {
		return u
	}
	u := uuid.New()
	for _, taken := x.byUUID[u]; taken; _, taken = x.byUUID[u] {
		u = uuid.New()
	}
	x.byUUID[u] = e
	x.byEntity[e] = u
	return u
}

// Bind binds an explicit UUID to e, as read from a level file.
func (x *Index) Bind(u uuid.UUID, e ecs.Entity) error {
	if u == uuid.Nil {
		return eris.Wrapf(ErrNilUUID, "bind %s", e)
	}
	if other, ok := x.byUUID[u]; ok {
		if other == e {
			return nil
		}
		return eris.Wrapf(ErrDuplicateUUID, "%s is bound to %s", u, other)
	}
	if have, ok := x.byEntity[e]; ok {
		return eris.Wrapf(ErrHandleBound, "%s has %s", e, have)
	}
	x.byUUID[u] = e
	x.byEntity[e] = u
	return nil
}

// Resolve returns the live entity bound to u.
func (x *Index) Resolve(u uuid.UUID) (ecs.Entity, bool) {
	e, ok := x.byUUID[u]
	return e, ok
}

// UUIDOf returns the UUID bound to e.
func (x *Index) UUIDOf(e ecs.Entity) (uuid.UUID, bool) {
	u, ok := x.byEntity[e]
	return u, ok
}

// Release unbinds e, typically on despawn.
func (x *Index) Release(e ecs.Entity) bool {
	u, ok := x.byEntity[e]
	if !ok {
		return false
	}
	delete(x.byEntity, e)
	delete(x.byUUID, u)
	return true
}

// Len returns the number of bound entities.
func (x *Index) Len() int {
	return len(x.byUUID)
}

// Reset drops every binding.
func (x *Index) Reset() {
	clear(x.byUUID)
	clear(x.byEntity)
}
