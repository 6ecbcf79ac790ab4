package ecs

import (
	"sort"

	"github.com/rotisserie/eris"
)

var (
	ErrEntityNotAlive = eris.New("ecs: entity not alive")
	ErrNilComponent   = eris.New("ecs: component is nil")
	ErrEmptyKind      = eris.New("ecs: empty component kind")
)

// Host is the narrow surface the editor needs from the game's object model.
type Host interface {
	Spawn() Entity
	Despawn(e Entity) bool
	Attach(e Entity, kind string, data any) error
	Detach(e Entity, kind string) bool
	Read(e Entity, kind string) (any, bool)
}

// System updates a world each frame.
type System interface {
	Update(w *World)
}

// World owns entities, components keyed by kind name, and system order.
type World struct {
	entities entityStore
	stores   map[string]*SparseSet
	systems  []System
	events   EventQueue
}

var _ Host = (*World)(nil)

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: make(map[string]*SparseSet)}
}

// Spawn allocates a new entity.
func (w *World) Spawn() Entity {
	e := w.entities.create()
	w.events.Push(Event{Type: EventSpawned, Entity: e})
	return e
}

// Despawn destroys e and drops all of its components.
func (w *World) Despawn(e Entity) bool {
	if !w.entities.destroy(e) {
		return false
	}
	for _, s := range w.stores {
		s.purge(e.id())
	}
	w.events.Push(Event{Type: EventDespawned, Entity: e})
	return true
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns live entities in ascending id order.
func (w *World) Entities() []Entity {
	if w == nil {
		return nil
	}
	return w.entities.alive()
}

// Attach inserts or replaces the component of the given kind on e.
func (w *World) Attach(e Entity, kind string, data any) error {
	if kind == "" {
		return ErrEmptyKind
	}
	if data == nil {
		return eris.Wrapf(ErrNilComponent, "attach %q to %s", kind, e)
	}
	if !w.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "attach %q to %s", kind, e)
	}
	w.store(kind).Set(e, data)
	return nil
}

// Detach removes the component of the given kind from e.
func (w *World) Detach(e Entity, kind string) bool {
	if !w.IsAlive(e) {
		return false
	}
	s, ok := w.stores[kind]
	if !ok {
		return false
	}
	return s.Remove(e)
}

// Read returns the component of the given kind on e.
func (w *World) Read(e Entity, kind string) (any, bool) {
	if !w.IsAlive(e) {
		return nil, false
	}
	return w.stores[kind].Get(e)
}

// Kinds returns the kinds present on e, sorted by name.
func (w *World) Kinds(e Entity) []string {
	if !w.IsAlive(e) {
		return nil
	}
	var out []string
	for kind, s := range w.stores {
		if s.Has(e) {
			out = append(out, kind)
		}
	}
	sort.Strings(out)
	return out
}

// Query returns live entities holding every listed kind, in ascending id order.
func (w *World) Query(kinds ...string) []Entity {
	if w == nil {
		return nil
	}
	if len(kinds) == 0 {
		return w.Entities()
	}
	sets := make([]*SparseSet, 0, len(kinds))
	for _, k := range kinds {
		s, ok := w.stores[k]
		if !ok || s.Len() == 0 {
			return nil
		}
		sets = append(sets, s)
	}
	return IntersectEntities(sets...)
}

func (w *World) store(kind string) *SparseSet {
	if w.stores == nil {
		w.stores = make(map[string]*SparseSet)
	}
	s, ok := w.stores[kind]
	if !ok {
		s = &SparseSet{}
		w.stores[kind] = s
	}
	return s
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

// Update runs all systems once and then clears the event queue.
func (w *World) Update() {
	if w == nil {
		return
	}
	for _, s := range w.systems {
		s.Update(w)
	}
	w.events.flush()
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}
