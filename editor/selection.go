package editor

import (
	"github.com/google/uuid"

	"github.com/milk9111/levelkit/ecs"
)

// Targets returns the UUIDs of entities other entities may reference, in level
// order. Entities of archetypes without HasUUID are left out. A target without
// a UUID is given one here, as a save would.
func (ed *Editor) Targets() []uuid.UUID {
	var out []uuid.UUID
	for _, s := range ed.slots {
		if s.orphan != nil || !s.archetype.HasUUID {
			continue
		}
		out = append(out, ed.assignUUID(s))
	}
	return out
}

// Selection returns the selected entities in level order.
func (ed *Editor) Selection() []ecs.Entity {
	if len(ed.selected) == 0 {
		return nil
	}
	out := make([]ecs.Entity, 0, len(ed.selected))
	for _, s := range ed.slots {
		if _, ok := ed.selected[s.entity]; ok && s.orphan == nil {
			out = append(out, s.entity)
		}
	}
	return out
}

func (ed *Editor) IsSelected(e ecs.Entity) bool {
	_, ok := ed.selected[e]
	return ok
}

// Select replaces the selection with e.
func (ed *Editor) Select(e ecs.Entity) bool {
	if !ed.Managed(e) {
		return false
	}
	clear(ed.selected)
	ed.selected[e] = struct{}{}
	return true
}

func (ed *Editor) AddToSelection(e ecs.Entity) bool {
	if !ed.Managed(e) {
		return false
	}
	ed.selected[e] = struct{}{}
	return true
}

// ToggleSelect adds e to the selection or removes it. It returns whether e is
// selected afterwards.
func (ed *Editor) ToggleSelect(e ecs.Entity) bool {
	if _, ok := ed.selected[e]; ok {
		delete(ed.selected, e)
		return false
	}
	return ed.AddToSelection(e)
}

func (ed *Editor) Deselect(e ecs.Entity) {
	delete(ed.selected, e)
}

func (ed *Editor) ClearSelection() {
	clear(ed.selected)
}
