package editor

import (
	"github.com/milk9111/levelkit/ecs"
)

// State is the editor mode flag supplied by the host.
type State int

const (
	EditorActive State = iota
	GameActive
)

func (s State) String() string {
	switch s {
	case EditorActive:
		return "editor"
	case GameActive:
		return "game"
	default:
		return "unknown"
	}
}

// Lifecycle tracks how an entity's saved data changed since the last frame.
type Lifecycle int

const (
	JustCreated Lifecycle = iota
	JustChanged
	Synchronized
)

func (l Lifecycle) String() string {
	switch l {
	case JustCreated:
		return "just-created"
	case JustChanged:
		return "just-changed"
	case Synchronized:
		return "synchronized"
	default:
		return "unknown"
	}
}

// Reason tells a populate function why it is being called.
type Reason int

const (
	// Steady means nothing changed since the previous populate.
	Steady Reason = iota
	// EditorInit is the first populate of an entity in the editor.
	EditorInit
	// EditorUpdate follows an edit, a reload or a switch back into the editor.
	EditorUpdate
	// RealGame is a populate outside the editor after the entity was created or
	// changed, or after switching into the game.
	RealGame
)

func (r Reason) String() string {
	switch r {
	case Steady:
		return "steady"
	case EditorInit:
		return "editor-init"
	case EditorUpdate:
		return "editor-update"
	case RealGame:
		return "real-game"
	default:
		return "unknown"
	}
}

// PopulateContext is handed to a populate function for one entity.
type PopulateContext struct {
	Host   ecs.Host
	Entity ecs.Entity
	Reason Reason

	lifecycle Lifecycle
	state     State
}

// InEditor reports whether the populate happens inside the editor.
func (c *PopulateContext) InEditor() bool {
	return c.state == EditorActive
}

// FirstTime reports whether this is the first populate of the entity.
func (c *PopulateContext) FirstTime() bool {
	return c.lifecycle == JustCreated
}

// Lifecycle returns the entity's lifecycle for this frame.
func (c *PopulateContext) Lifecycle() Lifecycle {
	return c.lifecycle
}

// Read returns the entity's data for kind.
func (c *PopulateContext) Read(kind string) (any, bool) {
	return c.Host.Read(c.Entity, kind)
}

// EditContext is handed to an edit function once per frame for the selection.
type EditContext struct {
	host     ecs.Host
	entities []ecs.Entity
	widgets  Widgets
	passed   map[ecs.Entity]map[string]any
	ed       *Editor
}

// Host returns the host world.
func (c *EditContext) Host() ecs.Host {
	return c.host
}

// Entities returns the selected entities in level order.
func (c *EditContext) Entities() []ecs.Entity {
	return c.entities
}

// Entity returns the single selected entity. It is only meaningful for
// single-entity edit functions.
func (c *EditContext) Entity() ecs.Entity {
	if len(c.entities) == 0 {
		return 0
	}
	return c.entities[0]
}

func (c *EditContext) Get(e ecs.Entity, kind string) (any, bool) {
	return c.host.Read(e, kind)
}

func (c *EditContext) Set(e ecs.Entity, kind string, data any) error {
	return c.host.Attach(e, kind, data)
}

// Widgets returns the host's widget callbacks.
func (c *EditContext) Widgets() Widgets {
	return c.widgets
}

// Passed returns the value passed to e under key by a PassToEntity directive
// in the previous frame.
func (c *EditContext) Passed(e ecs.Entity, key string) (any, bool) {
	m, ok := c.passed[e]
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// PassToEntity queues a directive handing value to e's edit functions next
// frame.
func (c *EditContext) PassToEntity(e ecs.Entity, key string, value any) {
	c.ed.PassToEntity(e, key, value)
}

// SetSelected queues a directive replacing the selection with e.
func (c *EditContext) SetSelected(e ecs.Entity) {
	c.ed.SetSelected(e)
}
