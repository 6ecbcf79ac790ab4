package editor

import (
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/ecs/component"
	"github.com/milk9111/levelkit/ecs/entity"
	"github.com/milk9111/levelkit/ecs/entityref"
	"github.com/milk9111/levelkit/levels"
)

var (
	ErrNotManaged = eris.New("editor: entity is not part of the level")
)

// slot is one entry of the level in file order. Orphans are records whose
// archetype is unknown to this build; they are never materialized.
type slot struct {
	header    levels.EntityHeader
	entity    ecs.Entity
	archetype *entity.Archetype
	foreign   map[string]json.RawMessage
	orphan    *levels.Entity

	seen        bool
	lifecycle   Lifecycle
	fingerprint uint64
	repopulate  bool
}

func (s *slot) reason(state State) Reason {
	if s.lifecycle == Synchronized && !s.repopulate {
		return Steady
	}
	if state == GameActive {
		return RealGame
	}
	if s.lifecycle == JustCreated {
		return EditorInit
	}
	return EditorUpdate
}

type Option func(*Editor)

func WithLogger(log zerolog.Logger) Option {
	return func(ed *Editor) {
		ed.log = log
	}
}

func WithScheduler(s *Scheduler) Option {
	return func(ed *Editor) {
		if s != nil {
			ed.sched = s
		}
	}
}

func WithState(state State) Option {
	return func(ed *Editor) {
		ed.state = state
	}
}

func WithWidgets(w Widgets) Option {
	return func(ed *Editor) {
		if w != nil {
			ed.widgets = w
		}
	}
}

// Editor owns the loaded level: the mapping between file records and host
// entities, the entity index, the selection and the per-frame phases.
type Editor struct {
	host    ecs.Host
	comps   *component.Registry
	types   *entity.Registry
	codec   *levels.Codec
	sched   *Scheduler
	widgets Widgets
	log     zerolog.Logger

	state State
	frame uint64

	header levels.FileHeader
	meta   map[string]json.RawMessage
	loaded bool

	slots    []*slot
	byEntity map[ecs.Entity]*slot
	index    *entityref.Index

	selected   map[ecs.Entity]struct{}
	directives []directive
	passed     map[ecs.Entity]map[string]any

	pending *levels.Pending
	path    string
	dirty   bool
}

// New creates an editor over host. The registries are sealed; nothing may be
// registered once an editor exists.
func New(host ecs.Host, types *entity.Registry, codec *levels.Codec, opts ...Option) (*Editor, error) {
	if host == nil {
		return nil, eris.New("editor: host is nil")
	}
	if types == nil {
		return nil, eris.New("editor: entity type registry is nil")
	}
	if codec == nil {
		return nil, eris.New("editor: codec is nil")
	}
	if err := codec.Chain().Validate(); err != nil {
		return nil, err
	}
	types.Seal()

	ed := &Editor{
		host:     host,
		comps:    types.Components(),
		types:    types,
		codec:    codec,
		sched:    NewScheduler(),
		widgets:  NopWidgets{},
		log:      zerolog.Nop(),
		byEntity: make(map[ecs.Entity]*slot),
		index:    entityref.NewIndex(),
		selected: make(map[ecs.Entity]struct{}),
	}
	for _, opt := range opts {
		opt(ed)
	}
	ed.header = levels.FileHeader{FormatVersion: levels.FormatVersion, AppFormatVersion: codec.AppFormatVersion}
	return ed, nil
}

func (ed *Editor) Scheduler() *Scheduler {
	return ed.sched
}

func (ed *Editor) Host() ecs.Host {
	return ed.host
}

// Index returns the entity index of the loaded level.
func (ed *Editor) Index() *entityref.Index {
	return ed.index
}

func (ed *Editor) State() State {
	return ed.state
}

// SetState switches between editing and playing. Every entity is populated
// again on the next frame with the reason matching the new state.
func (ed *Editor) SetState(state State) {
	if state == ed.state {
		return
	}
	ed.state = state
	for _, s := range ed.slots {
		s.repopulate = true
	}
	ed.log.Info().Stringer("state", state).Msg("editor state changed")
}

// Loaded reports whether a level is loaded or was started with Spawn.
func (ed *Editor) Loaded() bool {
	return ed.loaded
}

// NeedsSaving reports whether the level changed since it was loaded or saved.
func (ed *Editor) NeedsSaving() bool {
	return ed.dirty
}

// Path is the file the current level was loaded from, if any.
func (ed *Editor) Path() string {
	return ed.path
}

func (ed *Editor) Frame() uint64 {
	return ed.frame
}

// Update runs one frame: a finished async load is committed, lifecycles are
// synced, populate runs, edit runs when the editor is active and queued
// directives are applied for the next frame.
func (ed *Editor) Update() FrameReport {
	ed.frame++
	report := FrameReport{Frame: ed.frame}

	ed.pollPending(&report)
	ed.syncLifecycle()
	ed.runPopulate(&report)
	ed.refreshFingerprints()
	if ed.state == EditorActive {
		ed.runEdit(&report)
	}
	ed.passed = nil
	ed.applyDirectives()

	for _, s := range ed.slots {
		s.repopulate = false
	}
	return report
}

// Entities returns the materialized entities in level order.
func (ed *Editor) Entities() []ecs.Entity {
	out := make([]ecs.Entity, 0, len(ed.slots))
	for _, s := range ed.slots {
		if s.orphan == nil {
			out = append(out, s.entity)
		}
	}
	return out
}

// Orphans returns the records kept verbatim because their archetype is
// unknown, in level order.
func (ed *Editor) Orphans() []levels.Entity {
	var out []levels.Entity
	for _, s := range ed.slots {
		if s.orphan != nil {
			out = append(out, s.orphan.Clone())
		}
	}
	return out
}

// Managed reports whether e belongs to the loaded level.
func (ed *Editor) Managed(e ecs.Entity) bool {
	_, ok := ed.byEntity[e]
	return ok
}

// Header returns the entity header of e. The UUID is nil until assigned.
func (ed *Editor) Header(e ecs.Entity) (levels.EntityHeader, bool) {
	s, ok := ed.byEntity[e]
	if !ok {
		return levels.EntityHeader{}, false
	}
	return s.header, true
}

func (ed *Editor) Lifecycle(e ecs.Entity) (Lifecycle, bool) {
	s, ok := ed.byEntity[e]
	if !ok {
		return 0, false
	}
	return s.lifecycle, true
}

// Spawn adds a default instance of the archetype at the end of the level and
// selects it.
func (ed *Editor) Spawn(typeName string) (ecs.Entity, error) {
	rec, err := ed.types.InstantiateDefault(typeName)
	if err != nil {
		return 0, err
	}
	built, err := ed.types.Build(ed.host, rec)
	if err != nil {
		return 0, err
	}
	if err := ed.index.Bind(rec.Header.UUID, built.Entity); err != nil {
		ed.host.Despawn(built.Entity)
		return 0, err
	}
	s := &slot{header: rec.Header, entity: built.Entity, archetype: built.Archetype}
	ed.slots = append(ed.slots, s)
	ed.byEntity[s.entity] = s
	ed.dirty = true
	ed.loaded = true

	ed.ClearSelection()
	ed.selected[s.entity] = struct{}{}
	ed.log.Debug().Str("type", typeName).Stringer("uuid", rec.Header.UUID).Msg("entity spawned")
	return s.entity, nil
}

// Despawn removes e from the level and the host.
func (ed *Editor) Despawn(e ecs.Entity) error {
	s, ok := ed.byEntity[e]
	if !ok {
		return eris.Wrapf(ErrNotManaged, "despawn %s", e)
	}
	ed.removeSlot(s)
	ed.host.Despawn(e)
	ed.index.Release(e)
	delete(ed.selected, e)
	delete(ed.passed, e)
	ed.dirty = true
	return nil
}

func (ed *Editor) removeSlot(s *slot) {
	i := slices.Index(ed.slots, s)
	if i >= 0 {
		ed.slots = slices.Delete(ed.slots, i, i+1)
	}
	delete(ed.byEntity, s.entity)
}

func (ed *Editor) Rename(e ecs.Entity, name string) error {
	s, ok := ed.byEntity[e]
	if !ok {
		return eris.Wrapf(ErrNotManaged, "rename %s", e)
	}
	if s.header.Name == name {
		return nil
	}
	s.header.Name = name
	ed.dirty = true
	return nil
}

// Position returns the index of e in the level, counting orphans.
func (ed *Editor) Position(e ecs.Entity) (int, bool) {
	s, ok := ed.byEntity[e]
	if !ok {
		return 0, false
	}
	return slices.Index(ed.slots, s), true
}

// MoveEntity moves e to position i of the level. Positions count orphans too,
// so they keep their place relative to their neighbours.
func (ed *Editor) MoveEntity(e ecs.Entity, i int) error {
	s, ok := ed.byEntity[e]
	if !ok {
		return eris.Wrapf(ErrNotManaged, "move %s", e)
	}
	if i < 0 || i >= len(ed.slots) {
		return eris.Errorf("editor: move %s: position %d out of range [0,%d)", e, i, len(ed.slots))
	}
	from := slices.Index(ed.slots, s)
	if from == i {
		return nil
	}
	ed.slots = slices.Delete(ed.slots, from, from+1)
	ed.slots = slices.Insert(ed.slots, i, s)
	ed.dirty = true
	return nil
}

func (ed *Editor) assignUUID(s *slot) uuid.UUID {
	if s.header.UUID == uuid.Nil {
		s.header.UUID = ed.index.Assign(s.entity)
	}
	return s.header.UUID
}
