package editor

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/ecs/entity"
	"github.com/milk9111/levelkit/ecs/entityref"
	"github.com/milk9111/levelkit/levels"
)

// Orphan is a record whose archetype this build does not know. It is kept
// verbatim at its position.
type Orphan struct {
	Index int
	Type  string
	UUID  uuid.UUID
}

// UnknownKind is a component payload kept verbatim on a materialized entity.
type UnknownKind struct {
	Index int
	Kind  string
}

// EntityError is a record that could not be materialized for a reason other
// than an unknown archetype. It is kept verbatim like an orphan.
type EntityError struct {
	Index int
	Err   error
}

type LoadReport struct {
	Entities          int
	UnknownArchetypes []Orphan
	UnknownKinds      []UnknownKind
	Failed            []EntityError
	Upgrade           levels.UpgradeReport
}

// Load replaces the current level with doc. Nothing changes when it fails.
func (ed *Editor) Load(doc *levels.Document) (LoadReport, error) {
	var report LoadReport
	if doc == nil {
		return report, eris.New("editor: load: document is nil")
	}
	doc = doc.Clone()

	upgrade, err := ed.codec.Upgrade(doc)
	report.Upgrade = upgrade
	if err != nil {
		return report, eris.Wrap(err, "editor: load")
	}
	if err := checkUUIDs(doc); err != nil {
		return report, err
	}

	index := entityref.NewIndex()
	slots := make([]*slot, 0, len(doc.Entities))
	for i, rec := range doc.Entities {
		s, err := ed.build(rec)
		if err != nil {
			orphan := rec.Clone()
			s = &slot{header: rec.Header, orphan: &orphan}
			if eris.Is(err, entity.ErrUnknownArchetype) {
				report.UnknownArchetypes = append(report.UnknownArchetypes, Orphan{Index: i, Type: rec.Header.Type, UUID: rec.Header.UUID})
				ed.log.Warn().Str("type", rec.Header.Type).Stringer("uuid", rec.Header.UUID).Msg("unknown archetype kept verbatim")
			} else {
				report.Failed = append(report.Failed, EntityError{Index: i, Err: err})
				ed.log.Error().Err(err).Str("type", rec.Header.Type).Stringer("uuid", rec.Header.UUID).Msg("entity kept verbatim")
			}
			slots = append(slots, s)
			continue
		}
		if rec.Header.UUID != uuid.Nil {
			// checkUUIDs already rejected duplicates.
			_ = index.Bind(rec.Header.UUID, s.entity)
		}
		for _, kind := range rec.ComponentNames() {
			if _, ok := s.foreign[kind]; ok {
				report.UnknownKinds = append(report.UnknownKinds, UnknownKind{Index: i, Kind: kind})
			}
		}
		slots = append(slots, s)
		report.Entities++
	}

	ed.unload()
	ed.header = doc.Header
	ed.meta = doc.Meta
	ed.slots = slots
	ed.index = index
	for _, s := range slots {
		if s.orphan == nil {
			ed.byEntity[s.entity] = s
		}
	}
	ed.loaded = true
	ed.dirty = false
	ed.resolveRefs()

	ed.log.Info().
		Int("entities", report.Entities).
		Int("orphans", len(report.UnknownArchetypes)+len(report.Failed)).
		Int("unknown_kinds", len(report.UnknownKinds)).
		Msg("level loaded")
	return report, nil
}

func checkUUIDs(doc *levels.Document) error {
	seen := make(map[uuid.UUID]int, len(doc.Entities))
	for i, rec := range doc.Entities {
		u := rec.Header.UUID
		if u == uuid.Nil {
			continue
		}
		if first, ok := seen[u]; ok {
			return eris.Wrapf(entityref.ErrDuplicateUUID, "editor: load: entities[%d] and entities[%d] share %s", first, i, u)
		}
		seen[u] = i
	}
	return nil
}

func (ed *Editor) build(rec levels.Entity) (*slot, error) {
	built, err := ed.types.Build(ed.host, rec)
	if err != nil {
		return nil, err
	}
	return &slot{
		header:    rec.Header,
		entity:    built.Entity,
		archetype: built.Archetype,
		foreign:   built.Foreign,
	}, nil
}

// unload despawns the current level.
func (ed *Editor) unload() {
	for _, s := range ed.slots {
		if s.orphan == nil {
			ed.host.Despawn(s.entity)
		}
	}
	ed.slots = nil
	clear(ed.byEntity)
	clear(ed.selected)
	ed.index.Reset()
	ed.directives = nil
	ed.passed = nil
}

// Unload despawns the current level and leaves an empty one.
func (ed *Editor) Unload() {
	ed.unload()
	ed.header = levels.FileHeader{FormatVersion: levels.FormatVersion, AppFormatVersion: ed.codec.AppFormatVersion}
	ed.meta = nil
	ed.loaded = false
	ed.dirty = false
	ed.path = ""
}

// resolveRefs resolves every entity reference held by a component that
// implements entityref.Resolver.
func (ed *Editor) resolveRefs() {
	for _, s := range ed.slots {
		if s.orphan == nil {
			ed.resolveSlotRefs(s)
		}
	}
}

func (ed *Editor) resolveSlotRefs(s *slot) {
	for _, kind := range s.archetype.Components {
		data, ok := ed.host.Read(s.entity, kind)
		if !ok {
			continue
		}
		if r, ok := data.(entityref.Resolver); ok {
			r.ResolveRefs(ed.index)
		}
	}
}

// LoadAsync hands the editor a load in flight. Update commits it once it is
// done. A previous pending load is cancelled.
func (ed *Editor) LoadAsync(p *levels.Pending) {
	if ed.pending != nil {
		ed.pending.Cancel()
	}
	ed.pending = p
}

// CancelLoad drops interest in the pending load.
func (ed *Editor) CancelLoad() {
	if ed.pending != nil {
		ed.pending.Cancel()
		ed.pending = nil
	}
}

// Loading reports whether a load is pending.
func (ed *Editor) Loading() bool {
	return ed.pending != nil
}

func (ed *Editor) pollPending(report *FrameReport) {
	if ed.pending == nil {
		return
	}
	loaded, err, done := ed.pending.Poll()
	if !done {
		return
	}
	ed.pending = nil
	if err != nil {
		report.LoadErr = err
		ed.log.Error().Err(err).Str("path", loaded.Path).Msg("level load failed")
		return
	}
	lr, err := ed.Load(loaded.Document)
	report.Load = &lr
	if err != nil {
		report.LoadErr = err
		ed.log.Error().Err(err).Str("path", loaded.Path).Msg("level rejected")
		return
	}
	ed.path = loaded.Path
}

// Save returns the level as a document in level order and clears the dirty
// flag. Entities without a UUID get one.
func (ed *Editor) Save() (*levels.Document, error) {
	doc, err := ed.snapshot()
	if err != nil {
		return nil, err
	}
	ed.dirty = false
	return doc, nil
}

// SaveFile writes the level to path atomically. On failure the file and the
// dirty flag are left as they were.
func (ed *Editor) SaveFile(path string) error {
	doc, err := ed.snapshot()
	if err != nil {
		return err
	}
	if err := levels.WriteFile(path, doc); err != nil {
		return err
	}
	ed.dirty = false
	ed.log.Info().Str("path", path).Int("entities", len(doc.Entities)).Msg("level saved")
	return nil
}

func (ed *Editor) snapshot() (*levels.Document, error) {
	doc := &levels.Document{
		Header: ed.header,
		Meta:   cloneRaw(ed.meta),
	}
	doc.Header.Extra = cloneRaw(ed.header.Extra)
	doc.Header.FormatVersion = levels.FormatVersion
	doc.Header.AppFormatVersion = ed.codec.AppFormatVersion
	if doc.Meta == nil {
		doc.Meta = map[string]json.RawMessage{}
	}

	doc.Entities = make([]levels.Entity, 0, len(ed.slots))
	for _, s := range ed.slots {
		if s.orphan != nil {
			doc.Entities = append(doc.Entities, s.orphan.Clone())
			continue
		}
		ed.assignUUID(s)
		rec, err := ed.record(s)
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, rec)
	}
	return doc, nil
}

func (ed *Editor) record(s *slot) (levels.Entity, error) {
	components, err := ed.types.Extract(ed.host, s.entity, s.archetype)
	if err != nil {
		return levels.Entity{}, err
	}
	for kind, raw := range s.foreign {
		if _, ok := components[kind]; !ok {
			components[kind] = append(json.RawMessage(nil), raw...)
		}
	}
	header := s.header
	if u, ok := ed.index.UUIDOf(s.entity); ok && header.UUID == uuid.Nil {
		header.UUID = u
	}
	header.Extra = cloneRaw(s.header.Extra)
	return levels.Entity{Header: header, Components: components}, nil
}

// Record returns the saved form of e. It changes nothing: an entity that has
// never been saved or referenced comes back with a nil UUID.
func (ed *Editor) Record(e ecs.Entity) (levels.Entity, error) {
	s, ok := ed.byEntity[e]
	if !ok {
		return levels.Entity{}, eris.Wrapf(ErrNotManaged, "record %s", e)
	}
	return ed.record(s)
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
