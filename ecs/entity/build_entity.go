package entity

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/levels"
)

// InstantiateDefault returns a new record of the archetype with every component
// set to its default, in archetype order, and a fresh UUID.
func (r *Registry) InstantiateDefault(name string) (levels.Entity, error) {
	a, err := r.Get(name)
	if err != nil {
		return levels.Entity{}, err
	}
	rec := levels.Entity{
		Header:     levels.EntityHeader{Type: name, UUID: uuid.New()},
		Components: make(map[string]json.RawMessage, len(a.Components)),
	}
	for _, kind := range a.Components {
		payload, err := r.defaultPayload(a, kind)
		if err != nil {
			return levels.Entity{}, eris.Wrapf(err, "instantiate %q", name)
		}
		rec.Components[kind] = payload
	}
	return rec, nil
}

func (r *Registry) defaultPayload(a *Archetype, kind string) (json.RawMessage, error) {
	if raw, ok := a.Defaults[kind]; ok {
		return append(json.RawMessage(nil), raw...), nil
	}
	k, err := r.kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	return k.Serialize(k.Default())
}

func (r *Registry) defaultData(a *Archetype, kind string) (any, error) {
	k, err := r.kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	if raw, ok := a.Defaults[kind]; ok {
		return k.Deserialize(raw)
	}
	return k.Default(), nil
}

// Built is an entity materialized from a record.
type Built struct {
	Entity    ecs.Entity
	Archetype *Archetype
	// Foreign holds payloads of kinds the archetype does not own. They are kept
	// verbatim so saving does not drop them.
	Foreign map[string]json.RawMessage
}

// Build spawns an entity for rec and attaches the archetype's components in
// archetype order. Saved payloads are deserialized; missing ones get defaults.
// On any failure the spawned entity is despawned again.
func (r *Registry) Build(host ecs.Host, rec levels.Entity) (Built, error) {
	if host == nil {
		return Built{}, eris.New("build entity: host is nil")
	}
	a, ok := r.types[rec.Header.Type]
	if !ok {
		return Built{}, eris.Wrapf(ErrUnknownArchetype, "build entity: %q", rec.Header.Type)
	}

	e := host.Spawn()
	for _, kind := range a.Components {
		data, err := r.componentData(a, kind, rec.Components)
		if err != nil {
			host.Despawn(e)
			return Built{}, eris.Wrapf(err, "build entity: %q: add %q", a.Name, kind)
		}
		if err := host.Attach(e, kind, data); err != nil {
			host.Despawn(e)
			return Built{}, eris.Wrapf(err, "build entity: %q: add %q", a.Name, kind)
		}
	}

	built := Built{Entity: e, Archetype: a}
	for name, raw := range rec.Components {
		if a.Owns(name) {
			continue
		}
		if built.Foreign == nil {
			built.Foreign = make(map[string]json.RawMessage)
		}
		built.Foreign[name] = append(json.RawMessage(nil), raw...)
	}
	return built, nil
}

func (r *Registry) componentData(a *Archetype, kind string, saved map[string]json.RawMessage) (any, error) {
	raw, ok := saved[kind]
	if !ok {
		return r.defaultData(a, kind)
	}
	k, err := r.kinds.Get(kind)
	if err != nil {
		return nil, err
	}
	return k.Deserialize(raw)
}

// Extract serializes the archetype components of e back into payloads. Kinds
// the host no longer holds are skipped.
func (r *Registry) Extract(host ecs.Host, e ecs.Entity, a *Archetype) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(a.Components))
	for _, kind := range a.Components {
		data, ok := host.Read(e, kind)
		if !ok {
			continue
		}
		k, err := r.kinds.Get(kind)
		if err != nil {
			return nil, err
		}
		raw, err := k.Serialize(data)
		if err != nil {
			return nil, eris.Wrapf(err, "extract %q from %s", kind, e)
		}
		out[kind] = raw
	}
	return out, nil
}
