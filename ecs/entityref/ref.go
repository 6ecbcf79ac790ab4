package entityref

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/milk9111/levelkit/ecs"
)

// Ref points at another entity by UUID so the link survives save and reload.
// The live handle is cached by Resolve and never serialized.
type Ref struct {
	UUID     uuid.UUID
	resolved ecs.Entity
	ok       bool
}

func NewRef(u uuid.UUID) Ref {
	return Ref{UUID: u}
}

func (r Ref) IsSome() bool {
	return r.UUID != uuid.Nil
}

// Set points the reference at u and drops the cached handle.
func (r *Ref) Set(u uuid.UUID) {
	r.UUID = u
	r.resolved, r.ok = 0, false
}

func (r *Ref) Clear() {
	r.Set(uuid.Nil)
}

// Resolve looks the UUID up in idx and caches the result.
func (r *Ref) Resolve(idx *Index) {
	r.resolved, r.ok = 0, false
	if idx == nil || !r.IsSome() {
		return
	}
	r.resolved, r.ok = idx.Resolve(r.UUID)
}

// Get returns the handle found by the last Resolve.
func (r Ref) Get() (ecs.Entity, bool) {
	return r.resolved, r.ok
}

type refJSON struct {
	UUID *uuid.UUID `json:"uuid,omitempty"`
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.IsSome() {
		return json.Marshal(refJSON{})
	}
	u := r.UUID
	return json.Marshal(refJSON{UUID: &u})
}

// UnmarshalJSON accepts {"uuid": "..."} and, for hand-written levels, a bare
// UUID string.
func (r *Ref) UnmarshalJSON(b []byte) error {
	r.resolved, r.ok = 0, false
	r.UUID = uuid.Nil
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		r.UUID = u
		return nil
	}
	var raw refJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.UUID != nil {
		r.UUID = *raw.UUID
	}
	return nil
}

// Resolver is implemented by component data holding Refs, so loading a level can
// resolve them once every UUID is bound.
type Resolver interface {
	ResolveRefs(idx *Index)
}

// ResolveRefs lets a Ref be stored as component data on its own.
func (r *Ref) ResolveRefs(idx *Index) {
	r.Resolve(idx)
}
