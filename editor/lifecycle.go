package editor

import (
	"github.com/cespare/xxhash/v2"
)

// fingerprint hashes the serialized archetype components of s in archetype
// order. ok is false when a component cannot be serialized.
func (ed *Editor) fingerprint(s *slot) (uint64, bool) {
	d := xxhash.New()
	for _, kind := range s.archetype.Components {
		data, found := ed.host.Read(s.entity, kind)
		if !found {
			_, _ = d.WriteString(kind)
			_, _ = d.Write([]byte{0})
			continue
		}
		k, err := ed.comps.Get(kind)
		if err != nil {
			return 0, false
		}
		raw, err := k.Serialize(data)
		if err != nil {
			return 0, false
		}
		_, _ = d.WriteString(kind)
		_, _ = d.Write([]byte{1})
		_, _ = d.Write(raw)
	}
	return d.Sum64(), true
}

// syncLifecycle moves every entity one step along JustCreated, JustChanged and
// Synchronized. A changed fingerprint marks the level dirty.
func (ed *Editor) syncLifecycle() {
	for _, s := range ed.slots {
		if s.orphan != nil {
			continue
		}
		fp, ok := ed.fingerprint(s)
		switch {
		case !s.seen:
			s.seen = true
			s.lifecycle = JustCreated
		case !ok || fp != s.fingerprint:
			s.lifecycle = JustChanged
			ed.dirty = true
			ed.resolveSlotRefs(s)
		default:
			s.lifecycle = Synchronized
		}
		s.fingerprint = fp
	}
}

// refreshFingerprints records the state left by populate, so writes made by
// populate functions are not taken for edits.
func (ed *Editor) refreshFingerprints() {
	for _, s := range ed.slots {
		if s.orphan != nil {
			continue
		}
		if fp, ok := ed.fingerprint(s); ok {
			s.fingerprint = fp
		}
	}
}
