// Package levels holds the level document model and its .yol/.yoli wire formats.
package levels

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	// FormatVersion is the newest file layout this package writes.
	FormatVersion = 2

	keyFormatVersion    = "format_version"
	keyAppFormatVersion = "app_format_version"
	keyType             = "type"
	keyName             = "name"
	keyUUID             = "uuid"
)

// Document is the serializable state of one level.
type Document struct {
	Header   FileHeader
	Meta     map[string]json.RawMessage
	Entities []Entity
}

// FileHeader carries format bookkeeping. Keys this package does not know are kept
// in Extra and written back unchanged.
type FileHeader struct {
	FormatVersion    int
	AppFormatVersion int
	Extra            map[string]json.RawMessage
}

// Entity is one saved entity: its header plus opaque component payloads keyed
// by component kind name.
type Entity struct {
	Header     EntityHeader
	Components map[string]json.RawMessage
}

// EntityHeader names the archetype and identity of a saved entity.
type EntityHeader struct {
	Type  string
	Name  string
	UUID  uuid.UUID
	Extra map[string]json.RawMessage
}

// NewDocument returns an empty document at the current format version.
func NewDocument(appFormatVersion int) *Document {
	return &Document{
		Header: FileHeader{FormatVersion: FormatVersion, AppFormatVersion: appFormatVersion},
		Meta:   map[string]json.RawMessage{},
	}
}

// MarshalJSON writes the header as an object, with Extra keys merged in.
func (h FileHeader) MarshalJSON() ([]byte, error) {
	m := cloneRawMap(h.Extra)
	if m == nil {
		m = make(map[string]json.RawMessage, 2)
	}
	var err error
	if m[keyFormatVersion], err = json.Marshal(h.FormatVersion); err != nil {
		return nil, err
	}
	if m[keyAppFormatVersion], err = json.Marshal(h.AppFormatVersion); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// MarshalJSON writes the header as an object. Empty name and nil UUID are omitted.
func (h EntityHeader) MarshalJSON() ([]byte, error) {
	m := cloneRawMap(h.Extra)
	if m == nil {
		m = make(map[string]json.RawMessage, 3)
	}
	var err error
	if m[keyType], err = json.Marshal(h.Type); err != nil {
		return nil, err
	}
	if h.Name != "" {
		if m[keyName], err = json.Marshal(h.Name); err != nil {
			return nil, err
		}
	}
	if h.UUID != uuid.Nil {
		if m[keyUUID], err = json.Marshal(h.UUID.String()); err != nil {
			return nil, err
		}
	}
	return json.Marshal(m)
}

// MarshalJSON writes the entity as the pair [header, components].
func (e Entity) MarshalJSON() ([]byte, error) {
	comps := e.Components
	if comps == nil {
		comps = map[string]json.RawMessage{}
	}
	return json.Marshal([]any{e.Header, comps})
}

// MarshalJSON writes the document as the triple [header, meta, entities].
func (d Document) MarshalJSON() ([]byte, error) {
	meta := d.Meta
	if meta == nil {
		meta = map[string]json.RawMessage{}
	}
	entities := d.Entities
	if entities == nil {
		entities = []Entity{}
	}
	return json.Marshal([]any{d.Header, meta, entities})
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Header: FileHeader{
			FormatVersion:    d.Header.FormatVersion,
			AppFormatVersion: d.Header.AppFormatVersion,
			Extra:            cloneRawMap(d.Header.Extra),
		},
		Meta:     cloneRawMap(d.Meta),
		Entities: make([]Entity, len(d.Entities)),
	}
	for i, e := range d.Entities {
		out.Entities[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy of e.
func (e Entity) Clone() Entity {
	return Entity{
		Header: EntityHeader{
			Type:  e.Header.Type,
			Name:  e.Header.Name,
			UUID:  e.Header.UUID,
			Extra: cloneRawMap(e.Header.Extra),
		},
		Components: cloneRawMap(e.Components),
	}
}

// ComponentNames returns the component kind names of e, sorted.
func (e Entity) ComponentNames() []string {
	names := make([]string, 0, len(e.Components))
	for name := range e.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether a and b describe the same level. Payloads are compared
// after canonicalization, so key order and whitespace are not significant.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Header.FormatVersion != b.Header.FormatVersion ||
		a.Header.AppFormatVersion != b.Header.AppFormatVersion ||
		!rawMapsEqual(a.Header.Extra, b.Header.Extra) ||
		!rawMapsEqual(a.Meta, b.Meta) ||
		len(a.Entities) != len(b.Entities) {
		return false
	}
	for i := range a.Entities {
		if !EntitiesEqual(a.Entities[i], b.Entities[i]) {
			return false
		}
	}
	return true
}

// EntitiesEqual reports whether two entity records are semantically equal.
func EntitiesEqual(a, b Entity) bool {
	return a.Header.Type == b.Header.Type &&
		a.Header.Name == b.Header.Name &&
		a.Header.UUID == b.Header.UUID &&
		rawMapsEqual(a.Header.Extra, b.Header.Extra) &&
		rawMapsEqual(a.Components, b.Components)
}

func rawMapsEqual(a, b map[string]json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !RawEqual(av, bv) {
			return false
		}
	}
	return true
}

// RawEqual compares two JSON values semantically.
func RawEqual(a, b json.RawMessage) bool {
	ca, errA := Canonical(a)
	cb, errB := Canonical(b)
	if errA != nil || errB != nil {
		return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
	}
	return bytes.Equal(ca, cb)
}

// Canonical re-encodes a JSON value with sorted keys and no insignificant whitespace.
func Canonical(raw json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func cloneRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
