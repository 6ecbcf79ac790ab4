package levels

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

var (
	ErrParse         = eris.New("levels: malformed level file")
	ErrConfiguration = eris.New("levels: invalid upgrade configuration")
)

// ParseError reports malformed level text. Path points at the offending element,
// for example "entities[3].header.uuid".
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("levels: parse: %v", e.Err)
	}
	return fmt.Sprintf("levels: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrParse) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func parseErrorf(path, format string, args ...any) error {
	return &ParseError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Decode parses level text. The file header is decoded first and drives any
// format upgrade before entity payloads are interpreted.
func Decode(text []byte) (*Document, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(text, &parts); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("level file must be an array: %w", err)}
	}
	if len(parts) != 3 {
		return nil, parseErrorf("", "level file must have 3 elements, got %d", len(parts))
	}

	header, err := decodeFileHeader(parts[0])
	if err != nil {
		return nil, err
	}

	meta, err := decodeObject(parts[1])
	if err != nil {
		return nil, &ParseError{Path: "meta", Err: err}
	}

	var rawEntities []json.RawMessage
	if err := json.Unmarshal(parts[2], &rawEntities); err != nil {
		return nil, &ParseError{Path: "entities", Err: fmt.Errorf("entity list must be an array: %w", err)}
	}

	if err := upgradeFormat(&header, rawEntities); err != nil {
		return nil, err
	}

	doc := &Document{Header: header, Meta: meta, Entities: make([]Entity, 0, len(rawEntities))}
	for i, raw := range rawEntities {
		e, err := decodeEntity(fmt.Sprintf("entities[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, e)
	}
	return doc, nil
}

// Encode writes a document as indented level text.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, eris.New("levels: encode nil document")
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "levels: encode")
	}
	return append(b, '\n'), nil
}

func decodeFileHeader(raw json.RawMessage) (FileHeader, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return FileHeader{}, &ParseError{Path: "header", Err: err}
	}
	var h FileHeader
	v, ok := m[keyFormatVersion]
	if !ok {
		return FileHeader{}, parseErrorf("header", "missing %q", keyFormatVersion)
	}
	if err := json.Unmarshal(v, &h.FormatVersion); err != nil || h.FormatVersion < 1 {
		return FileHeader{}, parseErrorf("header."+keyFormatVersion, "must be a positive integer")
	}
	if h.FormatVersion > FormatVersion {
		return FileHeader{}, parseErrorf("header."+keyFormatVersion, "version %d is newer than supported %d", h.FormatVersion, FormatVersion)
	}
	delete(m, keyFormatVersion)
	if v, ok := m[keyAppFormatVersion]; ok {
		if err := json.Unmarshal(v, &h.AppFormatVersion); err != nil || h.AppFormatVersion < 0 {
			return FileHeader{}, parseErrorf("header."+keyAppFormatVersion, "must be a non-negative integer")
		}
		delete(m, keyAppFormatVersion)
	}
	if len(m) > 0 {
		h.Extra = m
	}
	return h, nil
}

func decodeEntity(path string, raw json.RawMessage) (Entity, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return Entity{}, parseErrorf(path, "entity must be a [header, components] pair")
	}
	header, err := decodeEntityHeader(path+".header", pair[0])
	if err != nil {
		return Entity{}, err
	}
	comps, err := decodeObject(pair[1])
	if err != nil {
		return Entity{}, &ParseError{Path: path + ".components", Err: err}
	}
	return Entity{Header: header, Components: comps}, nil
}

func decodeEntityHeader(path string, raw json.RawMessage) (EntityHeader, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return EntityHeader{}, &ParseError{Path: path, Err: err}
	}
	var h EntityHeader
	if err := json.Unmarshal(m[keyType], &h.Type); err != nil || h.Type == "" {
		return EntityHeader{}, parseErrorf(path+"."+keyType, "must be a non-empty string")
	}
	delete(m, keyType)
	if v, ok := m[keyName]; ok {
		if err := json.Unmarshal(v, &h.Name); err != nil {
			return EntityHeader{}, parseErrorf(path+"."+keyName, "must be a string")
		}
		delete(m, keyName)
	}
	if v, ok := m[keyUUID]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return EntityHeader{}, parseErrorf(path+"."+keyUUID, "must be a string")
		}
		if s != "" {
			if h.UUID, err = uuid.Parse(s); err != nil {
				return EntityHeader{}, &ParseError{Path: path + "." + keyUUID, Err: err}
			}
		}
		delete(m, keyUUID)
	}
	if len(m) > 0 {
		h.Extra = m
	}
	return h, nil
}

// decodeObject decodes a JSON object into raw members. The result is never nil.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("must be an object")
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// upgradeFormat rewrites raw entities written by older file layouts in place.
func upgradeFormat(header *FileHeader, entities []json.RawMessage) error {
	for _, step := range formatUpgrades {
		if header.FormatVersion >= step.to {
			continue
		}
		for i := range entities {
			upgraded, err := step.fn(entities[i])
			if err != nil {
				return &ParseError{Path: fmt.Sprintf("entities[%d]", i), Err: fmt.Errorf("upgrade to format %d: %w", step.to, err)}
			}
			entities[i] = upgraded
		}
		header.FormatVersion = step.to
	}
	return nil
}

var formatUpgrades = []struct {
	to int
	fn func(json.RawMessage) (json.RawMessage, error)
}{
	{to: 2, fn: upgradeEntityV1toV2},
}

// upgradeEntityV1toV2 nests the flat v1 entity data under its type name, which
// became the component kind of the only component such entities had.
func upgradeEntityV1toV2(raw json.RawMessage) (json.RawMessage, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil, fmt.Errorf("entity must be a [header, data] pair")
	}
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(pair[0], &header); err != nil || strings.TrimSpace(header.Type) == "" {
		return nil, fmt.Errorf("entity header must have a %q field", keyType)
	}
	data := map[string]json.RawMessage{header.Type: pair[1]}
	return json.Marshal([]any{pair[0], data})
}
