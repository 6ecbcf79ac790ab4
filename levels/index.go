package levels

import (
	"fmt"
	"path"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

const keyFilename = "filename"

// Index lists the level files of a game, as stored in index.yoli.
type Index struct {
	Header  map[string]json.RawMessage
	Entries []IndexEntry
}

// IndexEntry names one level file relative to the index file.
type IndexEntry struct {
	Filename string
	Extra    map[string]json.RawMessage
}

// MarshalJSON writes the entry as an object with Extra keys merged in.
func (e IndexEntry) MarshalJSON() ([]byte, error) {
	m := cloneRawMap(e.Extra)
	if m == nil {
		m = make(map[string]json.RawMessage, 1)
	}
	var err error
	if m[keyFilename], err = json.Marshal(e.Filename); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// MarshalJSON writes the index as the pair [header, entries].
func (idx Index) MarshalJSON() ([]byte, error) {
	header := idx.Header
	if header == nil {
		header = map[string]json.RawMessage{}
	}
	entries := idx.Entries
	if entries == nil {
		entries = []IndexEntry{}
	}
	return json.Marshal([]any{header, entries})
}

// DecodeIndex parses index text.
func DecodeIndex(text []byte) (*Index, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(text, &parts); err != nil || len(parts) != 2 {
		return nil, parseErrorf("", "index file must be a [header, levels] pair")
	}
	header, err := decodeObject(parts[0])
	if err != nil {
		return nil, &ParseError{Path: "header", Err: err}
	}
	var rawEntries []json.RawMessage
	if err := json.Unmarshal(parts[1], &rawEntries); err != nil {
		return nil, &ParseError{Path: "levels", Err: fmt.Errorf("level list must be an array: %w", err)}
	}
	idx := &Index{Header: header, Entries: make([]IndexEntry, 0, len(rawEntries))}
	for i, raw := range rawEntries {
		p := fmt.Sprintf("levels[%d]", i)
		m, err := decodeObject(raw)
		if err != nil {
			return nil, &ParseError{Path: p, Err: err}
		}
		var entry IndexEntry
		if err := json.Unmarshal(m[keyFilename], &entry.Filename); err != nil || entry.Filename == "" {
			return nil, parseErrorf(p+"."+keyFilename, "must be a non-empty string")
		}
		delete(m, keyFilename)
		if len(m) > 0 {
			entry.Extra = m
		}
		idx.Entries = append(idx.Entries, entry)
	}
	return idx, nil
}

// EncodeIndex writes an index as indented text.
func EncodeIndex(idx *Index) ([]byte, error) {
	if idx == nil {
		return nil, eris.New("levels: encode nil index")
	}
	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "levels: encode index")
	}
	return append(b, '\n'), nil
}

// Paths resolves entry filenames against the directory of indexPath, using
// slash-separated paths suitable for fs.FS.
func (idx *Index) Paths(indexPath string) []string {
	dir := path.Dir(indexPath)
	out := make([]string, len(idx.Entries))
	for i, e := range idx.Entries {
		out[i] = path.Join(dir, e.Filename)
	}
	return out
}

// Add appends filename unless it is already listed.
func (idx *Index) Add(filename string) bool {
	for _, e := range idx.Entries {
		if e.Filename == filename {
			return false
		}
	}
	idx.Entries = append(idx.Entries, IndexEntry{Filename: filename})
	return true
}
