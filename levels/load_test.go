package levels

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(SamplesFS, "samples")
	require.NoError(t, err)
	return sub
}

func TestIndex(t *testing.T) {
	idx, err := DecodeIndex([]byte(`[{"format_version": 1, "owner": "qa"}, [{"filename": "a.yol", "hidden": true}, {"filename": "sub/b.yol"}]]`))
	require.NoError(t, err)
	require.Len(t, idx.Entries, 2)
	assert.JSONEq(t, `true`, string(idx.Entries[0].Extra["hidden"]))
	assert.Equal(t, []string{"levels/a.yol", "levels/sub/b.yol"}, idx.Paths("levels/index.yoli"))
	assert.Equal(t, []string{"a.yol", "sub/b.yol"}, idx.Paths("index.yoli"))

	assert.False(t, idx.Add("a.yol"))
	assert.True(t, idx.Add("c.yol"))

	out, err := EncodeIndex(idx)
	require.NoError(t, err)
	back, err := DecodeIndex(out)
	require.NoError(t, err)
	assert.Equal(t, idx.Paths("x.yoli"), back.Paths("x.yoli"))
	assert.JSONEq(t, `"qa"`, string(back.Header["owner"]))
	assert.JSONEq(t, `true`, string(back.Entries[0].Extra["hidden"]))

	for _, bad := range []string{`{}`, `[{}, {}]`, `[{}, [{"name": "x"}]]`, `[[], []]`} {
		_, err := DecodeIndex([]byte(bad))
		assert.ErrorIs(t, err, ErrParse, bad)
	}
}

func TestLoadIndexLevels(t *testing.T) {
	codec := NewCodec(0, nil)
	loaded, err := LoadIndexLevels(context.Background(), samples(t), "index.yoli", NewCodec(1, nil))
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "intro.yol", loaded[0].Path)
	assert.Equal(t, "vault.yol", loaded[1].Path)
	assert.Len(t, loaded[0].Document.Entities, 3)
	assert.Equal(t, 0, loaded[1].Report.FromAppVersion)

	t.Run("missing level", func(t *testing.T) {
		fsys := fstest.MapFS{
			"index.yoli": {Data: []byte(`[{}, [{"filename": "gone.yol"}]]`)},
		}
		_, err := LoadIndexLevels(context.Background(), fsys, "index.yoli", codec)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("newer level", func(t *testing.T) {
		_, err := LoadIndexLevels(context.Background(), samples(t), "index.yoli", codec)
		assert.ErrorIs(t, err, ErrParse, "intro.yol is app version 1")
	})
}

func waitDone(t *testing.T, p *Pending) (Loaded, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if loaded, err, done := p.Poll(); done {
			return loaded, err
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("load did not finish")
	return Loaded{}, nil
}

func TestAsyncLoad(t *testing.T) {
	codec := NewCodec(1, nil)

	p := AsyncLoad(context.Background(), samples(t), "intro.yol", codec)
	loaded, err := waitDone(t, p)
	require.NoError(t, err)
	assert.Equal(t, "intro.yol", loaded.Path)
	assert.Len(t, loaded.Document.Entities, 3)

	t.Run("read error", func(t *testing.T) {
		p := AsyncLoad(context.Background(), fstest.MapFS{}, "nope.yol", codec)
		_, err := waitDone(t, p)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := AsyncLoad(ctx, samples(t), "intro.yol", codec)
		_, err := waitDone(t, p)
		assert.ErrorIs(t, err, ErrCanceled)
	})

	t.Run("ready", func(t *testing.T) {
		doc := NewDocument(1)
		loaded, err, done := Ready("x.yol", doc).Poll()
		require.True(t, done)
		require.NoError(t, err)
		assert.Same(t, doc, loaded.Document)
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "level.yol")

	doc, err := Decode([]byte(wallAndDoor))
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, doc))

	text, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := Decode(text)
	require.NoError(t, err)
	assert.True(t, Equal(doc, back))

	t.Run("failure leaves target untouched", func(t *testing.T) {
		target := filepath.Join(dir, "occupied")
		require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

		err := WriteFile(target, doc)
		require.Error(t, err)

		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
		}
	})

	t.Run("index", func(t *testing.T) {
		idx := &Index{Header: map[string]json.RawMessage{}}
		idx.Add("level.yol")
		indexPath := filepath.Join(dir, "index.yoli")
		require.NoError(t, WriteIndexFile(indexPath, idx))
		got, err := ReadIndex(os.DirFS(dir), "index.yoli")
		require.NoError(t, err)
		assert.Equal(t, []string{"level.yol"}, got.Paths("index.yoli"))
	})
}
