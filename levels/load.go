package levels

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

var ErrCanceled = eris.New("levels: load canceled")

// Loaded is one decoded level together with what the upgrade pass did to it.
type Loaded struct {
	Path     string
	Document *Document
	Report   UpgradeReport
}

// ReadLevel reads and decodes one level file.
func ReadLevel(fsys fs.FS, name string, codec *Codec) (Loaded, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Loaded{}, eris.Wrapf(err, "read level %q", name)
	}
	doc, report, err := codec.Decode(data)
	if err != nil {
		return Loaded{}, eris.Wrapf(err, "load level %q", name)
	}
	return Loaded{Path: name, Document: doc, Report: report}, nil
}

// ReadIndex reads and decodes an index file.
func ReadIndex(fsys fs.FS, name string) (*Index, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, eris.Wrapf(err, "read index %q", name)
	}
	idx, err := DecodeIndex(data)
	if err != nil {
		return nil, eris.Wrapf(err, "load index %q", name)
	}
	return idx, nil
}

// LoadIndexLevels reads every level listed in the index concurrently and returns
// them in index order. The first failure cancels the rest.
func LoadIndexLevels(ctx context.Context, fsys fs.FS, indexPath string, codec *Codec) ([]Loaded, error) {
	idx, err := ReadIndex(fsys, indexPath)
	if err != nil {
		return nil, err
	}
	paths := idx.Paths(indexPath)
	out := make([]Loaded, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			loaded, err := ReadLevel(fsys, p, codec)
			if err != nil {
				return err
			}
			out[i] = loaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pending is a level load running in the background. The editor polls it once
// per frame instead of waiting on it.
type Pending struct {
	Path string

	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	result Loaded
	err    error
}

// AsyncLoad starts reading and decoding name in a goroutine.
func AsyncLoad(ctx context.Context, fsys fs.FS, name string, codec *Codec) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{Path: name, done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(p.done)
		loaded, err := ReadLevel(fsys, name, codec)
		if ctx.Err() != nil {
			err = ErrCanceled
		}
		p.mu.Lock()
		p.result, p.err = loaded, err
		p.mu.Unlock()
	}()
	return p
}

// Ready wraps an already decoded document as a finished load.
func Ready(name string, doc *Document) *Pending {
	p := &Pending{Path: name, done: make(chan struct{}), cancel: func() {}, result: Loaded{Path: name, Document: doc}}
	close(p.done)
	return p
}

// Poll reports the result without blocking. done is false while the load runs.
func (p *Pending) Poll() (loaded Loaded, err error, done bool) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err, true
	default:
		return Loaded{}, nil, false
	}
}

// Cancel abandons the load. Its result, if any, is discarded.
func (p *Pending) Cancel() {
	p.cancel()
}

// WriteFile saves doc to path by writing a sibling temp file and renaming it over
// the target, so a failed save never leaves a truncated level behind.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteIndexFile saves idx to path atomically.
func WriteIndexFile(path string, idx *Index) error {
	data, err := EncodeIndex(idx)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "create %q", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "save %q", path)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(err, "save %q", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrapf(err, "save %q", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrapf(err, "save %q", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "save %q", path)
	}
	return nil
}
