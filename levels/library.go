package levels

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"

	"github.com/rotisserie/eris"
)

var ErrReadOnly = eris.New("levels: library is read-only")

// Library is the set of levels an index file lists. Paths are slash-separated
// and relative to the root of fsys.
type Library struct {
	fsys      fs.FS
	dir       string
	indexPath string
	index     *Index
}

// OpenLibrary reads indexPath from fsys. A missing index gives an empty library.
// dir is the disk directory behind fsys; an empty dir makes the library
// read-only.
func OpenLibrary(fsys fs.FS, dir, indexPath string) (*Library, error) {
	lib := &Library{fsys: fsys, dir: dir, indexPath: indexPath, index: &Index{}}
	idx, err := ReadIndex(fsys, indexPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		lib.index = idx
	}
	return lib, nil
}

// Levels returns the listed level paths in index order.
func (l *Library) Levels() []string {
	return l.index.Paths(l.indexPath)
}

// Next returns the level step places after current, wrapping around. A level
// that is not listed counts as sitting before the first one.
func (l *Library) Next(current string, step int) (string, bool) {
	levels := l.Levels()
	n := len(levels)
	if n == 0 {
		return "", false
	}
	i := slices.Index(levels, current)
	if i < 0 {
		if step > 0 {
			return levels[0], true
		}
		return levels[n-1], true
	}
	return levels[((i+step)%n+n)%n], true
}

// NewLevelName returns the first level-N.yol that is neither listed nor present
// next to the index.
func (l *Library) NewLevelName() string {
	listed := l.Levels()
	base := path.Dir(l.indexPath)
	for i := 1; ; i++ {
		name := path.Join(base, fmt.Sprintf("level-%d.yol", i))
		if slices.Contains(listed, name) {
			continue
		}
		if _, err := fs.Stat(l.fsys, name); err == nil {
			continue
		}
		return name
	}
}

// Add lists level and writes the index back to disk. level is relative to the
// root of the library, like the paths Levels returns.
func (l *Library) Add(level string) error {
	if l.dir == "" {
		return eris.Wrapf(ErrReadOnly, "add %q", level)
	}
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(l.indexPath)), filepath.FromSlash(level))
	if err != nil {
		return eris.Wrapf(err, "add %q", level)
	}
	if !l.index.Add(filepath.ToSlash(rel)) {
		return nil
	}
	return WriteIndexFile(l.DiskPath(l.indexPath), l.index)
}

// DiskPath maps a library path to the file behind it.
func (l *Library) DiskPath(name string) string {
	return filepath.Join(l.dir, filepath.FromSlash(name))
}

// ReadOnly reports whether the library is backed by embedded files.
func (l *Library) ReadOnly() bool {
	return l.dir == ""
}
