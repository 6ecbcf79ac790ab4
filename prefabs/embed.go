package prefabs

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// bundled holds the archetype definitions and upgrade scripts built into the
// binary.
//
//go:embed archetypes.yaml scripts/*.tengo
var bundled embed.FS

// Dir is a directory whose files shadow the bundled ones, so archetypes and
// upgrade scripts can be tuned without a rebuild. Empty disables overrides.
var Dir = "prefabs"

// Load returns the prefab file name, preferring the copy under Dir.
func Load(name string) ([]byte, error) {
	clean := bundlePath(name)
	if Dir != "" {
		if data, err := os.ReadFile(filepath.Join(Dir, filepath.FromSlash(clean))); err == nil {
			return data, nil
		}
	}
	return fs.ReadFile(bundled, clean)
}

// LoadScript returns the upgrade script name from the scripts directory.
func LoadScript(name string) ([]byte, error) {
	return Load(path.Join("scripts", path.Base(bundlePath(name))))
}

// Overridden reports whether name is read from Dir rather than the bundle.
func Overridden(name string) bool {
	if Dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(Dir, filepath.FromSlash(bundlePath(name))))
	return err == nil
}

// bundlePath strips a leading "prefabs/" so repo-relative names work too.
func bundlePath(name string) string {
	s := path.Clean(filepath.ToSlash(name))
	return strings.TrimPrefix(s, "prefabs/")
}
