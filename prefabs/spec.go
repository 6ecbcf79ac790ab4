package prefabs

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/levelkit/ecs/entity"
)

// ArchetypeSpec is the YAML form of an entity archetype.
type ArchetypeSpec struct {
	Name       string         `yaml:"name"`
	UUID       bool           `yaml:"uuid"`
	Components []string       `yaml:"components"`
	Defaults   map[string]any `yaml:"defaults"`
}

// ArchetypeFile is the top level of an archetype definitions file.
type ArchetypeFile struct {
	Archetypes []ArchetypeSpec `yaml:"archetypes"`
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadArchetypes reads archetype definitions from filename.
func LoadArchetypes(filename string) ([]ArchetypeSpec, error) {
	file, err := LoadSpec[ArchetypeFile](filename)
	if err != nil {
		return nil, err
	}
	return file.Archetypes, nil
}

// Archetype converts the spec into a registrable archetype. YAML defaults are
// re-encoded as JSON payloads.
func (s ArchetypeSpec) Archetype() (entity.Archetype, error) {
	a := entity.Archetype{Name: s.Name, Components: s.Components, HasUUID: s.UUID}
	if len(s.Defaults) == 0 {
		return a, nil
	}
	a.Defaults = make(map[string]json.RawMessage, len(s.Defaults))
	for kind, v := range s.Defaults {
		raw, err := json.Marshal(v)
		if err != nil {
			return entity.Archetype{}, fmt.Errorf("prefabs: %s: default for %s: %w", s.Name, kind, err)
		}
		a.Defaults[kind] = raw
	}
	return a, nil
}

// RegisterArchetypes registers every spec, in file order.
func RegisterArchetypes(reg *entity.Registry, specs []ArchetypeSpec) error {
	for _, spec := range specs {
		a, err := spec.Archetype()
		if err != nil {
			return err
		}
		if err := reg.Register(a); err != nil {
			return fmt.Errorf("prefabs: register %s: %w", spec.Name, err)
		}
	}
	return nil
}
