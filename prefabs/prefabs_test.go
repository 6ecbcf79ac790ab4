package prefabs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/levelkit/ecs/component"
	"github.com/milk9111/levelkit/ecs/entity"
	"github.com/milk9111/levelkit/levels"
)

func TestLoadArchetypes(t *testing.T) {
	specs, err := LoadArchetypes("prefabs/archetypes.yaml")
	require.NoError(t, err)

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Wall", "Door", "Sign"}, names)

	wall, err := specs[0].Archetype()
	require.NoError(t, err)
	assert.True(t, wall.HasUUID)
	assert.Equal(t, []string{"Position", "Size"}, wall.Components)
	assert.JSONEq(t, `{"w":1,"h":1}`, string(wall.Defaults["Size"]))
}

func TestDiskOverride(t *testing.T) {
	dir := t.TempDir()
	old := Dir
	Dir = dir
	t.Cleanup(func() { Dir = old })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "archetypes.yaml"), []byte("archetypes:\n  - name: Crate\n    components: [Position]\n"), 0o644))

	specs, err := LoadArchetypes("archetypes.yaml")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "Crate", specs[0].Name)

	assert.True(t, Overridden("archetypes.yaml"))
	assert.False(t, Overridden("scripts/door_v1.tengo"))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "door_v1.tengo"), []byte("// tuned\n"), 0o644))
	src, err := LoadScript("door_v1.tengo")
	require.NoError(t, err)
	assert.Equal(t, "// tuned\n", string(src))

	Dir = ""
	assert.False(t, Overridden("archetypes.yaml"))
	specs, err = LoadArchetypes("archetypes.yaml")
	require.NoError(t, err)
	assert.Len(t, specs, 3, "bundled archetypes without overrides")
}

func TestRegisterArchetypesRejectsUnknownKinds(t *testing.T) {
	kinds := component.NewRegistry()
	_, err := RegisterComponents(kinds)
	require.NoError(t, err)
	reg := entity.NewRegistry(kinds)

	err = RegisterArchetypes(reg, []ArchetypeSpec{{Name: "Lamp", Components: []string{"Light"}}})
	assert.ErrorIs(t, err, component.ErrNotFound)
}

func TestCatalogReadsSamples(t *testing.T) {
	catalog, err := NewCatalog(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wall", "Door", "Sign"}, catalog.Types.Names())

	text, err := levels.SamplesFS.ReadFile("samples/vault.yol")
	require.NoError(t, err)
	doc, report, err := catalog.Codec.Decode(text)
	require.NoError(t, err)

	assert.Equal(t, 0, report.FromAppVersion)
	require.Len(t, doc.Entities, 1)
	door := doc.Entities[0]
	assert.Equal(t, []string{"Position"}, door.ComponentNames(), "door_v1.tengo moves the legacy data")
	assert.JSONEq(t, `{"x":1,"y":3}`, string(door.Components["Position"]))
	assert.Equal(t, uuid.MustParse("9a3c4e5f-6b7d-4e8f-a1b2-c3d4e5f60733"), door.Header.UUID)

	t.Run("caption upgrade", func(t *testing.T) {
		doc, report, err := catalog.Codec.Decode([]byte(`[{"format_version": 2, "app_format_version": 1}, {}, [[{"type": "Sign"}, {"Caption": "hello"}]]]`))
		require.NoError(t, err)
		assert.Len(t, report.Rewrites, 1)
		assert.JSONEq(t, `{"text":"hello"}`, string(doc.Entities[0].Components["Label"]))
	})

	t.Run("unknown archetype kept verbatim", func(t *testing.T) {
		const beam = `{"id": 9007199254740993, "Door": {"x": 4}}`
		doc, _, err := catalog.Codec.Decode([]byte(`[{"format_version": 2, "app_format_version": 0}, {}, [
			[{"type": "Teleporter"}, {"Beam": ` + beam + `, "Door": {"x": 1, "y": 1}}]
		]]`))
		require.NoError(t, err)
		assert.Equal(t, beam, string(doc.Entities[0].Components["Beam"]))
		assert.JSONEq(t, `{"x": 1, "y": 1}`, string(doc.Entities[0].Components["Door"]))
	})
}

func TestLoadScript(t *testing.T) {
	for _, name := range []string{"door_v1.tengo", "scripts/door_v1.tengo", "prefabs/scripts/door_v1.tengo"} {
		src, err := LoadScript(name)
		require.NoError(t, err, name)
		assert.Contains(t, string(src), "entity_type")
	}
}
