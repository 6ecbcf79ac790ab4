package prefabs

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/milk9111/levelkit/ecs/component"
	"github.com/milk9111/levelkit/ecs/entity"
	"github.com/milk9111/levelkit/ecs/entityref"
	"github.com/milk9111/levelkit/levels"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type Label struct {
	Text string `json:"text"`
}

// DoorTarget links a door to another entity, optionally in another level.
type DoorTarget struct {
	Level  string       `json:"level,omitempty"`
	Target entityref.Ref `json:"target"`
}

func (d *DoorTarget) ResolveRefs(idx *entityref.Index) {
	d.Target.Resolve(idx)
}

// ReadDoorTarget decodes the DoorTarget of a saved record. It reports false when
// the record has none.
func ReadDoorTarget(e levels.Entity) (DoorTarget, bool, error) {
	raw, ok := e.Components["DoorTarget"]
	if !ok {
		return DoorTarget{}, false, nil
	}
	var d DoorTarget
	if err := json.Unmarshal(raw, &d); err != nil {
		return DoorTarget{}, true, err
	}
	return d, true, nil
}

// Handles are the typed handles of the built-in component kinds.
type Handles struct {
	Position   component.Handle[Position]
	Size       component.Handle[Size]
	Label      component.Handle[Label]
	DoorTarget component.Handle[DoorTarget]
}

// RegisterComponents registers the built-in component kinds.
func RegisterComponents(r *component.Registry) (Handles, error) {
	var h Handles
	var err error
	if h.Position, err = component.Register(r, "Position", func() Position { return Position{} }); err != nil {
		return Handles{}, err
	}
	if h.Size, err = component.Register(r, "Size", func() Size { return Size{W: 1, H: 1} }); err != nil {
		return Handles{}, err
	}
	if h.Label, err = component.Register(r, "Label", func() Label { return Label{} }); err != nil {
		return Handles{}, err
	}
	if h.DoorTarget, err = component.Register(r, "DoorTarget", func() DoorTarget { return DoorTarget{} }); err != nil {
		return Handles{}, err
	}
	return h, nil
}

// Catalog is everything a binary needs to read and edit levels.
type Catalog struct {
	Kinds   *component.Registry
	Types   *entity.Registry
	Codec   *levels.Codec
	Handles Handles
}

// NewCatalog registers the built-in kinds, the archetypes from
// archetypes.yaml and the level upgrades, then seals the registries.
func NewCatalog(appFormatVersion int) (*Catalog, error) {
	kinds := component.NewRegistry()
	handles, err := RegisterComponents(kinds)
	if err != nil {
		return nil, err
	}

	types := entity.NewRegistry(kinds)
	specs, err := LoadArchetypes("archetypes.yaml")
	if err != nil {
		return nil, err
	}
	if err := RegisterArchetypes(types, specs); err != nil {
		return nil, err
	}
	types.Seal()

	codec := levels.NewCodec(appFormatVersion, types)
	if err := AddUpgrades(codec); err != nil {
		return nil, err
	}

	return &Catalog{Kinds: kinds, Types: types, Codec: codec, Handles: handles}, nil
}

// AddUpgrades registers the level upgrades shipped with the built-in kinds.
func AddUpgrades(codec *levels.Codec) error {
	if codec.AppFormatVersion >= 1 {
		src, err := LoadScript("door_v1.tengo")
		if err != nil {
			return fmt.Errorf("prefabs: load door_v1.tengo: %w", err)
		}
		fn, err := levels.ScriptUpgrade(src)
		if err != nil {
			return err
		}
		if err := codec.AddVersionedUpgrade(1, "door_v1", fn); err != nil {
			return err
		}
	}

	// Labels used to be saved as a bare "Caption" string.
	return codec.AddKindUpgrade(levels.KindUpgrade{
		Name: "caption_to_label",
		From: []string{"Caption"},
		To:   "Label",
		Rewrite: func(payload json.RawMessage) (json.RawMessage, error) {
			var text string
			if err := json.Unmarshal(payload, &text); err != nil {
				return nil, err
			}
			return json.Marshal(Label{Text: text})
		},
	})
}
