package levels

import (
	"reflect"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// ScriptUpgrade compiles a tengo script into a versioned entity upgrade. The
// script sees the entity's archetype as `entity_type` and its components as the map
// `data`, and may mutate or reassign `data`. Only components the script adds,
// changes or deletes are rewritten:
//
//	if entity_type == "Door" && data.OldTarget != undefined {
//		data.DoorTarget = {uuid: data.OldTarget}
//		delete(data, "OldTarget")
//	}
func ScriptUpgrade(src []byte) (EntityUpgradeFunc, error) {
	script := tengo.NewScript(src)
	_ = script.Add("entity_type", "")
	_ = script.Add("data", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, eris.Wrap(err, "levels: compile upgrade script")
	}

	return func(typeName string, components map[string]json.RawMessage) error {
		data := make(map[string]any, len(components))
		for k, raw := range components {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return eris.Wrapf(err, "decode %q for script", k)
			}
			data[k] = v
		}

		// Compiled scripts keep globals, so every call gets its own copy.
		run := compiled.Clone()
		if err := run.Set("entity_type", typeName); err != nil {
			return err
		}
		if err := run.Set("data", data); err != nil {
			return err
		}
		if err := run.Run(); err != nil {
			return eris.Wrap(err, "run upgrade script")
		}

		out := run.Get("data")
		result := out.Map()
		if result == nil {
			return eris.Errorf("upgrade script left data as %s", out.ValueType())
		}

		for k := range components {
			if _, ok := result[k]; !ok {
				delete(components, k)
			}
		}
		// Keys the script left alone keep their original bytes.
		for k, v := range result {
			if old, ok := data[k]; ok && reflect.DeepEqual(old, v) {
				continue
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return eris.Wrapf(err, "encode %q from script", k)
			}
			components[k] = raw
		}
		return nil
	}, nil
}
