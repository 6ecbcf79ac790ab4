package editor

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/ecs/component"
	"github.com/milk9111/levelkit/ecs/entityref"
)

// Widgets is the host's immediate-mode widget family. Each call draws a widget
// for the current value and returns the value after user input.
type Widgets interface {
	Float(label string, v float64) float64
	Int(label string, v int) int
	Bool(label string, v bool) bool
	String(label string, v string) string
	UUID(label string, v uuid.UUID) uuid.UUID
}

// NopWidgets returns every value unchanged.
type NopWidgets struct{}

func (NopWidgets) Float(_ string, v float64) float64    { return v }
func (NopWidgets) Int(_ string, v int) int              { return v }
func (NopWidgets) Bool(_ string, v bool) bool           { return v }
func (NopWidgets) String(_ string, v string) string     { return v }
func (NopWidgets) UUID(_ string, v uuid.UUID) uuid.UUID { return v }

var (
	refType  = reflect.TypeOf(entityref.Ref{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// AutoEdit draws a widget for every exported field of the struct ptr points to
// and writes the results back. Nested structs are walked with dotted labels.
// It reports whether any field changed.
func AutoEdit(w Widgets, label string, ptr any) bool {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	return autoEditValue(w, label, v.Elem())
}

func autoEditValue(w Widgets, label string, v reflect.Value) bool {
	if !v.CanSet() {
		return false
	}

	switch v.Type() {
	case refType:
		ref := v.Addr().Interface().(*entityref.Ref)
		next := w.UUID(label, ref.UUID)
		if next == ref.UUID {
			return false
		}
		ref.Set(next)
		return true
	case uuidType:
		cur := v.Interface().(uuid.UUID)
		next := w.UUID(label, cur)
		if next == cur {
			return false
		}
		v.Set(reflect.ValueOf(next))
		return true
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		cur := v.Float()
		next := w.Float(label, cur)
		if next == cur {
			return false
		}
		v.SetFloat(next)
		return true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		cur := int(v.Int())
		next := w.Int(label, cur)
		if next == cur {
			return false
		}
		v.SetInt(int64(next))
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		cur := int(v.Uint())
		next := w.Int(label, cur)
		if next == cur || next < 0 {
			return false
		}
		v.SetUint(uint64(next))
		return true
	case reflect.Bool:
		cur := v.Bool()
		next := w.Bool(label, cur)
		if next == cur {
			return false
		}
		v.SetBool(next)
		return true
	case reflect.String:
		cur := v.String()
		next := w.String(label, cur)
		if next == cur {
			return false
		}
		v.SetString(next)
		return true
	case reflect.Struct:
		changed := false
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if label != "" {
				name = label + "." + f.Name
			}
			if autoEditValue(w, name, v.Field(i)) {
				changed = true
			}
		}
		return changed
	}
	return false
}

// AutoEditor returns a single-entity edit system that auto-edits the component
// behind h.
func AutoEditor[T any](h component.Handle[T]) EditSystem {
	return EditSystem{
		Name:        "auto:" + h.Name(),
		Kinds:       []string{h.Name()},
		Cardinality: Single,
		Fn: func(ctx *EditContext) error {
			e := ctx.Entity()
			v, ok := ecs.Get(ctx.Host(), e, h)
			if !ok {
				return nil
			}
			if AutoEdit(ctx.Widgets(), h.Name(), v) {
				return ecs.Add(ctx.Host(), e, h, v)
			}
			return nil
		},
	}
}
