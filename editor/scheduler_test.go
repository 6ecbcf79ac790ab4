package editor

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/ecs/component"
	"github.com/milk9111/levelkit/ecs/entityref"
)

const threeBlocks = `[{"format_version": 2, "app_format_version": 1}, {}, [
	[{"type": "Wall", "uuid": "` + u1 + `"}, {"Position": {"x": 0, "y": 0}}],
	[{"type": "Block", "uuid": "` + u2 + `"}, {"Position": {"x": 1, "y": 0}, "Size": {"w": 2, "h": 2}}],
	[{"type": "Block", "uuid": "` + u3 + `"}, {"Position": {"x": 2, "y": 0}, "Size": {"w": 3, "h": 3}}]
]]`

func loaded(t *testing.T, f *fixture, opts ...Option) (*Editor, []ecs.Entity) {
	t.Helper()
	ed := f.editor(t, opts...)
	_, err := ed.Load(decode(t, threeBlocks))
	require.NoError(t, err)
	return ed, ed.Entities()
}

func TestPopulateOrderIsDeterministic(t *testing.T) {
	f := newFixture(t)
	ed, ents := loaded(t, f)

	var trace []string
	record := func(name string) PopulateFunc {
		return func(ctx *PopulateContext) error {
			trace = append(trace, fmt.Sprintf("%s:%s", name, ctx.Entity))
			return nil
		}
	}
	sched := ed.Scheduler()
	require.NoError(t, sched.AddPopulator(Populator{Name: "late", Kinds: []string{"Position"}, Stage: StageOverride, Fn: record("late")}))
	require.NoError(t, sched.AddPopulator(Populator{Name: "size", Kinds: []string{"Size"}, Fn: record("size")}))
	require.NoError(t, sched.AddPopulator(Populator{Name: "a", Kinds: []string{"Position"}, Fn: record("a")}))
	require.NoError(t, sched.AddPopulator(Populator{Name: "b", Kinds: []string{"Position"}, Fn: record("b")}))
	require.NoError(t, sched.AddPopulator(Populator{Name: "first", Kinds: []string{"Size"}, Order: -1, Fn: record("first")}))

	require.NoError(t, sched.AddPopulators(
		Populator{Name: "group-size", Kinds: []string{"Size"}, Fn: record("group-size")},
		Populator{Name: "group-pos", Kinds: []string{"Position"}, Fn: record("group-pos")},
	))

	order := []string{"first", "size", "a", "b", "group-pos", "group-size", "late"}
	var want []string
	for _, name := range order {
		for _, e := range ents {
			if e == ents[0] && (name == "first" || name == "size" || name == "group-size") {
				continue
			}
			want = append(want, fmt.Sprintf("%s:%s", name, e))
		}
	}

	for frame := 0; frame < 100; frame++ {
		trace = trace[:0]
		report := ed.Update()
		require.Equal(t, want, trace, "frame %d", frame)
		require.Equal(t, len(want), report.Populated)
	}

	var names []string
	for _, p := range sched.Populators(f.kinds) {
		names = append(names, p.Name)
	}
	assert.Equal(t, order, names)
}

func TestPopulateRunsInRegistrationOrder(t *testing.T) {
	f := newFixture(t)
	ed, _ := loaded(t, f)

	var trace []string
	for _, p := range []struct{ name, kind string }{{"first", "Size"}, {"second", "Position"}} {
		name := p.name
		require.NoError(t, ed.Scheduler().AddPopulator(Populator{
			Name:  name,
			Kinds: []string{p.kind},
			Fn: func(*PopulateContext) error {
				trace = append(trace, name)
				return nil
			},
		}))
	}
	ed.Update()
	assert.Equal(t, []string{"first", "first", "second", "second", "second"}, trace)
}

func TestSchedulerRejectsInvalidFuncs(t *testing.T) {
	s := NewScheduler()
	assert.ErrorIs(t, s.AddPopulator(Populator{Name: "x"}), ErrInvalidFunc)
	assert.ErrorIs(t, s.AddPopulator(Populator{Fn: func(*PopulateContext) error { return nil }}), ErrInvalidFunc)
	assert.ErrorIs(t, s.AddEditSystem(EditSystem{Name: "x"}), ErrInvalidFunc)
	ok := Populator{Name: "ok", Fn: func(*PopulateContext) error { return nil }}
	assert.ErrorIs(t, s.AddPopulators(ok, Populator{Name: "bad"}), ErrInvalidFunc)
	assert.Empty(t, s.Populators(nil))
	assert.Empty(t, s.EditSystems())
}

func TestFailuresAreIsolated(t *testing.T) {
	f := newFixture(t)
	ed, ents := loaded(t, f)

	calls := 0
	sched := ed.Scheduler()
	require.NoError(t, sched.AddPopulator(Populator{
		Name:  "flaky",
		Kinds: []string{"Position"},
		Fn: func(ctx *PopulateContext) error {
			switch ctx.Entity {
			case ents[0]:
				return errBoom
			case ents[1]:
				panic("bad data")
			}
			return nil
		},
	}))
	require.NoError(t, sched.AddPopulator(Populator{
		Name:  "steady",
		Kinds: []string{"Position"},
		Fn: func(*PopulateContext) error {
			calls++
			return nil
		},
	}))
	require.NoError(t, sched.AddEditSystem(EditSystem{
		Name:        "explode",
		Cardinality: Multi,
		Fn:          func(*EditContext) error { panic("edit") },
	}))
	edited := false
	require.NoError(t, sched.AddEditSystem(EditSystem{
		Name:        "after",
		Cardinality: Multi,
		Fn: func(*EditContext) error {
			edited = true
			return nil
		},
	}))
	ed.Select(ents[2])

	report := ed.Update()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 4, report.Populated)
	assert.True(t, edited)
	assert.Equal(t, []string{"after"}, report.Edited)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, "flaky", report.Failures[0].Func)
	assert.Equal(t, ents[0], report.Failures[0].Entity)
	assert.ErrorIs(t, report.Failures[0].Err, errBoom)
	assert.Contains(t, report.Failures[1].Err.Error(), "bad data")
	assert.Equal(t, "edit", report.Failures[2].Phase)
	assert.Contains(t, report.Failures[2].Error(), "explode")

	for _, e := range ents {
		assert.True(t, f.world.IsAlive(e))
	}
}

func TestEditSelectionShape(t *testing.T) {
	f := newFixture(t)
	ed, ents := loaded(t, f)
	wall, b1, b2 := ents[0], ents[1], ents[2]

	noop := func(*EditContext) error { return nil }
	sched := ed.Scheduler()
	require.NoError(t, sched.AddEditSystem(EditSystem{Name: "one-pos", Kinds: []string{"Position"}, Cardinality: Single, Fn: noop}))
	require.NoError(t, sched.AddEditSystem(EditSystem{Name: "many-pos", Kinds: []string{"Position"}, Cardinality: Multi, Fn: noop}))
	require.NoError(t, sched.AddEditSystem(EditSystem{Name: "one-size", Kinds: []string{"Size"}, Cardinality: Single, Fn: noop}))
	require.NoError(t, sched.AddEditSystem(EditSystem{Name: "many-size", Kinds: []string{"Position", "Size"}, Cardinality: Multi, Fn: noop}))

	tests := []struct {
		name     string
		selected []ecs.Entity
		edited   []string
	}{
		{name: "empty selection", selected: nil, edited: nil},
		{name: "one wall", selected: []ecs.Entity{wall}, edited: []string{"one-pos", "many-pos"}},
		{name: "one block", selected: []ecs.Entity{b1}, edited: []string{"one-pos", "many-pos", "one-size", "many-size"}},
		{name: "two blocks", selected: []ecs.Entity{b1, b2}, edited: []string{"many-pos", "many-size"}},
		{name: "wall and block", selected: []ecs.Entity{wall, b2}, edited: []string{"many-pos"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ed.ClearSelection()
			for _, e := range tc.selected {
				ed.AddToSelection(e)
			}
			report := ed.Update()
			assert.Equal(t, tc.edited, report.Edited)
			assert.Len(t, report.Skipped, 4-len(tc.edited))
		})
	}
}

func TestEditContext(t *testing.T) {
	f := newFixture(t)
	ed, ents := loaded(t, f)

	var seen []ecs.Entity
	require.NoError(t, ed.Scheduler().AddEditSystem(EditSystem{
		Name:        "grow",
		Kinds:       []string{"Size"},
		Cardinality: Multi,
		Fn: func(ctx *EditContext) error {
			seen = ctx.Entities()
			for _, e := range ctx.Entities() {
				data, ok := ctx.Get(e, "Size")
				if !ok {
					return fmt.Errorf("no size on %s", e)
				}
				sz := *data.(*size)
				sz.W++
				if err := ctx.Set(e, "Size", &sz); err != nil {
					return err
				}
			}
			return nil
		},
	}))
	ed.AddToSelection(ents[2])
	ed.AddToSelection(ents[1])

	ed.Update()
	assert.Equal(t, []ecs.Entity{ents[1], ents[2]}, seen)
	got, _ := ecs.Get(f.world, ents[1], f.size)
	assert.Equal(t, size{W: 3, H: 2}, *got)

	ed.Update()
	lc, _ := ed.Lifecycle(ents[1])
	assert.Equal(t, JustChanged, lc)
	assert.True(t, ed.NeedsSaving())
}

func TestDirectivesApplyNextFrame(t *testing.T) {
	f := newFixture(t)
	ed, ents := loaded(t, f)

	type sighting struct {
		frame uint64
		value any
	}
	var sightings []sighting
	require.NoError(t, ed.Scheduler().AddEditSystem(EditSystem{
		Name:        "relay",
		Kinds:       []string{"Position"},
		Cardinality: Single,
		Fn: func(ctx *EditContext) error {
			if v, ok := ctx.Passed(ctx.Entity(), "drag"); ok {
				sightings = append(sightings, sighting{ed.Frame(), v})
			}
			if ed.Frame() == 1 {
				ctx.PassToEntity(ctx.Entity(), "drag", 7)
				ctx.SetSelected(ents[1])
				assert.Equal(t, []ecs.Entity{ents[0]}, ed.Selection(), "selection changes at the end of the frame")
			}
			return nil
		},
	}))
	ed.Select(ents[0])

	ed.Update()
	assert.Equal(t, []ecs.Entity{ents[1]}, ed.Selection())

	ed.Select(ents[0])
	ed.Update()
	ed.Update()
	assert.Equal(t, []sighting{{2, 7}}, sightings)
}

type scriptedWidgets struct {
	labels []string
}

func (w *scriptedWidgets) Float(label string, v float64) float64 {
	w.labels = append(w.labels, label)
	return v + 1
}

func (w *scriptedWidgets) Int(label string, v int) int {
	w.labels = append(w.labels, label)
	return v * 2
}

func (w *scriptedWidgets) Bool(label string, v bool) bool {
	w.labels = append(w.labels, label)
	return !v
}

func (w *scriptedWidgets) String(label string, v string) string {
	w.labels = append(w.labels, label)
	return v + "!"
}

func (w *scriptedWidgets) UUID(label string, v uuid.UUID) uuid.UUID {
	w.labels = append(w.labels, label)
	return uuid.MustParse(u2)
}

type gadget struct {
	Speed  float32
	Count  int
	Ticks  uint8
	On     bool
	Title  string
	Target entityref.Ref
	Owner  uuid.UUID
	Offset position
	hidden int
}

func TestAutoEdit(t *testing.T) {
	w := &scriptedWidgets{}
	g := gadget{Speed: 1.5, Count: 3, Ticks: 4, Title: "t", Offset: position{X: 1, Y: 2}, hidden: 9}

	changed := AutoEdit(w, "Gadget", &g)
	assert.True(t, changed)
	assert.Equal(t, gadget{
		Speed:  2.5,
		Count:  6,
		Ticks:  8,
		On:     true,
		Title:  "t!",
		Target: entityref.NewRef(uuid.MustParse(u2)),
		Owner:  uuid.MustParse(u2),
		Offset: position{X: 2, Y: 3},
		hidden: 9,
	}, g)
	assert.Equal(t, []string{
		"Gadget.Speed", "Gadget.Count", "Gadget.Ticks", "Gadget.On", "Gadget.Title",
		"Gadget.Target", "Gadget.Owner", "Gadget.Offset.X", "Gadget.Offset.Y",
	}, w.labels)

	assert.False(t, AutoEdit(NopWidgets{}, "Gadget", &g))
	assert.False(t, AutoEdit(w, "Gadget", g), "non-pointers are ignored")
}

func TestAutoEditor(t *testing.T) {
	f := newFixture(t)
	w := &scriptedWidgets{}
	ed, ents := loaded(t, f, WithWidgets(w))
	require.NoError(t, ed.Scheduler().AddEditSystem(AutoEditor(f.size)))

	ed.Select(ents[1])
	report := ed.Update()
	assert.Equal(t, []string{"auto:Size"}, report.Edited)
	assert.Equal(t, []string{"Size.W", "Size.H"}, w.labels)
	got, _ := ecs.Get(f.world, ents[1], f.size)
	assert.Equal(t, size{W: 3, H: 3}, *got)

	ed.AddToSelection(ents[2])
	report = ed.Update()
	assert.Equal(t, []string{"auto:Size"}, report.Skipped, "auto editors edit one entity at a time")
}

func TestEarliestKind(t *testing.T) {
	kinds := component.NewRegistry()
	for _, name := range []string{"A", "B", "C"} {
		_, err := component.Register(kinds, name, func() int { return 0 })
		require.NoError(t, err)
	}
	assert.Equal(t, 1, earliestKind(kinds, []string{"C", "B"}))
	assert.Equal(t, 0, earliestKind(kinds, []string{"Z", "A"}))
	assert.Equal(t, -1, earliestKind(kinds, []string{"Z"}))
	assert.Equal(t, -1, earliestKind(nil, []string{"A"}))
}
