package ecs

import (
	"testing"

	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs/component"
)

func TestWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, w.Spawn())
			}
			if len(w.Entities()) != c.create {
				t.Fatalf("expected %d entities, got %d", c.create, len(w.Entities()))
			}
			if c.destroyIndex >= 0 {
				if !w.Despawn(ents[c.destroyIndex]) {
					t.Fatalf("Despawn should return true for alive entity")
				}
				if w.IsAlive(ents[c.destroyIndex]) {
					t.Fatalf("entity should not be alive after despawn")
				}
				if w.Despawn(ents[c.destroyIndex]) {
					t.Fatalf("second Despawn should return false")
				}
			}
		})
	}
}

func TestWorldRecyclesIDsWithNewGeneration(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	if err := w.Attach(a, "pos", 1); err != nil {
		t.Fatalf("attach: %v", err)
	}
	w.Despawn(a)

	b := w.Spawn()
	if b == a {
		t.Fatalf("recycled handle must differ from the stale one")
	}
	if b.id() != a.id() {
		t.Fatalf("expected id %d to be reused, got %d", a.id(), b.id())
	}
	if _, ok := w.Read(b, "pos"); ok {
		t.Fatalf("recycled entity must not inherit components")
	}
	if _, ok := w.Read(a, "pos"); ok {
		t.Fatalf("stale handle must not read components")
	}
}

func toSet(ents []Entity) map[Entity]struct{} {
	m := make(map[Entity]struct{}, len(ents))
	for _, e := range ents {
		m[e] = struct{}{}
	}
	return m
}

func TestWorldComponentsAndQueries(t *testing.T) {
	w := NewWorld()
	e1, e2, e3 := w.Spawn(), w.Spawn(), w.Spawn()

	attach := []struct {
		e    Entity
		kind string
		v    any
	}{
		{e1, "a", 1},
		{e1, "b", "x"},
		{e2, "a", 2},
		{e3, "b", "y"},
		{e3, "a", 3},
	}
	for _, c := range attach {
		if err := w.Attach(c.e, c.kind, c.v); err != nil {
			t.Fatalf("attach %s to %s: %v", c.kind, c.e, err)
		}
	}

	cases := []struct {
		name  string
		kinds []string
		want  []Entity
	}{
		{"a", []string{"a"}, []Entity{e1, e2, e3}},
		{"b", []string{"b"}, []Entity{e1, e3}},
		{"a_and_b", []string{"a", "b"}, []Entity{e1, e3}},
		{"missing", []string{"c"}, nil},
		{"none", nil, []Entity{e1, e2, e3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := w.Query(c.kinds...)
			if len(got) != len(c.want) {
				t.Fatalf("expected %v, got %v", c.want, got)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("expected %v in id order, got %v", c.want, got)
				}
			}
		})
	}

	t.Run("detach", func(t *testing.T) {
		if !w.Detach(e1, "b") {
			t.Fatalf("detach should report removal")
		}
		if _, ok := toSet(w.Query("b"))[e1]; ok {
			t.Fatalf("e1 should no longer hold b")
		}
		if got := w.Kinds(e3); len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Fatalf("expected sorted kinds [a b], got %v", got)
		}
	})

	t.Run("despawn_drops_components", func(t *testing.T) {
		w.Despawn(e2)
		if _, ok := toSet(w.Query("a"))[e2]; ok {
			t.Fatalf("despawned entity still queried")
		}
	})
}

func TestWorldAttachErrors(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	dead := w.Spawn()
	w.Despawn(dead)

	cases := []struct {
		name string
		e    Entity
		kind string
		v    any
		want error
	}{
		{"empty_kind", e, "", 1, ErrEmptyKind},
		{"nil_data", e, "a", nil, ErrNilComponent},
		{"dead_entity", dead, "a", 1, ErrEntityNotAlive},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := w.Attach(c.e, c.kind, c.v)
			if !eris.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

type vec struct{ X, Y int }

func TestGenericAccessors(t *testing.T) {
	reg := component.NewRegistry()
	h, err := component.Register(reg, "vec", func() vec { return vec{} })
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	w := NewWorld()
	e := w.Spawn()
	if Has(w, e, h) {
		t.Fatalf("fresh entity should not have vec")
	}
	if err := Add(w, e, h, &vec{X: 1, Y: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	v, ok := Get(w, e, h)
	if !ok || v.X != 1 || v.Y != 2 {
		t.Fatalf("expected {1 2}, got %v %v", v, ok)
	}
	v.X = 5
	again, _ := Get(w, e, h)
	if again.X != 5 {
		t.Fatalf("Get should return the stored pointer")
	}
	if !Remove(w, e, h) || Has(w, e, h) {
		t.Fatalf("remove failed")
	}
	if err := Add[vec](w, e, h, nil); !eris.Is(err, ErrNilComponent) {
		t.Fatalf("expected ErrNilComponent, got %v", err)
	}
}

type countSystem struct{ n int }

func (s *countSystem) Update(w *World) { s.n += len(w.Events().Drain()) }

func TestWorldEventsAndSystems(t *testing.T) {
	w := NewWorld()
	sys := &countSystem{}
	w.AddSystem(sys)

	e := w.Spawn()
	w.Despawn(e)
	w.Update()
	if sys.n != 2 {
		t.Fatalf("expected 2 events, got %d", sys.n)
	}

	w.Spawn()
	w.Update()
	w.Update()
	if sys.n != 3 {
		t.Fatalf("expected 3 events after flush, got %d", sys.n)
	}
}
