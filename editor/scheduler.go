package editor

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/ecs/component"
)

var (
	ErrInvalidFunc = eris.New("editor: invalid function registration")
)

// Stage orders populate functions. Every populate function of an earlier stage
// runs before any of a later one.
type Stage int

const (
	// StagePopulate builds host-visible state from component data.
	StagePopulate Stage = iota
	// StageOverride adjusts what earlier populate functions produced.
	StageOverride
)

func (s Stage) String() string {
	switch s {
	case StagePopulate:
		return "populate"
	case StageOverride:
		return "override"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Cardinality is how many selected entities an edit function accepts.
type Cardinality int

const (
	Single Cardinality = iota
	Multi
)

type PopulateFunc func(ctx *PopulateContext) error

type EditFunc func(ctx *EditContext) error

// Populator runs Fn for every entity carrying all of Kinds.
type Populator struct {
	Name  string
	Kinds []string
	Stage Stage
	// Order sorts populators within a stage. Equal orders run in registration
	// order. Populators registered together by AddPopulators run by the
	// registration order of their earliest declared kind.
	Order int
	Fn    PopulateFunc
}

// EditSystem runs Fn on the selection when every selected entity carries all
// of Kinds and the selection size fits Cardinality.
type EditSystem struct {
	Name        string
	Kinds       []string
	Cardinality Cardinality
	Fn          EditFunc
}

type populateEntry struct {
	Populator
	seq int
	pos int
}

// Scheduler holds the populate and edit registrations.
type Scheduler struct {
	populators []populateEntry
	editors    []EditSystem
	sorted     []populateEntry
	seq        int
	dirty      bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AddPopulator(p Populator) error {
	return s.AddPopulators(p)
}

// AddPopulators registers ps as one registration. Nothing is added when one of
// them is invalid.
func (s *Scheduler) AddPopulators(ps ...Populator) error {
	for _, p := range ps {
		if p.Fn == nil || p.Name == "" {
			return eris.Wrapf(ErrInvalidFunc, "populator %q", p.Name)
		}
	}
	for _, p := range ps {
		p.Kinds = append([]string(nil), p.Kinds...)
		s.populators = append(s.populators, populateEntry{Populator: p, seq: s.seq, pos: len(s.populators)})
	}
	s.seq++
	s.dirty = true
	return nil
}

func (s *Scheduler) AddEditSystem(es EditSystem) error {
	if es.Fn == nil || es.Name == "" {
		return eris.Wrapf(ErrInvalidFunc, "edit system %q", es.Name)
	}
	es.Kinds = append([]string(nil), es.Kinds...)
	s.editors = append(s.editors, es)
	return nil
}

// Populators returns the populators in the order they run.
func (s *Scheduler) Populators(kinds *component.Registry) []Populator {
	out := make([]Populator, 0, len(s.populators))
	for _, p := range s.ordered(kinds) {
		out = append(out, p.Populator)
	}
	return out
}

// EditSystems returns the edit systems in registration order.
func (s *Scheduler) EditSystems() []EditSystem {
	return append([]EditSystem(nil), s.editors...)
}

func (s *Scheduler) ordered(kinds *component.Registry) []populateEntry {
	if !s.dirty && s.sorted != nil {
		return s.sorted
	}
	sorted := append([]populateEntry(nil), s.populators...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		ka, kb := earliestKind(kinds, a.Kinds), earliestKind(kinds, b.Kinds)
		if ka != kb {
			return ka < kb
		}
		return a.pos < b.pos
	})
	s.sorted = sorted
	s.dirty = false
	return sorted
}

func earliestKind(kinds *component.Registry, names []string) int {
	best := -1
	if kinds == nil {
		return best
	}
	for _, n := range names {
		o := kinds.Order(n)
		if o < 0 {
			continue
		}
		if best < 0 || o < best {
			best = o
		}
	}
	return best
}

// Failure is one populate or edit call that returned an error or panicked.
type Failure struct {
	Func   string
	Phase  string
	Entity ecs.Entity
	Err    error
}

func (f Failure) Error() string {
	if f.Entity.Valid() {
		return fmt.Sprintf("%s %q on %s: %v", f.Phase, f.Func, f.Entity, f.Err)
	}
	return fmt.Sprintf("%s %q: %v", f.Phase, f.Func, f.Err)
}

// FrameReport describes one Update.
type FrameReport struct {
	Frame uint64
	// Populated counts populate calls that completed.
	Populated int
	// Edited names the edit systems that ran.
	Edited []string
	// Skipped names the edit systems whose selection shape did not match.
	Skipped  []string
	Failures []Failure

	Load    *LoadReport
	LoadErr error
}

func hasAll(host ecs.Host, e ecs.Entity, kinds []string) bool {
	for _, k := range kinds {
		if _, ok := host.Read(e, k); !ok {
			return false
		}
	}
	return true
}

// call runs fn and turns a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (ed *Editor) runPopulate(report *FrameReport) {
	for _, p := range ed.sched.ordered(ed.comps) {
		for _, s := range ed.slots {
			if s.orphan != nil || !hasAll(ed.host, s.entity, p.Kinds) {
				continue
			}
			ctx := &PopulateContext{
				Host:      ed.host,
				Entity:    s.entity,
				Reason:    s.reason(ed.state),
				lifecycle: s.lifecycle,
				state:     ed.state,
			}
			err := call(func() error { return p.Fn(ctx) })
			if err != nil {
				ed.fail(report, Failure{Func: p.Name, Phase: "populate", Entity: s.entity, Err: err})
				continue
			}
			report.Populated++
		}
	}
}

func (ed *Editor) runEdit(report *FrameReport) {
	selection := ed.Selection()
	ctx := &EditContext{
		host:     ed.host,
		entities: selection,
		widgets:  ed.widgets,
		passed:   ed.passed,
		ed:       ed,
	}
	for _, es := range ed.sched.editors {
		if !fits(ed.host, es, selection) {
			report.Skipped = append(report.Skipped, es.Name)
			continue
		}
		if err := call(func() error { return es.Fn(ctx) }); err != nil {
			ed.fail(report, Failure{Func: es.Name, Phase: "edit", Err: err})
			continue
		}
		report.Edited = append(report.Edited, es.Name)
	}
}

// fits reports whether the selection has the shape es declares.
func fits(host ecs.Host, es EditSystem, selection []ecs.Entity) bool {
	if len(selection) == 0 {
		return false
	}
	if es.Cardinality == Single && len(selection) > 1 {
		return false
	}
	for _, e := range selection {
		if !hasAll(host, e, es.Kinds) {
			return false
		}
	}
	return true
}

func (ed *Editor) fail(report *FrameReport, f Failure) {
	report.Failures = append(report.Failures, f)
	evt := ed.log.Error().Err(f.Err).Str("func", f.Func).Str("phase", f.Phase)
	if f.Entity.Valid() {
		evt = evt.Stringer("entity", f.Entity)
	}
	evt.Msg("editor function failed")
}
