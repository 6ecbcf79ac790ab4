package editor

import (
	"github.com/milk9111/levelkit/ecs"
)

type directiveKind int

const (
	directivePass directiveKind = iota
	directiveSelect
)

type directive struct {
	kind   directiveKind
	entity ecs.Entity
	key    string
	value  any
}

// PassToEntity queues value for e's edit functions. It is visible through
// EditContext.Passed during the next edit phase only.
func (ed *Editor) PassToEntity(e ecs.Entity, key string, value any) {
	ed.directives = append(ed.directives, directive{kind: directivePass, entity: e, key: key, value: value})
}

// SetSelected queues a selection change. It applies at the end of the frame.
func (ed *Editor) SetSelected(e ecs.Entity) {
	ed.directives = append(ed.directives, directive{kind: directiveSelect, entity: e})
}

func (ed *Editor) applyDirectives() {
	for _, d := range ed.directives {
		switch d.kind {
		case directivePass:
			if !ed.Managed(d.entity) {
				continue
			}
			if ed.passed == nil {
				ed.passed = make(map[ecs.Entity]map[string]any)
			}
			m, ok := ed.passed[d.entity]
			if !ok {
				m = make(map[string]any)
				ed.passed[d.entity] = m
			}
			m[d.key] = d.value
		case directiveSelect:
			ed.Select(d.entity)
		}
	}
	ed.directives = nil
}
