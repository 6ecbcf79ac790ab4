package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/colornames"

	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/editor"
	"github.com/milk9111/levelkit/prefabs"
)

const (
	spriteKind = "sprite"
	tileSize   = 32
)

// sprite is host-only render state built by populate. It is not part of any
// archetype, so it is never saved.
type sprite struct {
	X, Y, W, H float32
	Color      color.Color
	Text       string
}

var archetypeColors = map[string]color.RGBA{
	"Wall": colornames.Slategray,
	"Door": colornames.Sienna,
	"Sign": colornames.Seagreen,
}

func registerSystems(ed *editor.Editor, h prefabs.Handles, widgets *keyWidgets) error {
	sched := ed.Scheduler()

	populators := []editor.Populator{
		{
			Name:  "sprite",
			Kinds: []string{h.Position.Name()},
			Stage: editor.StagePopulate,
			Fn: func(ctx *editor.PopulateContext) error {
				pos, _ := ecs.Get(ctx.Host, ctx.Entity, h.Position)
				s := &sprite{X: float32(pos.X * tileSize), Y: float32(pos.Y * tileSize), W: tileSize, H: tileSize, Color: colornames.White}
				if size, ok := ecs.Get(ctx.Host, ctx.Entity, h.Size); ok {
					s.W, s.H = float32(size.W*tileSize), float32(size.H*tileSize)
				}
				if hdr, ok := ed.Header(ctx.Entity); ok {
					if c, ok := archetypeColors[hdr.Type]; ok {
						s.Color = c
					}
					s.Text = hdr.Name
				}
				return ctx.Host.Attach(ctx.Entity, spriteKind, s)
			},
		},
		{
			Name:  "sign-text",
			Kinds: []string{h.Position.Name(), h.Label.Name()},
			Stage: editor.StagePopulate,
			Fn: func(ctx *editor.PopulateContext) error {
				s, err := spriteOf(ctx.Host, ctx.Entity)
				if err != nil {
					return err
				}
				if label, ok := ecs.Get(ctx.Host, ctx.Entity, h.Label); ok {
					s.Text = label.Text
				}
				return nil
			},
		},
		{
			Name:  "selection-highlight",
			Kinds: []string{h.Position.Name()},
			Stage: editor.StageOverride,
			Fn: func(ctx *editor.PopulateContext) error {
				if !ctx.InEditor() || !ed.IsSelected(ctx.Entity) {
					return nil
				}
				s, err := spriteOf(ctx.Host, ctx.Entity)
				if err != nil {
					return err
				}
				s.Color = colornames.Gold
				return nil
			},
		},
	}
	for _, p := range populators {
		if err := sched.AddPopulator(p); err != nil {
			return err
		}
	}

	edits := []editor.EditSystem{
		{
			Name:        "nudge",
			Kinds:       []string{h.Position.Name()},
			Cardinality: editor.Multi,
			Fn: func(ctx *editor.EditContext) error {
				if widgets.typing {
					return nil
				}
				dx, dy := nudgeInput()
				if dx == 0 && dy == 0 {
					return nil
				}
				for _, e := range ctx.Entities() {
					if pos, ok := ecs.Get(ctx.Host(), e, h.Position); ok {
						pos.X += dx
						pos.Y += dy
					}
				}
				return nil
			},
		},
		editor.AutoEditor(h.Position),
		editor.AutoEditor(h.Size),
		editor.AutoEditor(h.Label),
		editor.AutoEditor(h.DoorTarget),
	}
	for _, es := range edits {
		if err := sched.AddEditSystem(es); err != nil {
			return err
		}
	}
	return nil
}

func spriteOf(host ecs.Host, e ecs.Entity) (*sprite, error) {
	v, ok := host.Read(e, spriteKind)
	if !ok {
		return nil, errMissingSprite
	}
	s, ok := v.(*sprite)
	if !ok {
		return nil, errMissingSprite
	}
	return s, nil
}

// nudgeInput reads WASD as a one-tile move.
func nudgeInput() (float64, float64) {
	var dx, dy float64
	if justPressed(ebiten.KeyA) {
		dx--
	}
	if justPressed(ebiten.KeyD) {
		dx++
	}
	if justPressed(ebiten.KeyW) {
		dy--
	}
	if justPressed(ebiten.KeyS) && !ebiten.IsKeyPressed(ebiten.KeyControl) {
		dy++
	}
	return dx, dy
}

// eventLog reports host entity churn at debug level.
type eventLog struct {
	log zerolog.Logger
}

func (s *eventLog) Update(w *ecs.World) {
	for _, evt := range w.Events().Drain() {
		s.log.Debug().Str("event", string(evt.Type)).Stringer("entity", evt.Entity).Msg("host entity")
	}
}
