package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/milk9111/levelkit/editor"
)

const panelWidth = 260

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Midnightblue)

	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	for _, e := range g.ed.Entities() {
		s, err := spriteOf(g.world, e)
		if err != nil {
			continue
		}
		x := s.X + panelWidth
		vector.DrawFilledRect(screen, x, s.Y, s.W, s.H, s.Color, false)
		if s.Text != "" {
			ebitenutil.DebugPrintAt(screen, s.Text, int(x)+2, int(s.Y)+2)
		}
	}

	if g.ed.State() != editor.EditorActive {
		ebitenutil.DebugPrintAt(screen, "playtest (F5 to edit)", panelWidth+8, h-20)
		return
	}

	vector.DrawFilledRect(screen, 0, 0, panelWidth, float32(h), colornames.Darkslategray, false)
	ebitenutil.DebugPrintAt(screen, g.entityList(), 8, 8)
	vector.DrawFilledRect(screen, float32(w-panelWidth), 0, panelWidth, float32(h), colornames.Darkslategray, false)
	ebitenutil.DebugPrintAt(screen, strings.Join(g.widgets.lines, "\n"), w-panelWidth+8, 8)
	ebitenutil.DebugPrintAt(screen, g.statusLine(), panelWidth+8, h-20)
}

func (g *Game) entityList() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", g.levelName)
	for _, e := range g.ed.Entities() {
		hdr, _ := g.ed.Header(e)
		marker := "  "
		if g.ed.IsSelected(e) {
			marker = "* "
		}
		label := hdr.Type
		if hdr.Name != "" {
			label += " " + hdr.Name
		}
		fmt.Fprintf(&b, "%s%s\n", marker, label)
	}
	for _, o := range g.ed.Orphans() {
		fmt.Fprintf(&b, "  ? %s\n", o.Header.Type)
	}
	return b.String()
}

func (g *Game) statusLine() string {
	dirty := ""
	if g.ed.NeedsSaving() {
		dirty = " [modified]"
	}
	return fmt.Sprintf("frame %d%s  %s", g.last.Frame, dirty, g.status)
}

func (g *Game) uuidCandidates() []uuid.UUID {
	return g.ed.Targets()
}
