package main

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var errMissingSprite = errors.New("entity has no sprite")

func justPressed(k ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(k) || (inpututil.KeyPressDuration(k) > 20 && inpututil.KeyPressDuration(k)%4 == 0)
}

// keyWidgets is a keyboard-driven widget family. Up and Down move the focus
// between widgets drawn this frame, Left and Right change numbers, Space flips
// bools and Enter starts or stops typing into a string.
type keyWidgets struct {
	focus      int
	typing     bool
	n          int
	lines      []string
	candidates []uuid.UUID
	chars      []rune
}

func (k *keyWidgets) begin(candidates []uuid.UUID) {
	k.n = 0
	k.lines = k.lines[:0]
	k.candidates = candidates
	k.chars = ebiten.AppendInputChars(k.chars[:0])
}

func (k *keyWidgets) end() {
	if k.n == 0 {
		k.focus = 0
		k.typing = false
		return
	}
	if k.typing {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		k.focus = (k.focus + 1) % k.n
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		k.focus = (k.focus + k.n - 1) % k.n
	}
	if k.focus >= k.n {
		k.focus = k.n - 1
	}
}

// line records a widget and reports whether it has the focus.
func (k *keyWidgets) line(label, value string) bool {
	focused := k.n == k.focus
	marker := "  "
	if focused {
		marker = "> "
	}
	k.lines = append(k.lines, marker+label+": "+value)
	k.n++
	return focused
}

func (k *keyWidgets) step() int {
	switch {
	case justPressed(ebiten.KeyRight):
		return 1
	case justPressed(ebiten.KeyLeft):
		return -1
	}
	return 0
}

func (k *keyWidgets) Float(label string, v float64) float64 {
	if !k.line(label, strconv.FormatFloat(v, 'g', -1, 64)) {
		return v
	}
	delta := 1.0
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		delta = 0.1
	}
	return v + float64(k.step())*delta
}

func (k *keyWidgets) Int(label string, v int) int {
	if !k.line(label, strconv.Itoa(v)) {
		return v
	}
	return v + k.step()
}

func (k *keyWidgets) Bool(label string, v bool) bool {
	if !k.line(label, strconv.FormatBool(v)) {
		return v
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		return !v
	}
	return v
}

func (k *keyWidgets) String(label string, v string) string {
	if !k.line(label, strconv.Quote(v)) {
		return v
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		k.typing = !k.typing
		return v
	}
	if !k.typing {
		return v
	}
	if len(k.chars) > 0 {
		v += string(k.chars)
	}
	if justPressed(ebiten.KeyBackspace) && len(v) > 0 {
		r := []rune(v)
		v = string(r[:len(r)-1])
	}
	return v
}

// UUID cycles through the UUIDs of the level's entities.
func (k *keyWidgets) UUID(label string, v uuid.UUID) uuid.UUID {
	shown := "none"
	if v != uuid.Nil {
		shown = v.String()[:8]
	}
	if !k.line(label, shown) {
		return v
	}
	step := k.step()
	if step == 0 || len(k.candidates) == 0 {
		return v
	}
	options := append([]uuid.UUID{uuid.Nil}, k.candidates...)
	cur := 0
	for i, u := range options {
		if u == v {
			cur = i
			break
		}
	}
	return options[(cur+step+len(options))%len(options)]
}
