package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"
	"golang.design/x/clipboard"

	"github.com/milk9111/levelkit/config"
	"github.com/milk9111/levelkit/ecs"
	"github.com/milk9111/levelkit/editor"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/prefabs"
)

// Game hosts the editor inside an ebiten loop.
type Game struct {
	cfg     config.Config
	log     zerolog.Logger
	world   *ecs.World
	catalog *prefabs.Catalog
	ed      *editor.Editor
	widgets *keyWidgets
	watcher *levels.Watcher
	fsys    fs.FS
	library *levels.Library

	levelName string
	spawnType int
	clipboard bool
	status    string
	last      editor.FrameReport
}

// selfWriteGrace is how long change events for the open level are ignored after
// the editor saved it.
const selfWriteGrace = 2 * time.Second

func NewGame(cfg config.Config, log zerolog.Logger) (*Game, error) {
	prefabs.Dir = cfg.PrefabsDir
	catalog, err := prefabs.NewCatalog(cfg.AppFormatVersion)
	if err != nil {
		return nil, err
	}
	if prefabs.Overridden("archetypes.yaml") {
		log.Info().Str("dir", prefabs.Dir).Msg("archetypes read from disk")
	}

	g := &Game{
		cfg:       cfg,
		log:       log,
		world:     ecs.NewWorld(),
		catalog:   catalog,
		widgets:   &keyWidgets{},
		levelName: cfg.StartLevel,
	}

	state := editor.GameActive
	if cfg.StartInEditor {
		state = editor.EditorActive
	}
	g.ed, err = editor.New(g.world, catalog.Types, catalog.Codec,
		editor.WithLogger(log),
		editor.WithWidgets(g.widgets),
		editor.WithState(state),
	)
	if err != nil {
		return nil, err
	}
	if err := registerSystems(g.ed, catalog.Handles, g.widgets); err != nil {
		return nil, err
	}
	g.world.AddSystem(&eventLog{log: log})

	diskDir := ""
	if info, err := os.Stat(cfg.LevelsDir); err == nil && info.IsDir() {
		diskDir = cfg.LevelsDir
		g.fsys = os.DirFS(cfg.LevelsDir)
		if cfg.Watch {
			if g.watcher, err = levels.NewWatcher(cfg.LevelsDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.LevelsDir).Msg("level watcher disabled")
			}
		}
	} else {
		log.Info().Str("dir", cfg.LevelsDir).Msg("levels dir missing, using bundled samples")
		if g.fsys, err = fs.Sub(levels.SamplesFS, "samples"); err != nil {
			return nil, err
		}
	}

	if g.library, err = levels.OpenLibrary(g.fsys, diskDir, cfg.IndexFile); err != nil {
		return nil, err
	}
	log.Info().Int("levels", len(g.library.Levels())).Str("index", cfg.IndexFile).Msg("level index read")

	if err := clipboard.Init(); err != nil {
		log.Warn().Err(err).Msg("clipboard unavailable")
	} else {
		g.clipboard = true
	}

	g.open(g.levelName)
	return g, nil
}

func (g *Game) Close() {
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	g.ed.CancelLoad()
}

func (g *Game) open(name string) {
	g.levelName = name
	g.ed.LoadAsync(levels.AsyncLoad(context.Background(), g.fsys, name, g.catalog.Codec))
	g.status = "loading " + name
}

func (g *Game) Update() error {
	g.handleReload()
	g.handleKeys()

	g.widgets.begin(g.uuidCandidates())
	g.last = g.ed.Update()
	g.widgets.end()
	g.world.Update()

	if g.last.Load != nil && g.last.LoadErr == nil {
		g.status = fmt.Sprintf("loaded %s: %d entities, %d orphans", g.levelName, g.last.Load.Entities, len(g.last.Load.UnknownArchetypes))
	}
	if g.last.LoadErr != nil {
		g.status = "load failed: " + g.last.LoadErr.Error()
	}
	if len(g.last.Failures) > 0 {
		g.status = g.last.Failures[0].Error()
	}
	return nil
}

func (g *Game) handleReload() {
	if g.watcher == nil {
		return
	}
	for _, p := range g.watcher.Poll() {
		if filepath.Base(p) != filepath.Base(g.levelName) {
			continue
		}
		if g.ed.NeedsSaving() {
			g.status = "level changed on disk; unsaved edits kept"
			continue
		}
		g.log.Info().Str("path", p).Msg("level changed on disk, reloading")
		g.open(g.levelName)
	}
}

func (g *Game) handleKeys() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		if g.ed.State() == editor.EditorActive {
			g.ed.SetState(editor.GameActive)
		} else {
			g.ed.SetState(editor.EditorActive)
		}
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.save()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copySelection()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.newLevel()
	case inpututil.IsKeyJustPressed(ebiten.KeyBracketRight):
		g.switchLevel(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft):
		g.switchLevel(-1)
	}

	if g.ed.State() != editor.EditorActive || ctrl || g.widgets.typing {
		return
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.cycleSelection(shift)
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.spawnNext()
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		for _, e := range g.ed.Selection() {
			_ = g.ed.Despawn(e)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp), inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		g.moveSelection(inpututil.IsKeyJustPressed(ebiten.KeyPageDown))
	}
}

// cycleSelection selects the next entity in level order. With add it extends
// the selection instead.
func (g *Game) cycleSelection(add bool) {
	ents := g.ed.Entities()
	if len(ents) == 0 {
		return
	}
	next := 0
	if sel := g.ed.Selection(); len(sel) > 0 {
		last := sel[len(sel)-1]
		for i, e := range ents {
			if e == last {
				next = (i + 1) % len(ents)
				break
			}
		}
	}
	if add {
		g.ed.AddToSelection(ents[next])
	} else {
		g.ed.Select(ents[next])
	}
	g.widgets.focus = 0
}

// moveSelection swaps the selected entity with its neighbour in the level.
func (g *Game) moveSelection(down bool) {
	sel := g.ed.Selection()
	if len(sel) != 1 {
		return
	}
	pos, ok := g.ed.Position(sel[0])
	if !ok {
		return
	}
	if down {
		pos++
	} else {
		pos--
	}
	if err := g.ed.MoveEntity(sel[0], pos); err != nil {
		g.log.Debug().Err(err).Msg("move ignored")
	}
}

func (g *Game) spawnNext() {
	names := g.catalog.Types.Names()
	if len(names) == 0 {
		return
	}
	name := names[g.spawnType%len(names)]
	g.spawnType++
	if _, err := g.ed.Spawn(name); err != nil {
		g.status = "spawn failed: " + err.Error()
		return
	}
	g.status = "spawned " + name
}

func (g *Game) save() {
	path := filepath.Join(g.cfg.LevelsDir, g.levelName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		g.status = "save failed: " + err.Error()
		return
	}
	g.ignoreOwnWrite(path)
	if err := g.ed.SaveFile(path); err != nil {
		g.status = "save failed: " + err.Error()
		return
	}
	g.status = "saved " + path
}

func (g *Game) ignoreOwnWrite(path string) {
	if g.watcher != nil {
		g.watcher.Ignore(path, selfWriteGrace)
	}
}

// switchLevel opens the level step places away in the index.
func (g *Game) switchLevel(step int) {
	if g.ed.NeedsSaving() {
		g.status = "save or reload before switching levels"
		return
	}
	name, ok := g.library.Next(g.levelName, step)
	if !ok {
		g.status = "no levels in " + g.cfg.IndexFile
		return
	}
	g.open(name)
}

// newLevel writes an empty level next to the index and lists it there.
func (g *Game) newLevel() {
	if g.ed.NeedsSaving() {
		g.status = "save or reload before creating a level"
		return
	}
	if g.library.ReadOnly() {
		g.status = "bundled samples are read-only; create " + g.cfg.LevelsDir + " first"
		return
	}
	name := g.library.NewLevelName()
	g.ed.CancelLoad()
	g.ed.Unload()

	g.ignoreOwnWrite(g.library.DiskPath(name))
	if err := g.ed.SaveFile(g.library.DiskPath(name)); err != nil {
		g.status = "create failed: " + err.Error()
		return
	}
	if err := g.library.Add(name); err != nil {
		g.status = "index update failed: " + err.Error()
		return
	}
	g.levelName = name
	g.status = "created " + name
	g.log.Info().Str("level", name).Msg("level created")
}

func (g *Game) copySelection() {
	if !g.clipboard {
		g.status = "clipboard unavailable"
		return
	}
	doc := levels.NewDocument(g.catalog.Codec.AppFormatVersion)
	for _, e := range g.ed.Selection() {
		rec, err := g.ed.Record(e)
		if err != nil {
			g.status = "copy failed: " + err.Error()
			return
		}
		doc.Entities = append(doc.Entities, rec)
	}
	if len(doc.Entities) == 0 {
		return
	}
	text, err := levels.Encode(doc)
	if err != nil {
		g.status = "copy failed: " + err.Error()
		return
	}
	clipboard.Write(clipboard.FmtText, text)
	g.status = fmt.Sprintf("copied %d entities", len(doc.Entities))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
