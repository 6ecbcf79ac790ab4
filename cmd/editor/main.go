package main

import (
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/levelkit/config"
)

func main() {
	configPath := flag.String("config", "levelkit.yaml", "path to the config file")
	level := flag.String("level", "", "level file to open, relative to the levels dir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger := config.Default().Logger()
		logger.Fatal().Err(err).Msg("load config")
	}
	if *level != "" {
		cfg.StartLevel = *level
	}
	log := cfg.Logger()

	game, err := NewGame(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("start editor")
	}
	defer game.Close()

	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowTitle("levelkit")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && err != ebiten.Termination {
		log.Error().Err(err).Msg("editor stopped")
		os.Exit(1)
	}
}
