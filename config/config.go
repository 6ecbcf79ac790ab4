package config

import (
	"fmt"
	"os"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the editor binaries.
//
// Values are read in three layers: defaults, an optional YAML file and the
// environment. An environment variable such as LEVELKIT_LEVELS_DIR=levels
// overrides the matching file value.
type Config struct {
	LevelsDir        string `yaml:"levels_dir" config:"LEVELKIT_LEVELS_DIR"`
	IndexFile        string `yaml:"index_file" config:"LEVELKIT_INDEX_FILE"`
	PrefabsDir       string `yaml:"prefabs_dir" config:"LEVELKIT_PREFABS_DIR"`
	StartLevel       string `yaml:"start_level" config:"LEVELKIT_START_LEVEL"`
	AppFormatVersion int    `yaml:"app_format_version" config:"LEVELKIT_APP_FORMAT_VERSION"`
	LogLevel         string `yaml:"log_level" config:"LEVELKIT_LOG_LEVEL"`
	Watch            bool   `yaml:"watch" config:"LEVELKIT_WATCH"`
	StartInEditor    bool   `yaml:"start_in_editor" config:"LEVELKIT_START_IN_EDITOR"`
	WindowWidth      int    `yaml:"window_width" config:"LEVELKIT_WINDOW_WIDTH"`
	WindowHeight     int    `yaml:"window_height" config:"LEVELKIT_WINDOW_HEIGHT"`
}

func Default() Config {
	return Config{
		LevelsDir:        "levels",
		IndexFile:        "index.yoli",
		PrefabsDir:       "prefabs",
		StartLevel:       "intro.yol",
		AppFormatVersion: 1,
		LogLevel:         "info",
		Watch:            true,
		StartInEditor:    true,
		WindowWidth:      960,
		WindowHeight:     640,
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path or a missing file skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.LevelsDir == "" {
		return fmt.Errorf("config: levels_dir is empty")
	}
	if c.AppFormatVersion < 0 {
		return fmt.Errorf("config: app_format_version %d is negative", c.AppFormatVersion)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("config: window size %dx%d is invalid", c.WindowWidth, c.WindowHeight)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// LoggerLevel returns the configured level, or info when it does not parse.
func (c Config) LoggerLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Logger returns a console logger at the configured level.
func (c Config) Logger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(c.LoggerLevel()).With().Timestamp().Logger()
}
