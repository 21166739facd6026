// Package config loads rmask settings from a TOML file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/rmask"
)

//go:embed sample_config.toml
var sampleConfig string

const defaultConfigPath = "~/.config/rmask/config.toml"

// Canvas holds the size of new canvases.
type Canvas struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Brush holds paint settings.
type Brush struct {
	Size float64 `toml:"size"`
}

// Display holds rendering and sync settings.
type Display struct {
	MaskOpacity   float64 `toml:"mask_opacity"`
	ThumbnailSize int     `toml:"thumbnail_size"`
	SyncDelayMS   int     `toml:"sync_delay_ms"`
}

// Saves holds save store settings.
type Saves struct {
	Dir           string `toml:"dir"`
	AutoSaveLimit int    `toml:"auto_save_limit"`
}

// Logging holds log settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the full configuration.
type Config struct {
	Canvas  Canvas  `toml:"canvas"`
	Brush   Brush   `toml:"brush"`
	Display Display `toml:"display"`
	Saves   Saves   `toml:"saves"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Canvas:  Canvas{Width: 512, Height: 512},
		Brush:   Brush{Size: 100},
		Display: Display{MaskOpacity: 30, ThumbnailSize: rmask.DefaultThumbnailSize, SyncDelayMS: int(rmask.DefaultSyncDelay / time.Millisecond)},
		Saves:   Saves{Dir: "~/.local/share/rmask/saves", AutoSaveLimit: 20},
		Logging: Logging{Level: "info"},
	}
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config at path, or the default location when path is
// empty. A missing file yields the defaults. It returns the resolved path
// and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = defaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := true
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func (c *Config) normalize() error {
	c.Canvas.Width = clampInt(c.Canvas.Width, rmask.MinCanvasSize, rmask.MaxCanvasSize)
	c.Canvas.Height = clampInt(c.Canvas.Height, rmask.MinCanvasSize, rmask.MaxCanvasSize)
	if c.Brush.Size < 1 {
		c.Brush.Size = 1
	}
	c.Display.MaskOpacity = min(max(c.Display.MaskOpacity, 0), 100)
	if c.Display.ThumbnailSize < 1 {
		c.Display.ThumbnailSize = rmask.DefaultThumbnailSize
	}
	if c.Display.SyncDelayMS < 1 {
		c.Display.SyncDelayMS = int(rmask.DefaultSyncDelay / time.Millisecond)
	}
	if c.Saves.AutoSaveLimit < 1 {
		c.Saves.AutoSaveLimit = 1
	}

	if strings.TrimSpace(c.Saves.Dir) == "" {
		c.Saves.Dir = Default().Saves.Dir
	}
	dir, err := expandPath(c.Saves.Dir)
	if err != nil {
		return fmt.Errorf("saves.dir: %w", err)
	}
	c.Saves.Dir = dir

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// SyncDelay returns the editor sync delay.
func (c *Config) SyncDelay() time.Duration {
	return time.Duration(c.Display.SyncDelayMS) * time.Millisecond
}

// EditorOptions returns the editor options the config implies.
func (c *Config) EditorOptions() []rmask.Option {
	return []rmask.Option{
		rmask.WithBrushSize(c.Brush.Size),
		rmask.WithMaskOpacity(c.Display.MaskOpacity),
		rmask.WithThumbnailSize(c.Display.ThumbnailSize),
		rmask.WithSyncDelay(c.SyncDelay()),
	}
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// CreateSample writes the commented sample config to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading "~" and makes the path absolute.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
