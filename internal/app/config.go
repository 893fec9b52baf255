package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"artdiff/internal/diff"
	"artdiff/internal/diff/cvdiff"
	artimage "artdiff/internal/image"
	"artdiff/internal/store"
	"artdiff/pkg/colorutil"
)

// Environment variables that override the configuration file.
const (
	EnvStorePath = "ARTDIFF_STORE_PATH"
	EnvRasterDir = "ARTDIFF_RASTER_DIR"
)

// Config is the artdiff configuration file.
type Config struct {
	Store   StoreConfig  `yaml:"store"`
	Rasters RasterConfig `yaml:"rasters"`
	Diff    DiffConfig   `yaml:"diff"`
	Canvas  CanvasConfig `yaml:"canvas"`
	Queue   QueueConfig  `yaml:"queue"`

	// Manifest is the default pass manifest path.
	Manifest string `yaml:"manifest"`
}

// StoreConfig locates the entity database.
type StoreConfig struct {
	Path       string `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// RasterConfig locates stored rasters and working files.
type RasterConfig struct {
	Dir    string `yaml:"dir" validate:"required"`
	TmpDir string `yaml:"tmp_dir"`
}

// DiffConfig controls difference generation.
type DiffConfig struct {
	Highlight string  `yaml:"highlight" validate:"required"`
	Lowlight  string  `yaml:"lowlight" validate:"required"`
	Metric    string  `yaml:"metric" validate:"omitempty,oneof=mae mean_absolute_error euclidean rmse"`
	Fuzz      float64 `yaml:"fuzz" validate:"gte=0,lte=1"`
	// Engine selects the comparator: "go" or "opencv".
	Engine string `yaml:"engine" validate:"oneof=go opencv"`
}

// CanvasConfig controls canvas normalization.
type CanvasConfig struct {
	Background string `yaml:"background" validate:"required"`
	Gravity    string `yaml:"gravity"`
	OffsetX    int    `yaml:"offset_x"`
	OffsetY    int    `yaml:"offset_y"`
	// Checkerboard, when positive, fills padding with a checkerboard of this
	// cell size instead of the background color.
	Checkerboard int `yaml:"checkerboard" validate:"gte=0"`
}

// QueueConfig controls background difference generation.
type QueueConfig struct {
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Store:   StoreConfig{Path: ".artdiff/db", SyncWrites: true},
		Rasters: RasterConfig{Dir: ".artdiff/rasters"},
		Diff: DiffConfig{
			Highlight: colorutil.Values{Red: 255, Green: 255, Blue: 255}.String(),
			Lowlight:  colorutil.Values{}.String(),
			Metric:    diff.MeanAbsoluteError.String(),
			Engine:    "go",
		},
		Canvas: CanvasConfig{
			Background: colorutil.Values{Red: 255, Green: 255, Blue: 255}.String(),
			Gravity:    artimage.NorthWest.String(),
		},
		Queue: QueueConfig{Workers: 2},
	}
}

// LoadConfig reads a YAML configuration over the defaults. An empty path
// yields the defaults. Environment overrides are applied before validation.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		c.Store.Path = v
		c.Store.InMemory = false
	}
	if v := strings.TrimSpace(os.Getenv(EnvRasterDir)); v != "" {
		c.Rasters.Dir = v
	}
}

// Validate checks field constraints and that colors, metric and gravity parse.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.DiffOptions(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.CanvasOptions(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StoreConfig converts to the store package's configuration.
func (c Config) StoreConfig() store.Config {
	return store.Config{Path: c.Store.Path, InMemory: c.Store.InMemory, SyncWrites: c.Store.SyncWrites}
}

// DiffOptions builds the comparison options.
func (c Config) DiffOptions() (diff.Options, error) {
	hi, err := colorutil.Parse(c.Diff.Highlight)
	if err != nil {
		return diff.Options{}, fmt.Errorf("diff.highlight: %w", err)
	}
	lo, err := colorutil.Parse(c.Diff.Lowlight)
	if err != nil {
		return diff.Options{}, fmt.Errorf("diff.lowlight: %w", err)
	}
	metric, err := diff.ParseMetric(c.Diff.Metric)
	if err != nil {
		return diff.Options{}, fmt.Errorf("diff.metric: %w", err)
	}
	opts := diff.Options{Highlight: hi, Lowlight: lo, Metric: metric, Fuzz: c.Diff.Fuzz}
	return opts, opts.Validate()
}

// Comparator returns the configured diff engine.
func (c Config) Comparator() diff.Comparator {
	if c.Diff.Engine == "opencv" {
		return cvdiff.Comparator{}
	}
	return diff.Engine{}
}

// CanvasOptions builds the canvas normalization options.
func (c Config) CanvasOptions() (artimage.CanvasOptions, error) {
	opts := artimage.DefaultCanvasOptions()
	bg, err := colorutil.Parse(c.Canvas.Background)
	if err != nil {
		return opts, fmt.Errorf("canvas.background: %w", err)
	}
	opts.Background = bg
	if opts.Gravity, err = artimage.ParseGravity(c.Canvas.Gravity); err != nil {
		return opts, fmt.Errorf("canvas.gravity: %w", err)
	}
	opts.OffsetX, opts.OffsetY = c.Canvas.OffsetX, c.Canvas.OffsetY
	if c.Canvas.Checkerboard > 0 {
		opts.Pattern = artimage.Checkerboard(c.Canvas.Checkerboard, bg, colorutil.Values{Red: 204, Green: 204, Blue: 204}.RGBA())
	}
	return opts, nil
}
