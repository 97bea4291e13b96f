// Package config loads the YAML settings file.
package config

import (
	"os"
	"time"

	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/shapes"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Material is the default surface given to generated meshes.
type Material struct {
	Name  string     `yaml:"name"`
	Color [4]float32 `yaml:"color,flow"`
}

// Config holds every tunable setting.
type Config struct {
	MaxFrames      int           `yaml:"max_frames"`
	FPS            int           `yaml:"fps"`
	CylinderSlices int           `yaml:"cylinder_slices"`
	SphereSlices   int           `yaml:"sphere_slices"`
	SphereStacks   int           `yaml:"sphere_stacks"`
	LimbShape      string        `yaml:"limb_shape,omitempty"`
	Material       Material      `yaml:"material"`
	Listen         string        `yaml:"listen"`
	ScriptDir      string        `yaml:"script_dir,omitempty"`
	LogLevel       string        `yaml:"log_level"`
	EvalTimeout    time.Duration `yaml:"eval_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxFrames:      scene.DefaultMaxFrames,
		FPS:            30,
		CylinderSlices: kernel.DefaultSlices,
		SphereSlices:   kernel.DefaultSlices,
		SphereStacks:   kernel.DefaultStacks,
		Material: Material{
			Name:  "Default",
			Color: [4]float32{0.8, 0.8, 0.8, 1},
		},
		Listen:      "127.0.0.1:8000",
		LogLevel:    "info",
		EvalTimeout: 5 * time.Second,
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "parse config %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Validate reports the first setting that is out of range.
func (c Config) Validate() error {
	switch {
	case c.MaxFrames < 1:
		return errors.Errorf("max_frames must be at least 1, got %d", c.MaxFrames)
	case c.FPS < 1 || c.FPS > 240:
		return errors.Errorf("fps must be in [1, 240], got %d", c.FPS)
	case c.CylinderSlices < 3:
		return errors.Errorf("cylinder_slices must be at least 3, got %d", c.CylinderSlices)
	case c.SphereSlices < 3:
		return errors.Errorf("sphere_slices must be at least 3, got %d", c.SphereSlices)
	case c.SphereStacks < 2:
		return errors.Errorf("sphere_stacks must be at least 2, got %d", c.SphereStacks)
	case c.EvalTimeout <= 0:
		return errors.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	for _, v := range c.Material.Color {
		if v < 0 || v > 1 {
			return errors.Errorf("material color components must be in [0, 1], got %v", c.Material.Color)
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// Level returns the configured log level, or info when it does not parse.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SceneMaterial converts the configured material for scene nodes.
func (c Config) SceneMaterial() *scene.Material {
	return &scene.Material{Name: c.Material.Name, Color: c.Material.Color}
}

// ShapeContext returns the generation context for new nodes.
func (c Config) ShapeContext(log logrus.FieldLogger) shapes.Context {
	return shapes.Context{
		Material:  c.SceneMaterial(),
		MaxFrames: c.MaxFrames,
		Logger:    log,
	}
}

// FigureOptions returns the tessellation detail for the mannequin.
func (c Config) FigureOptions() figure.Options {
	return figure.Options{
		CylinderSlices: c.CylinderSlices,
		SphereSlices:   c.SphereSlices,
		SphereStacks:   c.SphereStacks,
		LimbKind:       kernel.Kind(c.LimbShape),
	}
}

// Save writes c to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write config %s", path)
}
