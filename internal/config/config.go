// Package config loads the YAML configuration of the glovecore daemon.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/glove"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/sensor"
	"github.com/ayusman/glovecore/internal/session"
)

// Glove sources understood by the daemon.
const (
	SourceSimulated = "simulated"
	SourceNone      = "none"
)

// Config is the top-level structure of glovecore.yaml.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Store   StoreConfig    `yaml:"store"`
	Glove   GloveConfig    `yaml:"glove"`
	Session session.Config `yaml:"session"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// StaticDir is served at /. Empty searches the usual web directories.
	StaticDir string `yaml:"static_dir"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty uses ~/.glovecore/glovecore.db.
	Path string `yaml:"path"`
}

// GloveConfig describes the glove the session is built for.
type GloveConfig struct {
	Device string `yaml:"device"` // nova, nova2, senseglove or custom
	Side   string `yaml:"side"`
	Source string `yaml:"source"` // simulated or none

	// Custom devices only.
	Name     string          `yaml:"name"`
	Bindings []BindingConfig `yaml:"bindings"`
	RangeMin []float32       `yaml:"range_min"`
	RangeMax []float32       `yaml:"range_max"`

	Simulated glove.SimConfig `yaml:"simulated"`
}

// BindingConfig maps one sensor channel to finger movements, e.g.
//
//	{channel: 0, finger: index, movements: [mcp_flexion, pip_flexion]}
type BindingConfig struct {
	Channel   int      `yaml:"channel"`
	Finger    string   `yaml:"finger"`
	Movements []string `yaml:"movements"`
}

// Default returns the configuration used when no file is given: a simulated
// right-handed Nova served on :8080.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Glove: GloveConfig{
			Device:    device.KindNova.String(),
			Side:      hand.Right.String(),
			Source:    SourceSimulated,
			Simulated: glove.DefaultSimConfig(),
		},
		Session: session.DefaultConfig(),
	}
}

// Load reads path over the defaults. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section, including that the glove can be built.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := c.Glove.Build(); err != nil {
		return fmt.Errorf("glove: %w", err)
	}
	switch c.Glove.Source {
	case SourceSimulated:
		if err := c.Glove.Simulated.Validate(); err != nil {
			return fmt.Errorf("glove: %w", err)
		}
	case SourceNone:
	default:
		return fmt.Errorf("glove.source %q: want %s or %s", c.Glove.Source, SourceSimulated, SourceNone)
	}
	if err := c.Session.Calibration.Validate(); err != nil {
		return fmt.Errorf("session.calibration: %w", err)
	}
	return nil
}

// Build returns the device described by the configuration.
func (g GloveConfig) Build() (device.Device, error) {
	side, err := hand.ParseSide(g.Side)
	if err != nil {
		return nil, err
	}
	kind, err := device.ParseKind(g.Device)
	if err != nil {
		return nil, err
	}
	if kind != device.KindCustom {
		if len(g.Bindings) > 0 {
			return nil, fmt.Errorf("bindings are only allowed on custom devices, not %s: %w", kind, hand.ErrInvalidArgument)
		}
		return device.New(kind, side)
	}

	bindings := make([]device.Binding, 0, len(g.Bindings))
	for _, bc := range g.Bindings {
		b, err := device.ParseBinding(bc.Channel, bc.Finger, bc.Movements)
		if err != nil {
			return nil, fmt.Errorf("binding for channel %d: %w", bc.Channel, err)
		}
		bindings = append(bindings, b)
	}

	var raw *sensor.Range
	if len(g.RangeMin) > 0 || len(g.RangeMax) > 0 {
		if raw, err = sensor.FromBounds(g.RangeMin, g.RangeMax); err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
	}
	return device.NewCustom(g.Name, side, bindings, raw)
}
