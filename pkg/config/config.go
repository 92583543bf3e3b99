// Package config holds the evaluator settings that can be stored in a
// YAML file and overridden from the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/daimatz/jvmeval/pkg/vm"
)

// Config is the evaluator configuration.
type Config struct {
	// MaxFrameDepth bounds nested method calls. Deeper calls throw
	// StackOverflowError.
	MaxFrameDepth int `yaml:"max_frame_depth"`
	// Resources lists directories and jar/zip archives searched by
	// Class.getResourceAsStream, in order.
	Resources []string `yaml:"resources"`
	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxFrameDepth: vm.DefaultMaxFrameDepth,
		LogLevel:      zerolog.LevelWarnValue,
	}
}

// Load reads a YAML configuration file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode reads a YAML configuration on top of the defaults.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.MaxFrameDepth <= 0 {
		return fmt.Errorf("max_frame_depth must be positive, got %d", c.MaxFrameDepth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, r := range c.Resources {
		if r == "" {
			return errors.New("resources: empty path")
		}
	}
	return nil
}

// Level parses LogLevel. An empty level means warn.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Options converts the configuration into VM options, tracing to logger.
func (c *Config) Options(logger zerolog.Logger) []vm.Option {
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithMaxFrameDepth(c.MaxFrameDepth),
	}
	if len(c.Resources) > 0 {
		opts = append(opts, vm.WithResources(vm.OpenResourcePath(c.Resources)))
	}
	return opts
}
