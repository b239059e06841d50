// Package config reads the stack machine host configuration.
package config

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ezrec/stackvm/translate"
)

var f = translate.From

// Config is the host configuration, as read from a YAML file.
type Config struct {
	Listen    string           `yaml:"listen"`     // Remote control listen address.
	StepLimit int              `yaml:"step_limit"` // Steps per run, 0 for no limit.
	Verbose   bool             `yaml:"verbose"`    // Verbose assembler and machine logging.
	Language  string           `yaml:"language"`   // Message language tag, empty for the system locale.
	Defines   map[string]int64 `yaml:"defines"`    // Assembler predefines.
}

// Default returns the built in configuration.
func Default() (cfg *Config) {
	cfg = &Config{
		Listen:    "127.0.0.1:3001",
		StepLimit: 1_000_000,
		Defines:   map[string]int64{},
	}
	return
}

// ErrConfig locates a configuration error.
type ErrConfig struct {
	Path string
	Err  error
}

func (err *ErrConfig) Error() string {
	return f("config %v: %v", err.Path, err.Err)
}

func (err *ErrConfig) Unwrap() error {
	return err.Err
}

var ErrStepLimit = errors.New(f("step_limit must not be negative"))

// Load reads a configuration file over the defaults.
func Load(path string) (cfg *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	cfg, err = Parse(file)
	if err != nil {
		err = &ErrConfig{Path: path, Err: err}
	}

	return
}

// Parse reads a configuration over the defaults. Unknown fields are rejected.
func Parse(input io.Reader) (cfg *Config, err error) {
	cfg = Default()

	decoder := yaml.NewDecoder(input)
	decoder.KnownFields(true)

	err = decoder.Decode(cfg)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		cfg = nil
		return
	}

	if cfg.StepLimit < 0 {
		cfg = nil
		err = ErrStepLimit
		return
	}

	if cfg.Defines == nil {
		cfg.Defines = map[string]int64{}
	}

	return
}
