// Package config describes how a store is built. Configs can be loaded from
// JSON or YAML.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/observability/log"
)

// KindSet names a kind-set strategy.
type KindSet string

const (
	KindSetFlags   KindSet = "flags"
	KindSetHashSet KindSet = "hashset"
	KindSetRoaring KindSet = "roaring"
)

type Config struct {
	KindSet      KindSet `json:"kindset" yaml:"kindset"`
	FlagCapacity int     `json:"flag_capacity" yaml:"flag_capacity"`

	ComponentCapacity int `json:"component_capacity" yaml:"component_capacity"`
	EntityCapacity    int `json:"entity_capacity" yaml:"entity_capacity"`

	SeedParallelThreshold int `json:"seed_parallel_threshold" yaml:"seed_parallel_threshold"`
	SeedWorkers           int `json:"seed_workers" yaml:"seed_workers"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

func Default() Config {
	return Config{
		KindSet:               KindSetFlags,
		FlagCapacity:          256,
		ComponentCapacity:     16,
		EntityCapacity:        64,
		SeedParallelThreshold: 4096,
		SeedWorkers:           4,
		LogLevel:              "info",
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.KindSet {
	case KindSetFlags, KindSetHashSet, KindSetRoaring:
	default:
		errs = append(errs, ecserr.InvalidArgument("unknown kindset %q", c.KindSet))
	}
	if c.KindSet == KindSetFlags && c.FlagCapacity <= 0 {
		errs = append(errs, ecserr.OutOfRange("flag_capacity must be positive, got %d", c.FlagCapacity))
	}
	if c.ComponentCapacity < 0 {
		errs = append(errs, ecserr.OutOfRange("component_capacity must not be negative, got %d", c.ComponentCapacity))
	}
	if c.EntityCapacity < 0 {
		errs = append(errs, ecserr.OutOfRange("entity_capacity must not be negative, got %d", c.EntityCapacity))
	}
	if c.SeedParallelThreshold < 0 {
		errs = append(errs, ecserr.OutOfRange("seed_parallel_threshold must not be negative, got %d", c.SeedParallelThreshold))
	}
	if c.SeedWorkers < 1 {
		errs = append(errs, ecserr.OutOfRange("seed_workers must be at least 1, got %d", c.SeedWorkers))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ecserr.Wrap(ecserr.CodeInvalidArgument, "log_level", err))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// LoadJSON reads a config from r. Omitted fields keep their defaults.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode json config: %w", err)
	}
	return &c, c.Validate()
}

// LoadYAML reads a config from r. Omitted fields keep their defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}
	return &c, c.Validate()
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, ecserr.InvalidArgument("unsupported config extension %q", ext)
	}
}
