// Package config loads on-disk Engine tunables — search paths, the
// collector's allocation pacing knob, and the native-module ABI
// version string — from YAML, so an embedder can keep these out of
// code the way production embedders of scripting runtimes typically
// do (SPEC_FULL.md's AMBIENT STACK "Configuration" section).
package config

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/gopika/gopika/internal/engine"
	"github.com/gopika/gopika/internal/gc"
)

// Config is the on-disk shape an embedder hands to Load. Every field
// is optional; a zero Config produces no Options at all.
type Config struct {
	SearchPaths []string `yaml:"search_paths"`
	GCNumAllocs int       `yaml:"gc_num_allocs"`
	ABIVersion  string    `yaml:"abi_version"`
}

// Load reads and unmarshals the YAML file at path.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Options translates cfg into engine.Option values, applying cfg's
// GCNumAllocs over gc.DefaultConfig's WorkPerStep pacing rather
// than replacing the whole gc.Config, since a config file only ever
// wants to tune the allocation threshold, not every collector knob.
func (cfg Config) Options() []engine.Option {
	var opts []engine.Option
	if len(cfg.SearchPaths) > 0 {
		opts = append(opts, engine.WithSearchPaths(cfg.SearchPaths...))
	}
	if cfg.ABIVersion != "" {
		opts = append(opts, engine.WithABIVersion(cfg.ABIVersion))
	}
	if cfg.GCNumAllocs > 0 {
		gcCfg := gc.DefaultConfig
		gcCfg.NumAllocs = cfg.GCNumAllocs
		opts = append(opts, engine.WithGCConfig(gcCfg))
	}
	return opts
}
