package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopika/gopika/internal/config"
)

func TestLoadParsesYAMLFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gopika.yaml")
	contents := "search_paths:\n  - ./scripts\n  - ./lib\ngc_num_allocs: 256\nabi_version: gopika-abi-2\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.SearchPaths) != 2 || cfg.SearchPaths[0] != "./scripts" || cfg.SearchPaths[1] != "./lib" {
		t.Fatalf("unexpected search paths: %v", cfg.SearchPaths)
	}
	if cfg.GCNumAllocs != 256 {
		t.Fatalf("expected GCNumAllocs 256, got %d", cfg.GCNumAllocs)
	}
	if cfg.ABIVersion != "gopika-abi-2" {
		t.Fatalf("expected ABI version override, got %q", cfg.ABIVersion)
	}
}

func TestOptionsOmitsUnsetFields(t *testing.T) {
	cfg := config.Config{}
	if got := cfg.Options(); len(got) != 0 {
		t.Fatalf("expected a zero Config to produce no Options, got %d", len(got))
	}
}

func TestOptionsIncludesEverySetField(t *testing.T) {
	cfg := config.Config{SearchPaths: []string{"./scripts"}, GCNumAllocs: 128, ABIVersion: "gopika-abi-9"}
	if got := cfg.Options(); len(got) != 3 {
		t.Fatalf("expected three Options for three set fields, got %d", len(got))
	}
}
