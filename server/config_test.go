package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ampify.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("loads a full config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
listen: ":9090"
upstream: "http://localhost:8000"
amp_prefix: "/amp"
static:
  url_prefix: "/assets/"
  dir: "./public"
probe_timeout: 5s
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Listen != ":9090" {
			t.Errorf("got listen %q", cfg.Listen)
		}
		if cfg.Static.URLPrefix != "/assets/" || cfg.Static.Dir != "./public" {
			t.Errorf("static config wrong: %+v", cfg.Static)
		}
		if time.Duration(cfg.ProbeTimeout) != 5*time.Second {
			t.Errorf("got probe timeout %v", cfg.ProbeTimeout)
		}
	})

	t.Run("applies defaults for omitted values", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(writeConfig(t, `upstream: "http://localhost:8000"`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Listen != DefaultListen {
			t.Errorf("got listen %q", cfg.Listen)
		}
		if cfg.AMPPrefix != DefaultAMPPrefix {
			t.Errorf("got amp prefix %q", cfg.AMPPrefix)
		}
		if cfg.Static.URLPrefix != DefaultStaticPrefix {
			t.Errorf("got static prefix %q", cfg.Static.URLPrefix)
		}
		if time.Duration(cfg.ProbeTimeout) != DefaultProbeTimeout {
			t.Errorf("got probe timeout %v", cfg.ProbeTimeout)
		}
	})

	t.Run("missing upstream fails validation", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfig(writeConfig(t, `listen: ":8080"`))
		if !errors.Is(err, ErrNoUpstream) {
			t.Errorf("got %v, expected ErrNoUpstream", err)
		}
	})

	t.Run("relative upstream fails validation", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfig(writeConfig(t, `upstream: "localhost:8000"`))
		if !errors.Is(err, ErrBadUpstream) {
			t.Errorf("got %v, expected ErrBadUpstream", err)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error for a missing config file")
		}
	})
}
