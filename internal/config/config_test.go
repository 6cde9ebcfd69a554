package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server defaults
	if cfg.Server.Listen != "127.0.0.1:8989" {
		t.Errorf("expected listen 127.0.0.1:8989, got %s", cfg.Server.Listen)
	}
	if cfg.Server.WaitTimeout != 10*time.Second {
		t.Errorf("expected wait timeout 10s, got %v", cfg.Server.WaitTimeout)
	}
	if cfg.Metrics.Listen != "" {
		t.Errorf("expected metrics disabled by default, got %s", cfg.Metrics.Listen)
	}

	// Viewer defaults
	if cfg.Viewer.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Viewer.Width)
	}
	if cfg.Viewer.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Viewer.Height)
	}
	if cfg.Viewer.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Viewer.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Refine defaults
	if !cfg.Refine.Triangulate || !cfg.Refine.GenNormals || !cfg.Refine.Split {
		t.Error("expected triangulate, gen_normals and split on by default")
	}
	if cfg.Refine.SmoothAngle != 40 {
		t.Errorf("expected smooth angle 40, got %v", cfg.Refine.SmoothAngle)
	}
	if cfg.Refine.SplitUnit != 65000 {
		t.Errorf("expected split unit 65000, got %d", cfg.Refine.SplitUnit)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `server:
  listen: "0.0.0.0:9000"
  wait_timeout: 5s
viewer:
  width: 1920
  vsync: false
refine:
  smooth_angle: 60
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}

	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("expected listen 0.0.0.0:9000, got %s", cfg.Server.Listen)
	}
	if cfg.Server.WaitTimeout != 5*time.Second {
		t.Errorf("expected wait timeout 5s, got %v", cfg.Server.WaitTimeout)
	}
	if cfg.Viewer.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Viewer.Width)
	}
	if cfg.Viewer.VSync {
		t.Error("expected vsync disabled")
	}
	if cfg.Refine.SmoothAngle != 60 {
		t.Errorf("expected smooth angle 60, got %v", cfg.Refine.SmoothAngle)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}

	// Untouched sections keep their defaults
	if cfg.Viewer.Height != 720 {
		t.Errorf("expected height 720 preserved, got %d", cfg.Viewer.Height)
	}
	if cfg.Refine.SplitUnit != 65000 {
		t.Errorf("expected split unit 65000 preserved, got %d", cfg.Refine.SplitUnit)
	}
}

func TestSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	in := Default()
	in.Server.Listen = "127.0.0.1:7777"
	in.Screenshot.Prefix = "capture"
	if err := in.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	out := Default()
	if err := loadFromFile(out, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if out.Server.Listen != "127.0.0.1:7777" {
		t.Errorf("expected listen 127.0.0.1:7777, got %s", out.Server.Listen)
	}
	if out.Screenshot.Prefix != "capture" {
		t.Errorf("expected prefix capture, got %s", out.Screenshot.Prefix)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
