// Package config handles sync-host configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/meshlink/internal/logger"
)

// Config holds all sync-host settings.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Refine     RefineConfig     `yaml:"refine"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Logging    logger.Config    `yaml:"logging"`
}

// ServerConfig holds sync server settings.
type ServerConfig struct {
	Listen      string        `yaml:"listen"`
	WaitTimeout time.Duration `yaml:"wait_timeout"` // Get/Screenshot completion bound
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// ViewerConfig holds display settings.
type ViewerConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// RefineConfig is the refinement policy applied to incoming meshes that
// carry no policy of their own. The wire-carried policy always wins.
type RefineConfig struct {
	Triangulate bool    `yaml:"triangulate"`
	GenNormals  bool    `yaml:"gen_normals"`
	SmoothAngle float32 `yaml:"smooth_angle"`
	Split       bool    `yaml:"split"`
	SplitUnit   int32   `yaml:"split_unit"`
}

// ScreenshotConfig holds screenshot capture settings.
type ScreenshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      "127.0.0.1:8989",
			WaitTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Refine: RefineConfig{
			Triangulate: true,
			GenNormals:  true,
			SmoothAngle: 40,
			Split:       true,
			SplitUnit:   65000,
		},
		Screenshot: ScreenshotConfig{
			Dir:    "screenshots",
			Prefix: "meshlink",
		},
		Logging: logger.DefaultConfig(),
	}
}
