package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagListen   = flag.String("listen", "", "Sync server listen address")
	flagMetrics  = flag.String("metrics", "", "Prometheus metrics listen address")
	flagWidth    = flag.Int("width", 0, "Viewer window width")
	flagHeight   = flag.Int("height", 0, "Viewer window height")
	flagNoVSync  = flag.Bool("no-vsync", false, "Disable VSync in the viewer")
	flagNoSplit  = flag.Bool("no-split", false, "Disable default mesh splitting")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagListen != "" {
		cfg.Server.Listen = *flagListen
	}
	if *flagMetrics != "" {
		cfg.Metrics.Listen = *flagMetrics
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
	if *flagNoVSync {
		cfg.Viewer.VSync = false
	}
	if *flagNoSplit {
		cfg.Refine.Split = false
	}
}
