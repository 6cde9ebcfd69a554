// Package main is the entry point for the meshlink viewer host.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlink/internal/config"
	"github.com/Faultbox/meshlink/internal/logger"
	"github.com/Faultbox/meshlink/internal/server"
	"github.com/Faultbox/meshlink/internal/view"
	"github.com/Faultbox/meshlink/pkg/scene"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("=== Meshlink Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	viewer, err := view.New(view.Config{
		Window: view.WindowConfig{
			Title:      "meshlink viewer",
			Width:      cfg.Viewer.Width,
			Height:     cfg.Viewer.Height,
			Fullscreen: cfg.Viewer.Fullscreen,
			VSync:      cfg.Viewer.VSync,
		},
		ScreenshotDir:    cfg.Screenshot.Dir,
		ScreenshotPrefix: cfg.Screenshot.Prefix,
	})
	if err != nil {
		logger.Log.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Listen:        cfg.Server.Listen,
		WaitTimeout:   cfg.Server.WaitTimeout,
		DefaultRefine: defaultRefine(cfg.Refine),
	}, viewer.Handlers(), logger.Log)
	srv.SetBonePose(viewer.BonePose)

	if err := srv.Start(); err != nil {
		logger.Log.Error("failed to start sync server", zap.Error(err))
		os.Exit(1)
	}
	defer srv.Close()

	if cfg.Metrics.Listen != "" {
		go server.ServeMetrics(cfg.Metrics.Listen, logger.Log)
	}

	viewer.Run(srv)
	logger.Log.Info("viewer closed normally")
}

// defaultRefine maps the configured host-side policy onto wire settings for
// meshes that arrive without their own.
func defaultRefine(rc config.RefineConfig) scene.MeshRefineSettings {
	s := scene.DefaultRefineSettings()
	s.Flags.Triangulate = rc.Triangulate
	s.Flags.GenNormalsWithSmoothAngle = rc.GenNormals
	s.Flags.GenTangents = rc.GenNormals
	s.Flags.Split = rc.Split
	s.SmoothAngle = rc.SmoothAngle
	if rc.SplitUnit > 0 {
		s.SplitUnit = rc.SplitUnit
	}
	return s
}
