// Package main is a producer-side tool for exercising a running viewer
// host: push a test scene, pull the synced scene back, delete entities or
// request a screenshot.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Faultbox/meshlink/internal/client"
	"github.com/Faultbox/meshlink/internal/logger"
	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/protocol"
	"github.com/Faultbox/meshlink/pkg/scene"
)

var (
	addr       = flag.String("addr", "127.0.0.1:8989", "sync server address")
	send       = flag.Bool("send", false, "push a test cube scene")
	get        = flag.Bool("get", false, "pull the synced scene and print a summary")
	deletePath = flag.String("delete", "", "comma-separated entity paths to delete")
	screenshot = flag.String("screenshot", "", "request a screenshot and save it to this file")
	timeout    = flag.Duration("timeout", 10*time.Second, "per-exchange timeout")
	debug      = flag.Bool("debug", false, "verbose logging")
)

func main() {
	flag.Parse()
	if !*send && !*get && *deletePath == "" && *screenshot == "" {
		flag.Usage()
		os.Exit(2)
	}

	logCfg := logger.DefaultConfig()
	logCfg.File = ""
	if *debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := client.Connect(*addr, logger.Log)
	if err != nil {
		fail(err)
	}
	defer c.Close()
	c.Timeout = *timeout

	if *send {
		if err := c.SendScene(testScene()); err != nil {
			fail(fmt.Errorf("sending scene: %w", err))
		}
		fmt.Println("scene sent")
	}
	if *get {
		flags := protocol.GetFlags{
			Transform:   true,
			Points:      true,
			Normals:     true,
			UV:          true,
			Indices:     true,
			MaterialIDs: true,
		}
		s, err := c.Get(flags, scene.DefaultRefineSettings())
		if err != nil {
			fail(fmt.Errorf("get: %w", err))
		}
		printSummary(s)
	}
	if *deletePath != "" {
		var targets []protocol.Identifier
		for _, p := range strings.Split(*deletePath, ",") {
			targets = append(targets, protocol.Identifier{Path: p})
		}
		if err := c.SendDelete(targets); err != nil {
			fail(fmt.Errorf("delete: %w", err))
		}
		fmt.Printf("deleted %d entities\n", len(targets))
	}
	if *screenshot != "" {
		data, err := c.Screenshot()
		if err != nil {
			fail(fmt.Errorf("screenshot: %w", err))
		}
		if err := os.WriteFile(*screenshot, data, 0644); err != nil {
			fail(fmt.Errorf("writing %s: %w", *screenshot, err))
		}
		fmt.Printf("screenshot saved to %s (%d bytes)\n", *screenshot, len(data))
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// testScene builds a unit cube of quad faces, so the host's triangulation
// and normal generation have something to do.
func testScene() *scene.Scene {
	m := scene.NewMesh()
	m.Path = "/meshsend/cube"
	m.ID = 1
	m.Points = []math.Vec3{
		{X: -0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: -0.5, Z: -0.5},
		{X: 0.5, Y: 0.5, Z: -0.5}, {X: -0.5, Y: 0.5, Z: -0.5},
		{X: -0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: -0.5, Z: 0.5},
		{X: 0.5, Y: 0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: 0.5},
	}
	m.Counts = []int32{4, 4, 4, 4, 4, 4}
	m.Indices = []int32{
		0, 1, 2, 3, // back
		5, 4, 7, 6, // front
		4, 0, 3, 7, // left
		1, 5, 6, 2, // right
		3, 2, 6, 7, // top
		4, 5, 1, 0, // bottom
	}
	m.MaterialIDs = []int32{0, 0, 0, 0, 0, 0}
	m.RefineSettings.Flags.Triangulate = true
	m.RefineSettings.Flags.GenNormalsWithSmoothAngle = true
	m.RefineSettings.SmoothAngle = 40
	m.Flags.HasRefineSettings = true
	m.SyncFlags()

	cam := scene.NewCamera()
	cam.Path = "/meshsend/camera"
	cam.ID = 2
	cam.Position = math.Vec3{X: 2.5, Y: 2, Z: 4}

	return &scene.Scene{
		Meshes:  []*scene.Mesh{m},
		Cameras: []*scene.Camera{cam},
	}
}

func printSummary(s *scene.Scene) {
	fmt.Printf("scene: %d meshes, %d transforms, %d cameras\n",
		len(s.Meshes), len(s.Transforms), len(s.Cameras))
	for _, m := range s.Meshes {
		fmt.Printf("  mesh %-30s points=%d indices=%d faces=%d\n",
			m.Path, len(m.Points), len(m.Indices), len(m.Counts))
	}
	for _, t := range s.Transforms {
		fmt.Printf("  transform %s\n", t.Path)
	}
	for _, c := range s.Cameras {
		fmt.Printf("  camera %-27s fov=%.1f\n", c.Path, c.FOV)
	}
}
