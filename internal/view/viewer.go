package view

import (
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshlink/internal/logger"
	"github.com/Faultbox/meshlink/internal/server"
	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/protocol"
	"github.com/Faultbox/meshlink/pkg/scene"
)

// Config holds viewer settings.
type Config struct {
	Window WindowConfig

	// ScreenshotDir receives a disk copy of every wire-requested capture.
	ScreenshotDir    string
	ScreenshotPrefix string
}

// Viewer owns the window, the GPU scene and the authoritative synced state.
// It pumps the server queue once per frame, so every handler below runs on
// the render thread.
type Viewer struct {
	window   *Window
	renderer *Renderer

	// Synced state by entity path. Meshes hold the post-refinement source
	// so Get responses reflect what was accepted, not what was sent.
	meshes     map[string]*scene.Mesh
	transforms map[string]*scene.Transform
	cameras    map[string]*scene.Camera

	activeCamera string

	screenshotDir    string
	screenshotPrefix string
}

// New creates the window, GL context and renderer.
func New(cfg Config) (*Viewer, error) {
	if cfg.Window.Title == "" {
		cfg.Window.Title = "meshlink viewer"
	}
	window, err := NewWindow(cfg.Window)
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer()
	if err != nil {
		window.Close()
		return nil, err
	}
	v := &Viewer{
		window:     window,
		renderer:   renderer,
		meshes:     make(map[string]*scene.Mesh),
		transforms: make(map[string]*scene.Transform),
		cameras:    make(map[string]*scene.Camera),
	}
	v.screenshotDir = cfg.ScreenshotDir
	v.screenshotPrefix = cfg.ScreenshotPrefix
	return v, nil
}

// Handlers returns the server callbacks bound to this viewer.
func (v *Viewer) Handlers() server.Handlers {
	return server.Handlers{
		OnScene:      v.onScene,
		OnDelete:     v.onDelete,
		OnGet:        v.onGet,
		OnScreenshot: v.onScreenshot,
	}
}

// BonePose resolves bone paths against the synced transform set, for skin
// baking on incoming meshes.
func (v *Viewer) BonePose(path string) (math.Mat4, bool) {
	t, ok := v.transforms[path]
	if !ok {
		return math.Identity(), false
	}
	return t.Matrix(), true
}

func (v *Viewer) onScene(s *server.SyncedScene) {
	for _, t := range s.Scene.Transforms {
		v.transforms[t.Path] = t
	}
	for _, c := range s.Scene.Cameras {
		v.cameras[c.Path] = c
		if v.activeCamera == "" {
			v.activeCamera = c.Path
		}
	}
	for _, m := range s.Meshes {
		v.meshes[m.Source.Path] = m.Source
		v.renderer.Upload(m)
	}
	logger.Log.Debug("scene synced",
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("transforms", len(s.Scene.Transforms)),
		zap.Int("cameras", len(s.Scene.Cameras)),
	)
}

func (v *Viewer) onDelete(targets []protocol.Identifier) {
	for _, t := range targets {
		delete(v.meshes, t.Path)
		delete(v.transforms, t.Path)
		delete(v.cameras, t.Path)
		if v.activeCamera == t.Path {
			v.activeCamera = ""
		}
		v.renderer.Remove(t.Path)
	}
	logger.Log.Debug("entities deleted", zap.Int("count", len(targets)))
}

func (v *Viewer) onGet(req *server.GetRequest) {
	req.Complete(v.snapshotScene(req.Msg.Flags))
}

// snapshotScene copies the synced state into a response scene, filtered by
// the request flags.
func (v *Viewer) snapshotScene(flags protocol.GetFlags) *scene.Scene {
	resp := &scene.Scene{}

	if flags.Transform {
		for _, t := range v.transforms {
			resp.Transforms = append(resp.Transforms, t)
		}
		for _, c := range v.cameras {
			resp.Cameras = append(resp.Cameras, c)
		}
	}
	for _, m := range v.meshes {
		if flags.ApplyCulling && !m.Flags.Visible {
			continue
		}
		resp.Meshes = append(resp.Meshes, filterMesh(m, flags))
	}
	return resp
}

// filterMesh copies a mesh keeping only the attribute categories the
// request asked for.
func filterMesh(m *scene.Mesh, flags protocol.GetFlags) *scene.Mesh {
	out := scene.NewMesh()
	out.Transform = m.Transform
	out.RefineSettings = m.RefineSettings
	out.Flags.Visible = m.Flags.Visible
	out.Flags.HasRefineSettings = m.Flags.HasRefineSettings

	if flags.Points {
		out.Points = m.Points
	}
	if flags.Normals {
		out.Normals = m.Normals
	}
	if flags.Tangents {
		out.Tangents = m.Tangents
	}
	if flags.UV {
		out.UV = m.UV
	}
	if flags.Indices {
		out.Counts = m.Counts
		out.Indices = m.Indices
	}
	if flags.MaterialIDs {
		out.MaterialIDs = m.MaterialIDs
	}
	if flags.Bones {
		out.BonesPerVertex = m.BonesPerVertex
		out.BoneWeights = m.BoneWeights
		out.BoneIndices = m.BoneIndices
		out.Bones = m.Bones
		out.Bindposes = m.Bindposes
	}
	out.SyncFlags()
	return out
}

func (v *Viewer) onScreenshot(req *server.ScreenshotRequest) {
	width, height := v.window.Size()
	data, err := CapturePNG(width, height)
	if err != nil {
		logger.Log.Error("screenshot capture failed", zap.Error(err))
		req.Complete(nil)
		return
	}
	if path, err := SaveScreenshot(v.screenshotDir, v.screenshotPrefix, data); err != nil {
		logger.Log.Warn("screenshot not saved to disk", zap.Error(err))
	} else {
		logger.Log.Info("screenshot saved", zap.String("path", path))
	}
	req.Complete(data)
}

// viewProj picks the active synced camera, falling back to a fixed orbit
// position when no camera has been synced yet.
func (v *Viewer) viewProj() math.Mat4 {
	width, height := v.window.Size()
	aspect := float32(width) / float32(height)

	if cam, ok := v.cameras[v.activeCamera]; ok {
		proj := math.Perspective(math.Radians(cam.FOV), aspect, 0.1, 1000)
		view := cam.Matrix().Inverse()
		return proj.Mul(view)
	}

	proj := math.Perspective(math.Radians(scene.DefaultFOV), aspect, 0.1, 1000)
	eye := math.Vec3{X: 4, Y: 3, Z: 6}
	view := math.LookAt(eye, math.Vec3{}, math.Vec3{Y: 1})
	return proj.Mul(view)
}

// Run drives the frame loop until the window is closed: pump the server
// queue, render, present. srv may be nil for offline viewing.
func (v *Viewer) Run(srv *server.Server) {
	defer v.renderer.Destroy()
	defer v.window.Close()

	for {
		if v.window.PollQuit() {
			return
		}
		if srv != nil {
			srv.Process()
		}

		width, height := v.window.Size()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.08, 0.09, 0.11, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		v.renderer.Draw(v.viewProj())
		v.window.SwapBuffers()

		if !v.window.config.VSync {
			time.Sleep(time.Millisecond) // don't spin a core without vsync
		}
	}
}
