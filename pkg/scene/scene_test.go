package scene

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/wire"
)

func buildMesh() *Mesh {
	m := NewMesh()
	m.ID = 7
	m.Path = "/root/pCube1"
	m.Points = []math.Vec3{
		{X: -0.5, Y: -0.5, Z: 0}, {X: 0.5, Y: -0.5, Z: 0}, {X: 0.5, Y: 0.5, Z: 0}, {X: -0.5, Y: 0.5, Z: 0},
	}
	m.UV = []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	m.Counts = []int32{4}
	m.Indices = []int32{0, 1, 2, 3}
	m.MaterialIDs = []int32{2}
	m.SyncFlags()
	return m
}

func encode(t *testing.T, v wire.Value) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := v.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != v.Size() {
		t.Fatalf("Size reports %d bytes, Encode wrote %d", v.Size(), buf.Len())
	}
	return buf.Bytes()
}

func TestEntityName(t *testing.T) {
	e := Entity{Path: "/root/group/pSphere3"}
	if got := e.Name(); got != "pSphere3" {
		t.Errorf("expected pSphere3, got %q", got)
	}
	e.Path = "orphan"
	if got := e.Name(); got != "orphan" {
		t.Errorf("expected orphan, got %q", got)
	}
}

func TestTransformRoundtrip(t *testing.T) {
	in := NewTransform()
	in.ID = 3
	in.Path = "/root/locator1"
	in.Position = math.Vec3{X: 1, Y: 2, Z: 3}
	in.SetRotation(math.QuatFromEulerZXY(math.Vec3{X: 10, Y: 20, Z: 30}))
	in.Scale = math.Vec3{X: 2, Y: 2, Z: 2}

	data := encode(t, in)

	out := NewTransform()
	if err := out.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Path != in.Path || out.ID != in.ID {
		t.Errorf("identity mismatch: %+v", out.Entity)
	}
	if out.Position != in.Position || out.Rotation != in.Rotation ||
		out.RotationEuler != in.RotationEuler || out.Scale != in.Scale {
		t.Errorf("TRS mismatch: %+v", out)
	}
}

func TestCameraRoundtrip(t *testing.T) {
	in := NewCamera()
	in.Path = "/root/camera1"
	in.Position = math.Vec3{X: 0, Y: 5, Z: -10}
	in.FOV = 62.5

	data := encode(t, in)

	out := NewCamera()
	if err := out.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.FOV != 62.5 {
		t.Errorf("expected FOV 62.5, got %v", out.FOV)
	}
	if out.Position != in.Position {
		t.Errorf("position mismatch: %v", out.Position)
	}
}

func TestCameraDefaultFOV(t *testing.T) {
	if c := NewCamera(); c.FOV != 30.0 {
		t.Errorf("expected default FOV 30, got %v", c.FOV)
	}
}

func TestMeshRoundtrip(t *testing.T) {
	in := buildMesh()
	in.RefineSettings.Flags.Triangulate = true
	in.RefineSettings.ScaleFactor = 0.01
	in.Flags.HasRefineSettings = true

	data := encode(t, in)

	out := NewMesh()
	if err := out.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Path != "/root/pCube1" {
		t.Errorf("path mismatch: %q", out.Path)
	}
	if len(out.Points) != 4 || len(out.UV) != 4 {
		t.Errorf("expected 4 points and 4 uvs, got %d and %d", len(out.Points), len(out.UV))
	}
	if out.Points[2] != (math.Vec3{X: 0.5, Y: 0.5, Z: 0}) {
		t.Errorf("point mismatch: %v", out.Points[2])
	}
	if len(out.Counts) != 1 || out.Counts[0] != 4 {
		t.Errorf("counts mismatch: %v", out.Counts)
	}
	if !out.Flags.HasRefineSettings {
		t.Error("refine settings flag lost")
	}
	if !out.RefineSettings.Flags.Triangulate || out.RefineSettings.ScaleFactor != 0.01 {
		t.Errorf("refine settings mismatch: %+v", out.RefineSettings)
	}
	if out.Flags.HasNormals || len(out.Normals) != 0 {
		t.Error("normals should be absent")
	}
}

func TestMeshFlagGatedOmission(t *testing.T) {
	// A cleared presence flag must remove the buffer from the encoding
	// entirely, not write an empty count.
	m := buildMesh()
	full := len(encode(t, m))

	m.Flags.HasUV = false
	m.UV = nil
	bare := len(encode(t, m))

	// 4 bytes count prefix + 4 uvs at 8 bytes
	if full-bare != 4+4*8 {
		t.Errorf("expected 36 byte difference, got %d", full-bare)
	}

	out := NewMesh()
	if err := out.Decode(bytes.NewReader(encode(t, m))); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.UV) != 0 || len(out.Points) != 4 {
		t.Errorf("omitted buffer corrupted neighbors: uv=%d points=%d", len(out.UV), len(out.Points))
	}
}

func TestMeshSkinRoundtrip(t *testing.T) {
	in := buildMesh()
	in.BonesPerVertex = 2
	in.BoneWeights = []float32{1, 0, 0.5, 0.5, 1, 0, 0.7, 0.3}
	in.BoneIndices = []int32{0, 0, 0, 1, 1, 0, 0, 1}
	in.Bones = []string{"/rig/hip", "/rig/hip/spine"}
	in.Bindposes = []math.Mat4{math.Identity(), math.Translate(0, -1, 0)}
	in.SyncFlags()

	out := NewMesh()
	if err := out.Decode(bytes.NewReader(encode(t, in))); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.BonesPerVertex != 2 {
		t.Errorf("expected 2 bones per vertex, got %d", out.BonesPerVertex)
	}
	if len(out.Bones) != 2 || out.Bones[1] != "/rig/hip/spine" {
		t.Errorf("bone paths mismatch: %v", out.Bones)
	}
	if len(out.BoneWeights) != 8 || out.BoneWeights[3] != 0.5 {
		t.Errorf("bone weights mismatch: %v", out.BoneWeights)
	}
	if out.Bindposes[1] != math.Translate(0, -1, 0) {
		t.Errorf("bindpose mismatch")
	}
}

func TestMeshClear(t *testing.T) {
	m := buildMesh()
	m.Flags.HasRefineSettings = true
	m.Clear()

	if len(m.Points) != 0 || len(m.Indices) != 0 || len(m.Counts) != 0 {
		t.Error("buffers not cleared")
	}
	if m.Flags.HasPoints || m.Flags.HasRefineSettings {
		t.Error("flags not cleared")
	}
	if !m.Flags.Visible {
		t.Error("cleared mesh should stay visible")
	}
}

func TestRefineSettingsRoundtrip(t *testing.T) {
	in := DefaultRefineSettings()
	in.Flags.Triangulate = true
	in.Flags.GenNormalsWithSmoothAngle = true
	in.Flags.MirrorX = true
	in.Flags.BakeSkin = true
	in.ScaleFactor = 0.01
	in.SmoothAngle = 60
	in.SplitUnit = 32000
	in.Local2World = math.Translate(1, 2, 3)

	var buf bytes.Buffer
	if err := in.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != in.Size() {
		t.Fatalf("Size reports %d, wrote %d", in.Size(), buf.Len())
	}

	var out MeshRefineSettings
	if err := out.Decode(&buf); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Errorf("settings mismatch:\n in  %+v\n out %+v", in, out)
	}
}

func TestSceneRoundtrip(t *testing.T) {
	tr := NewTransform()
	tr.Path = "/root"
	cam := NewCamera()
	cam.Path = "/root/camera1"

	in := &Scene{
		Meshes:     []*Mesh{buildMesh()},
		Transforms: []*Transform{tr},
		Cameras:    []*Camera{cam},
	}

	data := encode(t, in)

	out := &Scene{}
	if err := out.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Meshes) != 1 || len(out.Transforms) != 1 || len(out.Cameras) != 1 {
		t.Fatalf("entity counts mismatch: %d/%d/%d",
			len(out.Meshes), len(out.Transforms), len(out.Cameras))
	}
	if out.Meshes[0].Path != "/root/pCube1" || out.Cameras[0].Path != "/root/camera1" {
		t.Errorf("paths mismatch")
	}
}

func TestSceneDecodeHostileCount(t *testing.T) {
	var buf bytes.Buffer
	wire.WriteUint32(&buf, 0xFFFFFFFF)

	err := (&Scene{}).Decode(&buf)
	if !errors.Is(err, wire.ErrCountTooLarge) {
		t.Errorf("expected ErrCountTooLarge, got %v", err)
	}
}

func TestSceneDecodeTruncated(t *testing.T) {
	data := encode(t, &Scene{Meshes: []*Mesh{buildMesh()}})

	err := (&Scene{}).Decode(bytes.NewReader(data[:len(data)-3]))
	if !errors.Is(err, wire.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
