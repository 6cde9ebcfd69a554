package refine

import (
	"errors"
	"testing"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/scene"
)

const eps = 0.001

func near(a, b float32) bool {
	d := a - b
	return d < eps && d > -eps
}

func vecNear(a, b math.Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

// quadMesh is a unit quad in the XY plane with one quad face.
func quadMesh() *scene.Mesh {
	m := scene.NewMesh()
	m.Path = "/test/quad"
	m.Points = []math.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
	}
	m.UV = []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	m.Counts = []int32{4}
	m.Indices = []int32{0, 1, 2, 3}
	m.MaterialIDs = []int32{5}
	m.SyncFlags()
	return m
}

func refineWith(t *testing.T, m *scene.Mesh, s scene.MeshRefineSettings) *RefinedMesh {
	t.Helper()
	out, err := New(nil).Refine(m, s)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(out.Splits) == 0 {
		t.Fatal("expected at least one split")
	}
	return out
}

func TestTriangulateQuad(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.Triangulate = true

	out := refineWith(t, quadMesh(), s)
	sp := out.Splits[0]

	if len(sp.Indices) != 6 {
		t.Fatalf("expected 6 indices after triangulation, got %d", len(sp.Indices))
	}
	// Fan from the first vertex
	want := []int32{0, 1, 2, 0, 2, 3}
	for i, idx := range want {
		if sp.Indices[i] != idx {
			t.Errorf("index %d: expected %d, got %d", i, idx, sp.Indices[i])
		}
	}
	// Both triangles inherit the source face's material
	if len(sp.Submeshes) != 1 || sp.Submeshes[0].MaterialID != 5 || sp.Submeshes[0].IndexCount != 6 {
		t.Errorf("submesh mismatch: %+v", sp.Submeshes)
	}
}

func TestRefineDoesNotMutateSource(t *testing.T) {
	m := quadMesh()
	s := scene.DefaultRefineSettings()
	s.Flags.Triangulate = true
	s.ScaleFactor = 100

	refineWith(t, m, s)

	if len(m.Indices) != 4 || len(m.Counts) != 1 {
		t.Errorf("source topology mutated: %v %v", m.Counts, m.Indices)
	}
	if m.Points[1] != (math.Vec3{X: 1, Y: 0, Z: 0}) {
		t.Errorf("source points mutated: %v", m.Points[1])
	}
}

func TestScaleFactor(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.ScaleFactor = 0.01

	out := refineWith(t, quadMesh(), s)
	if got := out.Splits[0].Points[2]; !vecNear(got, math.Vec3{X: 0.01, Y: 0.01, Z: 0}) {
		t.Errorf("expected (0.01,0.01,0), got %v", got)
	}
}

func TestApplyLocal2World(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.ApplyLocal2World = true
	s.Local2World = math.Translate(10, 0, 0)

	out := refineWith(t, quadMesh(), s)
	if got := out.Splits[0].Points[0]; !vecNear(got, math.Vec3{X: 10, Y: 0, Z: 0}) {
		t.Errorf("expected (10,0,0), got %v", got)
	}
}

func TestMirrorFlipsWinding(t *testing.T) {
	m := quadMesh()
	s := scene.DefaultRefineSettings()
	s.Flags.MirrorX = true

	out := refineWith(t, m, s)
	sp := out.Splits[0]

	// Points reflected across the YZ plane. The first face vertex after the
	// winding flip is the source face's last vertex (0,1,0).
	if !vecNear(sp.Points[0], math.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("expected reflected (0,1,0) first, got %v", sp.Points[0])
	}
	found := false
	for _, p := range sp.Points {
		if vecNear(p, math.Vec3{X: -1, Y: 0, Z: 0}) {
			found = true
		}
	}
	if !found {
		t.Error("expected a point at (-1,0,0) after mirror")
	}
}

func TestMirrorPreservesFaceNormalDirection(t *testing.T) {
	// Reflect + winding flip must leave the geometric face normal pointing
	// the same way relative to the surface: for a quad in the XY plane
	// mirrored across X, the face normal stays +Z.
	s := scene.DefaultRefineSettings()
	s.Flags.MirrorX = true
	s.Flags.Triangulate = true

	out := refineWith(t, quadMesh(), s)
	sp := out.Splits[0]

	p0 := sp.Points[sp.Indices[0]]
	p1 := sp.Points[sp.Indices[1]]
	p2 := sp.Points[sp.Indices[2]]
	n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	if !vecNear(n, math.Vec3{X: 0, Y: 0, Z: 1}) {
		t.Errorf("expected face normal (0,0,1), got %v", n)
	}
}

func TestInvertV(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.InvertV = true

	out := refineWith(t, quadMesh(), s)
	uv := out.Splits[0].UV
	if !near(uv[0].Y, 1) || !near(uv[2].Y, 0) {
		t.Errorf("expected inverted V, got %v", uv)
	}
}

func TestGenNormalsFlat(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.Triangulate = true
	s.Flags.GenNormals = true

	out := refineWith(t, quadMesh(), s)
	for i, n := range out.Splits[0].Normals {
		if !vecNear(n, math.Vec3{X: 0, Y: 0, Z: 1}) {
			t.Errorf("normal %d: expected (0,0,1), got %v", i, n)
		}
	}
}

// cubeMesh is a unit cube of six quad faces over eight shared vertices,
// wound so every face normal points outward.
func cubeMesh() *scene.Mesh {
	m := scene.NewMesh()
	m.Path = "/test/cube"
	m.Points = []math.Vec3{
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1},
	}
	m.Counts = []int32{4, 4, 4, 4, 4, 4}
	m.Indices = []int32{
		3, 2, 1, 0, // -Z
		4, 5, 6, 7, // +Z
		0, 4, 7, 3, // -X
		1, 2, 6, 5, // +X
		0, 1, 5, 4, // -Y
		2, 3, 7, 6, // +Y
	}
	m.SyncFlags()
	return m
}

func TestGenNormalsHardEdges(t *testing.T) {
	// Cube faces meet at 90 degrees; a 40 degree smoothing threshold keeps
	// every edge hard. Each corner vertex joins three faces, so it must be
	// duplicated into three single-cluster vertices.
	s := scene.DefaultRefineSettings()
	s.Flags.GenNormalsWithSmoothAngle = true
	s.SmoothAngle = 40

	out := refineWith(t, cubeMesh(), s)
	sp := out.Splits[0]

	if len(sp.Points) != 24 {
		t.Fatalf("expected 24 points after hard-edge duplication, got %d", len(sp.Points))
	}
	// Every normal must be axis-aligned
	for i, n := range sp.Normals {
		ax := 0
		for _, c := range []float32{n.X, n.Y, n.Z} {
			if near(c, 1) || near(c, -1) {
				ax++
			} else if !near(c, 0) {
				t.Fatalf("normal %d not axis-aligned: %v", i, n)
			}
		}
		if ax != 1 {
			t.Errorf("normal %d not unit axis: %v", i, n)
		}
	}
}

func TestGenNormalsSmooth(t *testing.T) {
	// With a permissive threshold the cube smooths into sphere-like normals
	// pointing away from the center.
	s := scene.DefaultRefineSettings()
	s.Flags.GenNormalsWithSmoothAngle = true
	s.SmoothAngle = 179

	out := refineWith(t, cubeMesh(), s)
	sp := out.Splits[0]

	if len(sp.Points) != 8 {
		t.Fatalf("expected 8 points without duplication, got %d", len(sp.Points))
	}
	for i, n := range sp.Normals {
		want := sp.Points[i].Normalize()
		if !vecNear(n, want) {
			t.Errorf("normal %d: expected %v, got %v", i, want, n)
		}
	}
}

func TestGenTangents(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.Triangulate = true
	s.Flags.GenNormals = true
	s.Flags.GenTangents = true

	out := refineWith(t, quadMesh(), s)
	sp := out.Splits[0]

	if len(sp.Tangents) != len(sp.Points) {
		t.Fatalf("expected %d tangents, got %d", len(sp.Points), len(sp.Tangents))
	}
	// U runs along +X on this quad
	for i, tan := range sp.Tangents {
		if !vecNear(tan.XYZ(), math.Vec3{X: 1, Y: 0, Z: 0}) {
			t.Errorf("tangent %d: expected (1,0,0), got %v", i, tan.XYZ())
		}
		if !near(tan.W, 1) {
			t.Errorf("tangent %d: expected handedness 1, got %v", i, tan.W)
		}
	}
}

func TestOptimizeTopologyDropsUnreferenced(t *testing.T) {
	m := quadMesh()
	// An orphan vertex nothing references
	m.Points = append(m.Points, math.Vec3{X: 99, Y: 99, Z: 99})
	m.UV = append(m.UV, math.Vec2{})
	m.SyncFlags()

	s := scene.DefaultRefineSettings()
	s.Flags.OptimizeTopology = true

	out := refineWith(t, m, s)
	sp := out.Splits[0]

	if len(sp.Points) != 4 {
		t.Fatalf("expected 4 points after compaction, got %d", len(sp.Points))
	}
	for _, p := range sp.Points {
		if vecNear(p, math.Vec3{X: 99, Y: 99, Z: 99}) {
			t.Error("orphan vertex survived compaction")
		}
	}
	for _, idx := range sp.Indices {
		if idx < 0 || int(idx) >= len(sp.Points) {
			t.Errorf("index %d out of range after remap", idx)
		}
	}
}

func TestSwapFaces(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.SwapFaces = true

	out := refineWith(t, quadMesh(), s)
	sp := out.Splits[0]

	// Winding reversed: first remapped vertex is the source last (0,1,0)
	if !vecNear(sp.Points[sp.Indices[0]], math.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("expected reversed winding, first point %v", sp.Points[sp.Indices[0]])
	}
}

func TestSwapHandedness(t *testing.T) {
	s := scene.DefaultRefineSettings()
	s.Flags.SwapHandedness = true

	out := refineWith(t, quadMesh(), s)
	if got := out.Splits[0].Points[1]; !vecNear(got, math.Vec3{X: -1, Y: 0, Z: 0}) {
		t.Errorf("expected (-1,0,0), got %v", got)
	}
}

func TestSplitBoundsVertexCount(t *testing.T) {
	// A strip of 100 triangles over 102 shared vertices, split at 16
	// distinct vertices per block.
	m := scene.NewMesh()
	m.Path = "/test/strip"
	for i := 0; i < 51; i++ {
		x := float32(i)
		m.Points = append(m.Points, math.Vec3{X: x, Y: 0, Z: 0}, math.Vec3{X: x, Y: 1, Z: 0})
	}
	for i := 0; i < 50; i++ {
		a := int32(i * 2)
		m.Indices = append(m.Indices, a, a+1, a+2, a+1, a+3, a+2)
		m.Counts = append(m.Counts, 3, 3)
		m.MaterialIDs = append(m.MaterialIDs, int32(i%2), int32(i%2))
	}
	m.SyncFlags()

	s := scene.DefaultRefineSettings()
	s.Flags.Split = true
	s.SplitUnit = 16

	out := refineWith(t, m, s)
	if len(out.Splits) < 2 {
		t.Fatalf("expected multiple splits, got %d", len(out.Splits))
	}

	totalTris := 0
	for si, sp := range out.Splits {
		if len(sp.Points) > 16 {
			t.Errorf("split %d has %d points, unit is 16", si, len(sp.Points))
		}
		if len(sp.Indices)%3 != 0 {
			t.Errorf("split %d index count %d not triangles", si, len(sp.Indices))
		}
		totalTris += len(sp.Indices) / 3
		for _, idx := range sp.Indices {
			if idx < 0 || int(idx) >= len(sp.Points) {
				t.Errorf("split %d: index %d out of local range", si, idx)
			}
		}
		// Submeshes partition the index buffer exactly
		covered := 0
		for _, sub := range sp.Submeshes {
			if sub.IndexOffset != covered {
				t.Errorf("split %d: submesh gap at %d", si, sub.IndexOffset)
			}
			covered += sub.IndexCount
		}
		if covered != len(sp.Indices) {
			t.Errorf("split %d: submeshes cover %d of %d indices", si, covered, len(sp.Indices))
		}
		// Material ranges are sorted and contiguous
		for i := 1; i < len(sp.Submeshes); i++ {
			if sp.Submeshes[i].MaterialID <= sp.Submeshes[i-1].MaterialID {
				t.Errorf("split %d: submesh materials not strictly ascending", si)
			}
		}
	}
	if totalTris != 100 {
		t.Errorf("expected 100 triangles across splits, got %d", totalTris)
	}
}

func TestCountsSynthesizedFromTriangleList(t *testing.T) {
	m := quadMesh()
	m.Counts = nil
	m.Indices = []int32{0, 1, 2, 0, 2, 3}
	m.MaterialIDs = nil
	m.SyncFlags()

	out := refineWith(t, m, scene.DefaultRefineSettings())
	if got := len(out.Splits[0].Indices); got != 6 {
		t.Errorf("expected 6 indices, got %d", got)
	}
}

func TestMalformedTopology(t *testing.T) {
	r := New(nil)

	// Face with fewer than three vertices
	m := quadMesh()
	m.Counts = []int32{2, 2}
	if _, err := r.Refine(m, scene.DefaultRefineSettings()); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("degenerate face: expected ErrMalformedTopology, got %v", err)
	}

	// Counts disagree with the index buffer
	m = quadMesh()
	m.Counts = []int32{5}
	if _, err := r.Refine(m, scene.DefaultRefineSettings()); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("counts mismatch: expected ErrMalformedTopology, got %v", err)
	}

	// Index out of range
	m = quadMesh()
	m.Indices = []int32{0, 1, 2, 9}
	if _, err := r.Refine(m, scene.DefaultRefineSettings()); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("index out of range: expected ErrMalformedTopology, got %v", err)
	}

	// Dangling triangle-list remainder
	m = quadMesh()
	m.Counts = nil
	m.Indices = []int32{0, 1, 2, 3}
	if _, err := r.Refine(m, scene.DefaultRefineSettings()); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("non-triangle list: expected ErrMalformedTopology, got %v", err)
	}
}

func TestMirrorTwiceRestoresMesh(t *testing.T) {
	// Mirroring is an involution: reflecting across the same plane again
	// must return both positions and winding to the source.
	src := quadMesh()
	s := scene.DefaultRefineSettings()
	s.Flags.MirrorX = true

	once := refineWith(t, src, s).Splits[0]

	mid := scene.NewMesh()
	mid.Path = "/test/quad-mirrored"
	mid.Points = once.Points
	mid.UV = once.UV
	mid.Counts = []int32{4}
	mid.Indices = once.Indices
	mid.SyncFlags()

	twice := refineWith(t, mid, s).Splits[0]

	// Walking the face visits the original vertices in the original order,
	// regardless of how the split pass remapped the buffers.
	if len(twice.Indices) != len(src.Indices) {
		t.Fatalf("expected %d indices, got %d", len(src.Indices), len(twice.Indices))
	}
	for i, idx := range twice.Indices {
		want := src.Points[src.Indices[i]]
		if !vecNear(twice.Points[idx], want) {
			t.Errorf("face vertex %d: expected %v, got %v", i, want, twice.Points[idx])
		}
	}
}

func TestShortAttributeBufferPadded(t *testing.T) {
	m := quadMesh()
	m.UV = m.UV[:2] // shorter than the point count
	m.SyncFlags()

	out := refineWith(t, m, scene.DefaultRefineSettings())
	sp := out.Splits[0]
	if len(sp.UV) != len(sp.Points) {
		t.Fatalf("expected padded uv buffer, got %d of %d", len(sp.UV), len(sp.Points))
	}
	if sp.UV[3] != (math.Vec2{}) {
		t.Errorf("expected zero-padded uv, got %v", sp.UV[3])
	}
}

func skinnedMesh() *scene.Mesh {
	m := quadMesh()
	m.BonesPerVertex = 1
	m.BoneWeights = []float32{1, 1, 1, 1}
	m.BoneIndices = []int32{0, 0, 0, 0}
	m.Bones = []string{"/rig/root"}
	m.Bindposes = []math.Mat4{math.Identity()}
	m.SyncFlags()
	return m
}

func TestBakeSkinTranslation(t *testing.T) {
	m := skinnedMesh()
	s := scene.DefaultRefineSettings()
	s.Flags.BakeSkin = true

	r := New(nil)
	r.BonePose = func(path string) (math.Mat4, bool) {
		if path == "/rig/root" {
			return math.Translate(1, 0, 0), true
		}
		return math.Identity(), false
	}

	out, err := r.Refine(m, s)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got := out.Splits[0].Points[0]; !vecNear(got, math.Vec3{X: 1, Y: 0, Z: 0}) {
		t.Errorf("expected baked translation (1,0,0), got %v", got)
	}
	if out.Weights4 != nil {
		t.Error("baked mesh should carry no residual weights")
	}
}

func TestBoneIndexOutOfRangeRejected(t *testing.T) {
	r := New(nil)
	s := scene.DefaultRefineSettings()
	s.Flags.BakeSkin = true

	m := skinnedMesh()
	m.BoneIndices = []int32{-1, -1, -1, -1}
	if _, err := r.Refine(m, s); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("negative bone index: expected ErrMalformedTopology, got %v", err)
	}

	m = skinnedMesh()
	m.BoneIndices = []int32{0, 0, 0, 7}
	if _, err := r.Refine(m, s); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("bone index past bone count: expected ErrMalformedTopology, got %v", err)
	}
}

func TestWeights4TopFourRenormalized(t *testing.T) {
	m := quadMesh()
	m.BonesPerVertex = 5
	m.Bones = []string{"/b0", "/b1", "/b2", "/b3", "/b4"}
	m.Bindposes = []math.Mat4{
		math.Identity(), math.Identity(), math.Identity(), math.Identity(), math.Identity(),
	}
	m.BoneWeights = make([]float32, 4*5)
	m.BoneIndices = make([]int32, 4*5)
	// Vertex 0: five equal influences; the weakest must be dropped and the
	// rest renormalized.
	for i := 0; i < 5; i++ {
		m.BoneWeights[i] = 0.2
		m.BoneIndices[i] = int32(i)
	}
	m.SyncFlags()

	out := refineWith(t, m, scene.DefaultRefineSettings())
	if out.Weights4 == nil {
		t.Fatal("expected residual weights without BakeSkin")
	}
	var total float32
	for _, w := range out.Weights4[0].Weights {
		total += w
	}
	if !near(total, 1) {
		t.Errorf("expected renormalized sum 1, got %v", total)
	}
}
