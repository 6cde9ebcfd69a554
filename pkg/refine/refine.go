// Package refine turns raw sync meshes into renderer-safe form: triangulated,
// attribute-consistent, partitioned into vertex-count-bounded split blocks
// with materialID submesh ranges.
//
// Refinement is a pure function of (mesh, settings); the input mesh is never
// mutated. A Refiner is safe for concurrent use over distinct meshes.
package refine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/scene"
)

// ErrMalformedTopology rejects a mesh whose face data is degenerate or
// under-specified. Sibling meshes in the same scene are unaffected.
var ErrMalformedTopology = errors.New("malformed topology")

// BoneWeight4 is the per-vertex influence cache, bounded to the four
// strongest weights.
type BoneWeight4 struct {
	Weights [4]float32
	Indices [4]int32
}

// Submesh is a materialID-homogeneous index range within a split block.
type Submesh struct {
	MaterialID  int32
	IndexOffset int // into the split's Indices
	IndexCount  int
}

// Split is one vertex-count-bounded partition of a refined mesh, carrying
// its own remapped buffers.
type Split struct {
	Points   []math.Vec3
	Normals  []math.Vec3
	Tangents []math.Vec4
	UV       []math.Vec2
	Indices  []int32

	Submeshes []Submesh
}

// RefinedMesh is the renderer-ready result. None of it travels on the wire.
type RefinedMesh struct {
	Source *scene.Mesh
	Splits []Split

	// Weights4 is populated when bone data is present and not baked away.
	Weights4 []BoneWeight4
}

// Refiner applies refinement policies to meshes.
type Refiner struct {
	log *zap.Logger

	// BonePose resolves a bone path to its current pose matrix for skin
	// baking. Nil, or a miss, means identity pose (the skinning matrix is
	// the bindpose alone).
	BonePose func(path string) (math.Mat4, bool)
}

// New returns a Refiner logging attribute warnings to log.
// A nil log discards them.
func New(log *zap.Logger) *Refiner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refiner{log: log}
}

// workMesh is the mutable pipeline state. Buffers start as copies of the
// source mesh so refinement never touches the wire value.
type workMesh struct {
	points      []math.Vec3
	normals     []math.Vec3
	tangents    []math.Vec4
	uv          []math.Vec2
	counts      []int32
	indices     []int32
	materialIDs []int32
	weights     []BoneWeight4
}

// Refine runs the pipeline over one mesh under the given policy. Steps run
// in a fixed order regardless of flag declaration order, since later steps
// depend on invariants established by earlier ones.
func (r *Refiner) Refine(m *scene.Mesh, s scene.MeshRefineSettings) (*RefinedMesh, error) {
	w, err := r.prepare(m)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Path, err)
	}
	f := s.Flags

	if s.ScaleFactor != 1 && s.ScaleFactor != 0 {
		w.applyScale(s.ScaleFactor)
	}
	// Both transform flags may be set; they apply in listed order.
	if f.ApplyLocal2World {
		w.applyTransform(s.Local2World)
	}
	if f.ApplyWorld2Local {
		w.applyTransform(s.World2Local)
	}
	if f.MirrorX {
		w.applyMirror(math.Vec3{X: 1})
	}
	if f.MirrorY {
		w.applyMirror(math.Vec3{Y: 1})
	}
	if f.MirrorZ {
		w.applyMirror(math.Vec3{Z: 1})
	}
	if f.SwapHandedness {
		w.swapHandedness()
	}
	if f.InvertV {
		w.invertV()
	}
	if f.Triangulate {
		w.triangulate()
	}
	if f.SwapFaces {
		w.swapFaces()
	}
	if f.OptimizeTopology {
		w.optimizeTopology()
	}
	if f.GenNormals || f.GenNormalsWithSmoothAngle {
		smooth := float32(-1)
		if f.GenNormalsWithSmoothAngle {
			smooth = s.SmoothAngle
		}
		w.genNormals(smooth)
	}
	if f.GenTangents {
		w.genTangents()
	}

	out := &RefinedMesh{Source: m}
	if len(w.weights) > 0 {
		if f.BakeSkin {
			r.bakeSkin(m, w)
		} else {
			out.Weights4 = w.weights
		}
	}

	unit := int(s.SplitUnit)
	if unit <= 0 {
		unit = scene.DefaultSplitUnit
	}
	if f.Split {
		out.Splits = w.split(unit)
	} else {
		out.Splits = w.split(len(w.points) + 1) // single block
	}
	return out, nil
}

// prepare validates topology, copies buffers, and reconciles attribute
// lengths against the point count (AttributeInconsistency is a warning, not
// an error).
func (r *Refiner) prepare(m *scene.Mesh) (*workMesh, error) {
	w := &workMesh{
		points:      append([]math.Vec3(nil), m.Points...),
		counts:      append([]int32(nil), m.Counts...),
		indices:     append([]int32(nil), m.Indices...),
		materialIDs: append([]int32(nil), m.MaterialIDs...),
	}

	// A missing counts buffer alongside a triangle-list index buffer is a
	// plain triangle mesh.
	if len(w.counts) == 0 && len(w.indices) > 0 {
		if len(w.indices)%3 != 0 {
			return nil, fmt.Errorf("%w: %d indices without face counts", ErrMalformedTopology, len(w.indices))
		}
		w.counts = make([]int32, len(w.indices)/3)
		for i := range w.counts {
			w.counts[i] = 3
		}
	}

	total := 0
	for i, c := range w.counts {
		if c < 3 {
			return nil, fmt.Errorf("%w: face %d has %d vertices", ErrMalformedTopology, i, c)
		}
		total += int(c)
	}
	if total != len(w.indices) {
		return nil, fmt.Errorf("%w: counts sum %d, %d indices", ErrMalformedTopology, total, len(w.indices))
	}
	for i, idx := range w.indices {
		if idx < 0 || int(idx) >= len(w.points) {
			return nil, fmt.Errorf("%w: index %d out of range at %d", ErrMalformedTopology, idx, i)
		}
	}

	w.normals = r.fitVec3(m, "normals", m.Normals, len(m.Points))
	w.tangents = r.fitVec4(m, "tangents", m.Tangents, len(m.Points))
	w.uv = r.fitVec2(m, "uv", m.UV, len(m.Points))

	if len(w.materialIDs) > 0 && len(w.materialIDs) != len(w.counts) {
		r.log.Warn("materialID count does not match face count",
			zap.String("path", m.Path),
			zap.Int("materials", len(w.materialIDs)),
			zap.Int("faces", len(w.counts)))
		w.materialIDs = fitInt32(w.materialIDs, len(w.counts))
	}

	if len(m.Bones) > 0 && m.BonesPerVertex > 0 {
		for i, bi := range m.BoneIndices {
			if bi < 0 || int(bi) >= len(m.Bones) {
				return nil, fmt.Errorf("%w: bone index %d out of range at %d", ErrMalformedTopology, bi, i)
			}
		}
		w.weights = buildWeights4(m)
	}
	return w, nil
}

// fitVec3 reconciles an optional attribute buffer with the vertex count:
// longer buffers are truncated, shorter ones zero-padded so every vertex
// index stays addressable.
func (r *Refiner) fitVec3(m *scene.Mesh, name string, buf []math.Vec3, n int) []math.Vec3 {
	if len(buf) == 0 {
		return nil
	}
	out := append([]math.Vec3(nil), buf...)
	if len(out) != n {
		r.warnLength(m, name, len(out), n)
		for len(out) < n {
			out = append(out, math.Vec3{})
		}
		out = out[:n]
	}
	return out
}

func (r *Refiner) fitVec4(m *scene.Mesh, name string, buf []math.Vec4, n int) []math.Vec4 {
	if len(buf) == 0 {
		return nil
	}
	out := append([]math.Vec4(nil), buf...)
	if len(out) != n {
		r.warnLength(m, name, len(out), n)
		for len(out) < n {
			out = append(out, math.Vec4{})
		}
		out = out[:n]
	}
	return out
}

func (r *Refiner) fitVec2(m *scene.Mesh, name string, buf []math.Vec2, n int) []math.Vec2 {
	if len(buf) == 0 {
		return nil
	}
	out := append([]math.Vec2(nil), buf...)
	if len(out) != n {
		r.warnLength(m, name, len(out), n)
		for len(out) < n {
			out = append(out, math.Vec2{})
		}
		out = out[:n]
	}
	return out
}

func (r *Refiner) warnLength(m *scene.Mesh, name string, got, want int) {
	r.log.Warn("attribute buffer length mismatch",
		zap.String("path", m.Path),
		zap.String("attribute", name),
		zap.Int("length", got),
		zap.Int("points", want))
}

func fitInt32(buf []int32, n int) []int32 {
	out := append([]int32(nil), buf...)
	for len(out) < n {
		out = append(out, 0)
	}
	return out[:n]
}
