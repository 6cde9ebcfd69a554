package refine

import (
	"sort"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/scene"
)

// buildWeights4 condenses the flattened per-vertex influence buffers into the
// bounded 4-weight cache. When a vertex carries more than four influences,
// the four strongest are kept and renormalized to sum to one.
func buildWeights4(m *scene.Mesh) []BoneWeight4 {
	per := int(m.BonesPerVertex)
	vertexCount := len(m.Points)
	out := make([]BoneWeight4, vertexCount)

	type influence struct {
		weight float32
		index  int32
	}
	infl := make([]influence, 0, per)

	for v := 0; v < vertexCount; v++ {
		base := v * per
		infl = infl[:0]
		for i := 0; i < per; i++ {
			if base+i >= len(m.BoneWeights) || base+i >= len(m.BoneIndices) {
				break
			}
			infl = append(infl, influence{m.BoneWeights[base+i], m.BoneIndices[base+i]})
		}
		sort.Slice(infl, func(a, b int) bool { return infl[a].weight > infl[b].weight })
		if len(infl) > 4 {
			infl = infl[:4]
		}

		var total float32
		for _, in := range infl {
			total += in.weight
		}
		for i, in := range infl {
			wgt := in.weight
			if total > 0 {
				wgt /= total
			}
			out[v].Weights[i] = wgt
			out[v].Indices[i] = in.index
		}
	}
	return out
}

// bakeSkin applies the linear blend of each vertex's bone transforms to
// points and normals, leaving a mesh with no residual bone dependency. The
// skinning matrix per bone is pose * bindpose, where the pose comes from the
// Refiner's resolver (identity when absent).
func (r *Refiner) bakeSkin(m *scene.Mesh, w *workMesh) {
	skin := make([]math.Mat4, len(m.Bones))
	for i, path := range m.Bones {
		pose := math.Identity()
		if r.BonePose != nil {
			if p, ok := r.BonePose(path); ok {
				pose = p
			}
		}
		bind := math.Identity()
		if i < len(m.Bindposes) {
			bind = m.Bindposes[i]
		}
		skin[i] = pose.Mul(bind)
	}

	for v := range w.points {
		bw := w.weights[v]
		var p, n math.Vec3
		for i := 0; i < 4; i++ {
			wgt := bw.Weights[i]
			if wgt == 0 {
				continue
			}
			bi := bw.Indices[i]
			if bi < 0 || int(bi) >= len(skin) {
				continue
			}
			p = p.Add(skin[bi].TransformPoint(w.points[v]).Scale(wgt))
			if len(w.normals) > 0 {
				n = n.Add(skin[bi].TransformDirection(w.normals[v]).Scale(wgt))
			}
		}
		w.points[v] = p
		if len(w.normals) > 0 {
			w.normals[v] = n.Normalize()
		}
	}
	w.weights = nil
}
