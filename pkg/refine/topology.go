package refine

import "github.com/Faultbox/meshlink/pkg/math"

// triangulate fans every face with more than three vertices into triangles
// consistent with the declared winding, replicating the source face's
// materialID onto each generated triangle. Afterwards every counts entry is
// exactly 3.
func (w *workMesh) triangulate() {
	triCount := 0
	for _, c := range w.counts {
		triCount += int(c) - 2
	}

	indices := make([]int32, 0, triCount*3)
	var materialIDs []int32
	if len(w.materialIDs) > 0 {
		materialIDs = make([]int32, 0, triCount)
	}

	off := 0
	for fi, c := range w.counts {
		n := int(c)
		for i := 1; i < n-1; i++ {
			indices = append(indices, w.indices[off], w.indices[off+i], w.indices[off+i+1])
			if materialIDs != nil {
				materialIDs = append(materialIDs, w.materialIDs[fi])
			}
		}
		off += n
	}

	counts := make([]int32, triCount)
	for i := range counts {
		counts[i] = 3
	}

	w.counts = counts
	w.indices = indices
	if materialIDs != nil {
		w.materialIDs = materialIDs
	}
}

// swapFaces reverses the index order within each face (winding flip) without
// touching geometry.
func (w *workMesh) swapFaces() {
	w.reverseWinding()
}

// optimizeTopology drops vertices no index references and remaps the index
// buffer, keeping every attribute buffer addressable by the same index. The
// visible surface is never changed.
func (w *workMesh) optimizeTopology() {
	if len(w.indices) == 0 {
		return
	}
	remap := make([]int32, len(w.points))
	for i := range remap {
		remap[i] = -1
	}
	kept := 0
	for _, idx := range w.indices {
		if remap[idx] < 0 {
			remap[idx] = int32(kept)
			kept++
		}
	}
	if kept == len(w.points) {
		return
	}

	points := make([]math.Vec3, kept)
	var normals []math.Vec3
	var tangents []math.Vec4
	var uv []math.Vec2
	var weights []BoneWeight4
	if len(w.normals) > 0 {
		normals = make([]math.Vec3, kept)
	}
	if len(w.tangents) > 0 {
		tangents = make([]math.Vec4, kept)
	}
	if len(w.uv) > 0 {
		uv = make([]math.Vec2, kept)
	}
	if len(w.weights) > 0 {
		weights = make([]BoneWeight4, kept)
	}
	for old, idx := range remap {
		if idx < 0 {
			continue
		}
		points[idx] = w.points[old]
		if normals != nil {
			normals[idx] = w.normals[old]
		}
		if tangents != nil {
			tangents[idx] = w.tangents[old]
		}
		if uv != nil {
			uv[idx] = w.uv[old]
		}
		if weights != nil {
			weights[idx] = w.weights[old]
		}
	}
	for i, idx := range w.indices {
		w.indices[i] = remap[idx]
	}
	w.points = points
	w.normals = normals
	w.tangents = tangents
	w.uv = uv
	if weights != nil {
		w.weights = weights
	}
}
