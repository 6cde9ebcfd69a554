package refine

import (
	"sort"

	"github.com/Faultbox/meshlink/pkg/math"
)

// split partitions the mesh into blocks whose distinct-vertex count never
// exceeds unit, via a greedy forward scan over faces: faces accumulate into
// the current block until the next face's novel vertices would overflow it.
// A single face can never overflow an empty block, so the scan always makes
// progress. Each block carries remapped buffers and a submesh partition by
// materialID.
func (w *workMesh) split(unit int) []Split {
	if len(w.points) == 0 {
		return nil
	}
	if len(w.indices) == 0 {
		// Point cloud: one block, no topology.
		return []Split{{
			Points:   w.points,
			Normals:  w.normals,
			Tangents: w.tangents,
			UV:       w.uv,
		}}
	}

	type blockFace struct {
		material int32
		indices  []int32 // remapped to block-local space
	}
	type block struct {
		faces         []blockFace
		localToGlobal []int32
	}

	var blocks []block
	cur := block{}
	remap := make(map[int32]int32)

	material := func(fi int) int32 {
		if fi < len(w.materialIDs) {
			return w.materialIDs[fi]
		}
		return 0
	}

	off := 0
	for fi, c := range w.counts {
		n := int(c)
		face := w.indices[off : off+n]

		novel := 0
		for _, idx := range face {
			if _, ok := remap[idx]; !ok {
				novel++
			}
		}
		if len(cur.faces) > 0 && len(cur.localToGlobal)+novel > unit {
			blocks = append(blocks, cur)
			cur = block{}
			remap = make(map[int32]int32)
		}

		local := make([]int32, n)
		for i, idx := range face {
			l, ok := remap[idx]
			if !ok {
				l = int32(len(cur.localToGlobal))
				remap[idx] = l
				cur.localToGlobal = append(cur.localToGlobal, idx)
			}
			local[i] = l
		}
		cur.faces = append(cur.faces, blockFace{material: material(fi), indices: local})
		off += n
	}
	if len(cur.faces) > 0 {
		blocks = append(blocks, cur)
	}

	splits := make([]Split, 0, len(blocks))
	for _, b := range blocks {
		// Stable reorder by materialID so each submesh is one contiguous
		// index range.
		sort.SliceStable(b.faces, func(i, j int) bool {
			return b.faces[i].material < b.faces[j].material
		})

		var s Split
		s.Points = make([]math.Vec3, len(b.localToGlobal))
		for l, g := range b.localToGlobal {
			s.Points[l] = w.points[g]
		}
		if len(w.normals) > 0 {
			s.Normals = make([]math.Vec3, len(b.localToGlobal))
			for l, g := range b.localToGlobal {
				s.Normals[l] = w.normals[g]
			}
		}
		if len(w.tangents) > 0 {
			s.Tangents = make([]math.Vec4, len(b.localToGlobal))
			for l, g := range b.localToGlobal {
				s.Tangents[l] = w.tangents[g]
			}
		}
		if len(w.uv) > 0 {
			s.UV = make([]math.Vec2, len(b.localToGlobal))
			for l, g := range b.localToGlobal {
				s.UV[l] = w.uv[g]
			}
		}

		for fi := 0; fi < len(b.faces); {
			mat := b.faces[fi].material
			start := len(s.Indices)
			for fi < len(b.faces) && b.faces[fi].material == mat {
				s.Indices = append(s.Indices, b.faces[fi].indices...)
				fi++
			}
			s.Submeshes = append(s.Submeshes, Submesh{
				MaterialID:  mat,
				IndexOffset: start,
				IndexCount:  len(s.Indices) - start,
			})
		}
		splits = append(splits, s)
	}
	return splits
}
