package refine

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlink/pkg/math"
)

// faceNormal returns the unit normal of one face, computed from its first
// three vertices (faces are planar by assumption). Degenerate faces yield
// the zero vector.
func (w *workMesh) faceNormal(off, n int) math.Vec3 {
	p0 := w.points[w.indices[off]]
	p1 := w.points[w.indices[off+1]]
	p2 := w.points[w.indices[off+2]]
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	if cross.Length() < 1e-8 {
		return math.Vec3{}
	}
	return cross.Normalize()
}

// cornerAngle returns the interior angle at corner i of the face starting at
// off with n vertices.
func (w *workMesh) cornerAngle(off, n, i int) float32 {
	cur := w.points[w.indices[off+i]]
	prev := w.points[w.indices[off+(i+n-1)%n]]
	next := w.points[w.indices[off+(i+1)%n]]
	a := prev.Sub(cur).Normalize()
	b := next.Sub(cur).Normalize()
	return math.Angle(a, b)
}

// genNormals recomputes per-vertex normals as the angle-weighted average of
// adjacent face normals. With smoothDeg >= 0, faces meeting at a vertex
// whose normals diverge beyond the threshold are not merged: the vertex is
// duplicated across the hard edge so each side keeps its own normal.
// smoothDeg < 0 smooths everything.
func (w *workMesh) genNormals(smoothDeg float32) {
	if len(w.points) == 0 || len(w.indices) == 0 {
		return
	}

	type corner struct {
		face int // face index
		off  int // face index-buffer offset
		n    int // face vertex count
		i    int // corner within the face
	}

	faceNormals := make([]math.Vec3, len(w.counts))
	cornersByVertex := make([][]corner, len(w.points))
	off := 0
	for fi, c := range w.counts {
		n := int(c)
		faceNormals[fi] = w.faceNormal(off, n)
		for i := 0; i < n; i++ {
			v := w.indices[off+i]
			cornersByVertex[v] = append(cornersByVertex[v], corner{face: fi, off: off, n: n, i: i})
		}
		off += n
	}

	if smoothDeg < 0 {
		normals := make([]math.Vec3, len(w.points))
		for v, corners := range cornersByVertex {
			var sum math.Vec3
			for _, c := range corners {
				sum = sum.Add(faceNormals[c.face].Scale(w.cornerAngle(c.off, c.n, c.i)))
			}
			normals[v] = sum.Normalize()
		}
		w.normals = normals
		return
	}

	// Hard-edge mode: cluster each vertex's adjacent faces by face-normal
	// divergence; every cluster beyond the first gets a duplicated vertex.
	cosThreshold := math32.Cos(smoothDeg * math32.Pi / 180)
	normals := make([]math.Vec3, len(w.points))
	for v := 0; v < len(cornersByVertex); v++ {
		corners := cornersByVertex[v]
		if len(corners) == 0 {
			continue
		}

		var clusters [][]corner
		seeds := []math.Vec3{}
		for _, c := range corners {
			fn := faceNormals[c.face]
			placed := false
			for ci, seed := range seeds {
				if fn.Dot(seed) >= cosThreshold {
					clusters[ci] = append(clusters[ci], c)
					placed = true
					break
				}
			}
			if !placed {
				clusters = append(clusters, []corner{c})
				seeds = append(seeds, fn)
			}
		}

		for ci, cluster := range clusters {
			var sum math.Vec3
			for _, c := range cluster {
				sum = sum.Add(faceNormals[c.face].Scale(w.cornerAngle(c.off, c.n, c.i)))
			}
			nrm := sum.Normalize()

			target := int32(v)
			if ci > 0 {
				// Duplicate position and attributes across the edge.
				target = int32(len(w.points))
				w.points = append(w.points, w.points[v])
				if len(w.tangents) > 0 {
					w.tangents = append(w.tangents, w.tangents[v])
				}
				if len(w.uv) > 0 {
					w.uv = append(w.uv, w.uv[v])
				}
				if len(w.weights) > 0 {
					w.weights = append(w.weights, w.weights[v])
				}
				normals = append(normals, math.Vec3{})
				for _, c := range cluster {
					w.indices[c.off+c.i] = target
				}
			}
			normals[target] = nrm
		}
	}
	w.normals = normals
}
