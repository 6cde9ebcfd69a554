package refine

import "github.com/Faultbox/meshlink/pkg/math"

// genTangents derives per-vertex tangents from the UV parameterization using
// the two-edge/two-delta-UV solve per face, accumulated per vertex and then
// orthonormalized against the vertex normal. W carries handedness. Requires
// uv and normals; silently skipped when either is missing.
func (w *workMesh) genTangents() {
	if len(w.uv) == 0 || len(w.normals) == 0 || len(w.indices) == 0 {
		return
	}

	tan1 := make([]math.Vec3, len(w.points))
	tan2 := make([]math.Vec3, len(w.points))

	off := 0
	for _, c := range w.counts {
		n := int(c)
		// Fan over the face so polygons work the same as triangles.
		for i := 1; i < n-1; i++ {
			i0 := w.indices[off]
			i1 := w.indices[off+i]
			i2 := w.indices[off+i+1]

			p0, p1, p2 := w.points[i0], w.points[i1], w.points[i2]
			u0, u1, u2 := w.uv[i0], w.uv[i1], w.uv[i2]

			e1 := p1.Sub(p0)
			e2 := p2.Sub(p0)
			du1 := u1.Sub(u0)
			du2 := u2.Sub(u0)

			det := du1.X*du2.Y - du2.X*du1.Y
			if det == 0 {
				continue
			}
			r := 1.0 / det

			sdir := math.Vec3{
				X: (du2.Y*e1.X - du1.Y*e2.X) * r,
				Y: (du2.Y*e1.Y - du1.Y*e2.Y) * r,
				Z: (du2.Y*e1.Z - du1.Y*e2.Z) * r,
			}
			tdir := math.Vec3{
				X: (du1.X*e2.X - du2.X*e1.X) * r,
				Y: (du1.X*e2.Y - du2.X*e1.Y) * r,
				Z: (du1.X*e2.Z - du2.X*e1.Z) * r,
			}

			for _, vi := range []int32{i0, i1, i2} {
				tan1[vi] = tan1[vi].Add(sdir)
				tan2[vi] = tan2[vi].Add(tdir)
			}
		}
		off += n
	}

	tangents := make([]math.Vec4, len(w.points))
	for i := range tangents {
		nrm := w.normals[i]
		t := tan1[i]

		// Gram-Schmidt against the normal.
		ortho := t.Sub(nrm.Scale(nrm.Dot(t))).Normalize()

		handedness := float32(1)
		if nrm.Cross(t).Dot(tan2[i]) < 0 {
			handedness = -1
		}
		tangents[i] = math.Vec4{X: ortho.X, Y: ortho.Y, Z: ortho.Z, W: handedness}
	}
	w.tangents = tangents
}
