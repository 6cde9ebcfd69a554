package refine

import "github.com/Faultbox/meshlink/pkg/math"

// applyScale scales points uniformly. Directions are unaffected.
func (w *workMesh) applyScale(s float32) {
	for i := range w.points {
		w.points[i] = w.points[i].Scale(s)
	}
}

// applyTransform pre-multiplies points by m. Normals and tangent directions
// use the inverse-transpose of the upper 3x3 so they survive non-uniform
// scale; tangent handedness is preserved. A basis with negative determinant
// mirrors the mesh, so winding is flipped to keep normals outward-facing.
func (w *workMesh) applyTransform(m math.Mat4) {
	for i := range w.points {
		w.points[i] = m.TransformPoint(w.points[i])
	}
	if len(w.normals) > 0 || len(w.tangents) > 0 {
		nm := m.NormalMatrix()
		for i := range w.normals {
			w.normals[i] = nm.TransformDirection(w.normals[i]).Normalize()
		}
		for i := range w.tangents {
			t := nm.TransformDirection(w.tangents[i].XYZ()).Normalize()
			w.tangents[i] = math.Vec4{X: t.X, Y: t.Y, Z: t.Z, W: w.tangents[i].W}
		}
	}
	if m.Determinant3() < 0 {
		w.reverseWinding()
	}
}

// applyMirror reflects points, normals and tangent directions across the
// plane through the origin with the given unit normal, then flips winding so
// faces keep pointing outward.
func (w *workMesh) applyMirror(planeN math.Vec3) {
	reflect := func(v math.Vec3) math.Vec3 {
		return v.Sub(planeN.Scale(2 * v.Dot(planeN)))
	}
	for i := range w.points {
		w.points[i] = reflect(w.points[i])
	}
	for i := range w.normals {
		w.normals[i] = reflect(w.normals[i])
	}
	for i := range w.tangents {
		t := reflect(w.tangents[i].XYZ())
		w.tangents[i] = math.Vec4{X: t.X, Y: t.Y, Z: t.Z, W: -w.tangents[i].W}
	}
	w.reverseWinding()
}

// swapHandedness negates the X axis on points and normals and flips tangent
// handedness, without altering winding.
func (w *workMesh) swapHandedness() {
	for i := range w.points {
		w.points[i].X = -w.points[i].X
	}
	for i := range w.normals {
		w.normals[i].X = -w.normals[i].X
	}
	for i := range w.tangents {
		w.tangents[i].X = -w.tangents[i].X
		w.tangents[i].W = -w.tangents[i].W
	}
}

// invertV flips the V texture coordinate (v -> 1-v), for producers whose UV
// origin is top-left.
func (w *workMesh) invertV() {
	for i := range w.uv {
		w.uv[i].Y = 1 - w.uv[i].Y
	}
}

// reverseWinding reverses the index order within every face.
func (w *workMesh) reverseWinding() {
	off := 0
	for _, c := range w.counts {
		n := int(c)
		for i, j := off, off+n-1; i < j; i, j = i+1, j-1 {
			w.indices[i], w.indices[j] = w.indices[j], w.indices[i]
		}
		off += n
	}
}
