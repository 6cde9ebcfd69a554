package math

import (
	"math"
	"testing"
)

const eps = 0.001

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < eps
}

func vecNear(a, b Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestVec3Ops(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); !vecNear(got, Vec3{5, 7, 9}) {
		t.Errorf("Add: got %v", got)
	}
	if got := b.Sub(a); !vecNear(got, Vec3{3, 3, 3}) {
		t.Errorf("Sub: got %v", got)
	}
	if got := a.Dot(b); !near(got, 32) {
		t.Errorf("Dot: expected 32, got %v", got)
	}
	if got := a.Cross(b); !vecNear(got, Vec3{-3, 6, -3}) {
		t.Errorf("Cross: got %v", got)
	}

	n := Vec3{3, 0, 4}.Normalize()
	if !near(n.Length(), 1) {
		t.Errorf("Normalize: length should be 1, got %v", n.Length())
	}
}

func TestAngleBetween(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 1, 0}
	if got := Angle(a, b); !near(got, math.Pi/2) {
		t.Errorf("expected pi/2, got %v", got)
	}
	// Parallel vectors must not NaN from acos rounding
	if got := Angle(a, a); !near(got, 0) {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatEulerZXYRoundtrip(t *testing.T) {
	cases := []Vec3{
		{0, 0, 0},
		{30, 0, 0},
		{0, 45, 0},
		{0, 0, 60},
		{10, 20, 30},
		{-15, 100, -40},
		{45, -170, 120},
	}
	for _, e := range cases {
		got := QuatFromEulerZXY(e).ToEulerZXY()
		if !vecNear(got, e) {
			t.Errorf("euler roundtrip %v: got %v", e, got)
		}
	}
}

func TestQuatEulerGimbalPole(t *testing.T) {
	// At X=90 the Y and Z axes align; the extraction folds the rotation
	// into Y. The rotation itself must survive even if the angles differ.
	e := Vec3{90, 25, 10}
	q1 := QuatFromEulerZXY(e)
	q2 := QuatFromEulerZXY(q1.ToEulerZXY())

	p := Vec3{0.3, -0.7, 0.5}
	r1 := q1.ToMat4().TransformDirection(p)
	r2 := q2.ToMat4().TransformDirection(p)
	if !vecNear(r1, r2) {
		t.Errorf("gimbal pole rotation mismatch: %v vs %v", r1, r2)
	}
}

func TestQuatToMat4RotatesVector(t *testing.T) {
	// 90 degrees around Y maps +X to -Z
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, float32(math.Pi/2))
	got := q.ToMat4().TransformDirection(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{0, 0, -1}) {
		t.Errorf("expected (0,0,-1), got %v", got)
	}
}

func TestMat4TRS(t *testing.T) {
	m := TRS(Vec3{1, 2, 3}, QuatIdentity(), Vec3{2, 2, 2})
	got := m.TransformPoint(Vec3{1, 1, 1})
	if !vecNear(got, Vec3{3, 4, 5}) {
		t.Errorf("expected (3,4,5), got %v", got)
	}
}

func TestMat4Inverse(t *testing.T) {
	m := TRS(Vec3{5, -2, 1}, QuatFromEulerZXY(Vec3{10, 20, 30}), Vec3{2, 3, 4})
	inv := m.Inverse()

	p := Vec3{0.5, -1.5, 2}
	got := inv.TransformPoint(m.TransformPoint(p))
	if !vecNear(got, p) {
		t.Errorf("inverse roundtrip: expected %v, got %v", p, got)
	}

	id := m.Mul(inv)
	want := Identity()
	for i := 0; i < 16; i++ {
		if !near(id[i], want[i]) {
			t.Errorf("M*M^-1 element %d: got %v, want %v", i, id[i], want[i])
			break
		}
	}
}

func TestMat4Determinant3(t *testing.T) {
	if d := Scale(2, 3, 4).Determinant3(); !near(d, 24) {
		t.Errorf("expected 24, got %v", d)
	}
	// A mirror flips the sign
	if d := Scale(-1, 1, 1).Determinant3(); !near(d, -1) {
		t.Errorf("expected -1, got %v", d)
	}
}

func TestMat4NormalMatrix(t *testing.T) {
	// Non-uniform scale: normals must be transformed by the inverse
	// transpose to stay perpendicular.
	m := Scale(2, 1, 1)
	n := m.NormalMatrix().TransformDirection(Vec3{1, 1, 0}.Normalize()).Normalize()

	// Surface direction under m
	s := m.TransformDirection(Vec3{-1, 1, 0}.Normalize())
	if !near(n.Dot(s), 0) {
		t.Errorf("normal not perpendicular after transform: dot=%v", n.Dot(s))
	}
}

func TestLookAtPlacesEyeAtOrigin(t *testing.T) {
	eye := Vec3{3, 4, 5}
	view := LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	got := view.TransformPoint(eye)
	if !vecNear(got, Vec3{}) {
		t.Errorf("eye should map to origin, got %v", got)
	}
}
