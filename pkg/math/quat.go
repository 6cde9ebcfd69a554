package math

import "github.com/chewxy/math32"

// Quat represents a rotation quaternion.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	half := angle / 2
	s := math32.Sin(half)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math32.Cos(half),
	}
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if length < 0.0001 {
		return QuatIdentity()
	}
	inv := 1.0 / length
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Mul multiplies two quaternions (combines rotations: q applied after other).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

const deg2rad = math32.Pi / 180
const rad2deg = 180 / math32.Pi

// QuatFromEulerZXY builds a rotation from ZXY-order Euler angles in degrees:
// Z is applied first, then X, then Y.
func QuatFromEulerZXY(e Vec3) Quat {
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, e.Z*deg2rad)
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, e.X*deg2rad)
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, e.Y*deg2rad)
	return qy.Mul(qx).Mul(qz)
}

// ToEulerZXY extracts ZXY-order Euler angles in degrees.
// The X angle is clamped to [-90, 90]; at the gimbal poles the Z angle
// collapses to zero.
func (q Quat) ToEulerZXY() Vec3 {
	m := q.ToMat4()

	// Column-major: m[col*4+row]. For R = Ry*Rx*Rz the (row 1, col 2)
	// entry is -sin(x).
	sx := -m[2*4+1]
	if sx > 1 {
		sx = 1
	} else if sx < -1 {
		sx = -1
	}
	x := math32.Asin(sx)

	var y, z float32
	if math32.Abs(sx) < 0.9999 {
		y = math32.Atan2(m[2*4+0], m[2*4+2])
		z = math32.Atan2(m[0*4+1], m[1*4+1])
	} else {
		// Gimbal lock: X at +-90 degrees, fold everything into Y.
		y = math32.Atan2(-m[0*4+2], m[0*4+0])
		z = 0
	}

	return Vec3{x * rad2deg, y * rad2deg, z * rad2deg}
}
