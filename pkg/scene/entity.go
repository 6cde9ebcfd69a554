// Package scene defines the entity model carried by the sync protocol:
// transforms, cameras and meshes, grouped into flat Scene snapshots.
//
// Entities are wire values. Identity across processes is the slash-delimited
// Path; the numeric ID is process-local and only disambiguates.
package scene

import (
	"io"
	"strings"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// Entity is the base of every scene entity.
type Entity struct {
	ID   int32
	Path string
}

// Name returns the last segment of Path, for diagnostics.
func (e *Entity) Name() string {
	if i := strings.LastIndexByte(e.Path, '/'); i >= 0 {
		return e.Path[i+1:]
	}
	return e.Path
}

// Size returns the encoded size in bytes.
func (e *Entity) Size() int {
	return 4 + wire.StringSize(e.Path)
}

// Encode writes the entity to w.
func (e *Entity) Encode(w io.Writer) error {
	if err := wire.WriteInt32(w, e.ID); err != nil {
		return err
	}
	return wire.WriteString(w, e.Path)
}

// Decode reads the entity from r.
func (e *Entity) Decode(r io.Reader) error {
	var err error
	if e.ID, err = wire.ReadInt32(r); err != nil {
		return err
	}
	e.Path, err = wire.ReadString(r)
	return err
}

// Transform is an entity with a TRS triple. The Euler representation is an
// auxiliary ZXY-order copy of Rotation for tools without quaternion support;
// the producer keeps the two consistent.
type Transform struct {
	Entity

	Position      math.Vec3
	Rotation      math.Quat
	RotationEuler math.Vec3 // ZXY order, degrees
	Scale         math.Vec3
}

// NewTransform returns a Transform with identity rotation and unit scale.
func NewTransform() *Transform {
	return &Transform{
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3One(),
	}
}

// SetRotation sets both rotation representations from a quaternion.
func (t *Transform) SetRotation(q math.Quat) {
	t.Rotation = q
	t.RotationEuler = q.ToEulerZXY()
}

// Matrix returns the local TRS matrix.
func (t *Transform) Matrix() math.Mat4 {
	return math.TRS(t.Position, t.Rotation, t.Scale)
}

// Size returns the encoded size in bytes.
func (t *Transform) Size() int {
	// position + quaternion + euler + scale
	return t.Entity.Size() + 12 + 16 + 12 + 12
}

// Encode writes the transform to w.
func (t *Transform) Encode(w io.Writer) error {
	if err := t.Entity.Encode(w); err != nil {
		return err
	}
	if err := wire.WriteValue(w, &t.Position); err != nil {
		return err
	}
	if err := wire.WriteValue(w, &t.Rotation); err != nil {
		return err
	}
	if err := wire.WriteValue(w, &t.RotationEuler); err != nil {
		return err
	}
	return wire.WriteValue(w, &t.Scale)
}

// Decode reads the transform from r.
func (t *Transform) Decode(r io.Reader) error {
	if err := t.Entity.Decode(r); err != nil {
		return err
	}
	if err := wire.ReadValue(r, &t.Position); err != nil {
		return err
	}
	if err := wire.ReadValue(r, &t.Rotation); err != nil {
		return err
	}
	if err := wire.ReadValue(r, &t.RotationEuler); err != nil {
		return err
	}
	return wire.ReadValue(r, &t.Scale)
}

// DefaultFOV is the camera field of view when the producer does not set one.
const DefaultFOV = 30.0

// Camera is a transform with a vertical field of view in degrees.
type Camera struct {
	Transform

	FOV float32
}

// NewCamera returns a Camera with default field of view.
func NewCamera() *Camera {
	c := &Camera{FOV: DefaultFOV}
	c.Rotation = math.QuatIdentity()
	c.Scale = math.Vec3One()
	return c
}

// Size returns the encoded size in bytes.
func (c *Camera) Size() int {
	return c.Transform.Size() + 4
}

// Encode writes the camera to w.
func (c *Camera) Encode(w io.Writer) error {
	if err := c.Transform.Encode(w); err != nil {
		return err
	}
	return wire.WriteFloat32(w, c.FOV)
}

// Decode reads the camera from r.
func (c *Camera) Decode(r io.Reader) error {
	if err := c.Transform.Decode(r); err != nil {
		return err
	}
	var err error
	c.FOV, err = wire.ReadFloat32(r)
	return err
}
