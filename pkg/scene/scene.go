package scene

import (
	"fmt"
	"io"

	"github.com/Faultbox/meshlink/pkg/wire"
)

// Scene is one sync snapshot: three independent count-prefixed sequences.
// An entity appears in exactly one sequence according to its concrete kind.
type Scene struct {
	Meshes     []*Mesh
	Transforms []*Transform
	Cameras    []*Camera
}

// Size returns the encoded size in bytes.
func (s *Scene) Size() int {
	n := 12 // three count prefixes
	for _, m := range s.Meshes {
		n += m.Size()
	}
	for _, t := range s.Transforms {
		n += t.Size()
	}
	for _, c := range s.Cameras {
		n += c.Size()
	}
	return n
}

// Encode writes the scene to w.
func (s *Scene) Encode(w io.Writer) error {
	if err := wire.WriteUint32(w, uint32(len(s.Meshes))); err != nil {
		return err
	}
	for _, m := range s.Meshes {
		if err := m.Encode(w); err != nil {
			return fmt.Errorf("encoding mesh %q: %w", m.Path, err)
		}
	}
	if err := wire.WriteUint32(w, uint32(len(s.Transforms))); err != nil {
		return err
	}
	for _, t := range s.Transforms {
		if err := t.Encode(w); err != nil {
			return fmt.Errorf("encoding transform %q: %w", t.Path, err)
		}
	}
	if err := wire.WriteUint32(w, uint32(len(s.Cameras))); err != nil {
		return err
	}
	for _, c := range s.Cameras {
		if err := c.Encode(w); err != nil {
			return fmt.Errorf("encoding camera %q: %w", c.Path, err)
		}
	}
	return nil
}

// maxEntities bounds per-kind entity counts in a snapshot.
const maxEntities = 1 << 20

func readEntityCount(r io.Reader) (int, error) {
	n, err := wire.ReadUint32(r)
	if err != nil {
		return 0, err
	}
	if n > maxEntities {
		return 0, fmt.Errorf("%w: %d entities", wire.ErrCountTooLarge, n)
	}
	return int(n), nil
}

// Decode reads the scene from r.
func (s *Scene) Decode(r io.Reader) error {
	n, err := readEntityCount(r)
	if err != nil {
		return err
	}
	s.Meshes = make([]*Mesh, n)
	for i := range s.Meshes {
		s.Meshes[i] = NewMesh()
		if err := s.Meshes[i].Decode(r); err != nil {
			return fmt.Errorf("decoding mesh %d: %w", i, err)
		}
	}
	if n, err = readEntityCount(r); err != nil {
		return err
	}
	s.Transforms = make([]*Transform, n)
	for i := range s.Transforms {
		s.Transforms[i] = NewTransform()
		if err := s.Transforms[i].Decode(r); err != nil {
			return fmt.Errorf("decoding transform %d: %w", i, err)
		}
	}
	if n, err = readEntityCount(r); err != nil {
		return err
	}
	s.Cameras = make([]*Camera, n)
	for i := range s.Cameras {
		s.Cameras[i] = NewCamera()
		if err := s.Cameras[i].Decode(r); err != nil {
			return fmt.Errorf("decoding camera %d: %w", i, err)
		}
	}
	return nil
}
