package scene

import (
	"io"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// MeshRefineFlags selects the refinement steps applied to a mesh. Any subset
// may be combined; the engine runs them in its own fixed order.
type MeshRefineFlags struct {
	Split                     bool
	Triangulate               bool
	OptimizeTopology          bool
	SwapHandedness            bool
	SwapFaces                 bool
	GenNormals                bool
	GenNormalsWithSmoothAngle bool
	GenTangents               bool
	ApplyLocal2World          bool
	ApplyWorld2Local          bool
	BakeSkin                  bool
	InvertV                   bool
	MirrorX                   bool
	MirrorY                   bool
	MirrorZ                   bool
}

// Bit positions on the wire.
const (
	refineSplit = 1 << iota
	refineTriangulate
	refineOptimizeTopology
	refineSwapHandedness
	refineSwapFaces
	refineGenNormals
	refineGenNormalsSmooth
	refineGenTangents
	refineApplyLocal2World
	refineApplyWorld2Local
	refineBakeSkin
	refineInvertV
	refineMirrorX
	refineMirrorY
	refineMirrorZ
)

func (f MeshRefineFlags) pack() uint32 {
	var bits uint32
	set := func(on bool, bit uint32) {
		if on {
			bits |= bit
		}
	}
	set(f.Split, refineSplit)
	set(f.Triangulate, refineTriangulate)
	set(f.OptimizeTopology, refineOptimizeTopology)
	set(f.SwapHandedness, refineSwapHandedness)
	set(f.SwapFaces, refineSwapFaces)
	set(f.GenNormals, refineGenNormals)
	set(f.GenNormalsWithSmoothAngle, refineGenNormalsSmooth)
	set(f.GenTangents, refineGenTangents)
	set(f.ApplyLocal2World, refineApplyLocal2World)
	set(f.ApplyWorld2Local, refineApplyWorld2Local)
	set(f.BakeSkin, refineBakeSkin)
	set(f.InvertV, refineInvertV)
	set(f.MirrorX, refineMirrorX)
	set(f.MirrorY, refineMirrorY)
	set(f.MirrorZ, refineMirrorZ)
	return bits
}

func unpackRefineFlags(bits uint32) MeshRefineFlags {
	return MeshRefineFlags{
		Split:                     bits&refineSplit != 0,
		Triangulate:               bits&refineTriangulate != 0,
		OptimizeTopology:          bits&refineOptimizeTopology != 0,
		SwapHandedness:            bits&refineSwapHandedness != 0,
		SwapFaces:                 bits&refineSwapFaces != 0,
		GenNormals:                bits&refineGenNormals != 0,
		GenNormalsWithSmoothAngle: bits&refineGenNormalsSmooth != 0,
		GenTangents:               bits&refineGenTangents != 0,
		ApplyLocal2World:          bits&refineApplyLocal2World != 0,
		ApplyWorld2Local:          bits&refineApplyWorld2Local != 0,
		BakeSkin:                  bits&refineBakeSkin != 0,
		InvertV:                   bits&refineInvertV != 0,
		MirrorX:                   bits&refineMirrorX != 0,
		MirrorY:                   bits&refineMirrorY != 0,
		MirrorZ:                   bits&refineMirrorZ != 0,
	}
}

// DefaultSplitUnit is the distinct-vertex ceiling per split block, matching
// common 16-bit renderer index limits.
const DefaultSplitUnit = 65000

// MeshRefineSettings is the per-mesh refinement policy.
type MeshRefineSettings struct {
	Flags       MeshRefineFlags
	ScaleFactor float32
	SmoothAngle float32 // degrees, for GenNormalsWithSmoothAngle
	SplitUnit   int32
	Local2World math.Mat4
	World2Local math.Mat4
}

// DefaultRefineSettings returns the identity policy: no steps enabled, unit
// scale, default split ceiling.
func DefaultRefineSettings() MeshRefineSettings {
	return MeshRefineSettings{
		ScaleFactor: 1.0,
		SplitUnit:   DefaultSplitUnit,
		Local2World: math.Identity(),
		World2Local: math.Identity(),
	}
}

// Size returns the encoded size in bytes.
func (s *MeshRefineSettings) Size() int {
	// flags + scale + smooth angle + split unit + two matrices
	return 4 + 4 + 4 + 4 + 64 + 64
}

// Encode writes the settings to w.
func (s *MeshRefineSettings) Encode(w io.Writer) error {
	if err := wire.WriteUint32(w, s.Flags.pack()); err != nil {
		return err
	}
	if err := wire.WriteFloat32(w, s.ScaleFactor); err != nil {
		return err
	}
	if err := wire.WriteFloat32(w, s.SmoothAngle); err != nil {
		return err
	}
	if err := wire.WriteInt32(w, s.SplitUnit); err != nil {
		return err
	}
	if err := wire.WriteValue(w, &s.Local2World); err != nil {
		return err
	}
	return wire.WriteValue(w, &s.World2Local)
}

// Decode reads the settings from r.
func (s *MeshRefineSettings) Decode(r io.Reader) error {
	bits, err := wire.ReadUint32(r)
	if err != nil {
		return err
	}
	s.Flags = unpackRefineFlags(bits)
	if s.ScaleFactor, err = wire.ReadFloat32(r); err != nil {
		return err
	}
	if s.SmoothAngle, err = wire.ReadFloat32(r); err != nil {
		return err
	}
	if s.SplitUnit, err = wire.ReadInt32(r); err != nil {
		return err
	}
	if err = wire.ReadValue(r, &s.Local2World); err != nil {
		return err
	}
	return wire.ReadValue(r, &s.World2Local)
}
