package scene

import (
	"io"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// MeshDataFlags gate which buffers a mesh carries on the wire. A presence
// flag is set iff the corresponding buffer is non-empty; a cleared flag means
// the buffer contributes zero bytes to the encoding.
type MeshDataFlags struct {
	Visible           bool
	HasRefineSettings bool
	HasIndices        bool
	HasCounts         bool
	HasPoints         bool
	HasNormals        bool
	HasTangents       bool
	HasUV             bool
	HasMaterialIDs    bool
	HasBones          bool
}

// Bit positions on the wire.
const (
	meshVisible = 1 << iota
	meshHasRefineSettings
	meshHasIndices
	meshHasCounts
	meshHasPoints
	meshHasNormals
	meshHasTangents
	meshHasUV
	meshHasMaterialIDs
	meshHasBones
)

func (f MeshDataFlags) pack() uint32 {
	var bits uint32
	set := func(on bool, bit uint32) {
		if on {
			bits |= bit
		}
	}
	set(f.Visible, meshVisible)
	set(f.HasRefineSettings, meshHasRefineSettings)
	set(f.HasIndices, meshHasIndices)
	set(f.HasCounts, meshHasCounts)
	set(f.HasPoints, meshHasPoints)
	set(f.HasNormals, meshHasNormals)
	set(f.HasTangents, meshHasTangents)
	set(f.HasUV, meshHasUV)
	set(f.HasMaterialIDs, meshHasMaterialIDs)
	set(f.HasBones, meshHasBones)
	return bits
}

func unpackMeshFlags(bits uint32) MeshDataFlags {
	return MeshDataFlags{
		Visible:           bits&meshVisible != 0,
		HasRefineSettings: bits&meshHasRefineSettings != 0,
		HasIndices:        bits&meshHasIndices != 0,
		HasCounts:         bits&meshHasCounts != 0,
		HasPoints:         bits&meshHasPoints != 0,
		HasNormals:        bits&meshHasNormals != 0,
		HasTangents:       bits&meshHasTangents != 0,
		HasUV:             bits&meshHasUV != 0,
		HasMaterialIDs:    bits&meshHasMaterialIDs != 0,
		HasBones:          bits&meshHasBones != 0,
	}
}

// Mesh is the richest entity: raw per-vertex buffers, polygon topology and
// optional skinning data. It is the wire value only; refined, renderer-ready
// form is produced separately by the refine package.
type Mesh struct {
	Transform

	Flags          MeshDataFlags
	RefineSettings MeshRefineSettings // carried iff Flags.HasRefineSettings

	Points      []math.Vec3
	Normals     []math.Vec3
	Tangents    []math.Vec4 // W is handedness
	UV          []math.Vec2
	Counts      []int32 // polygon vertex count per face
	Indices     []int32 // flattened, total length = sum of Counts
	MaterialIDs []int32 // one per face

	// Skinning. Bone order defines the index space of BoneIndices.
	BonesPerVertex int32
	BoneWeights    []float32 // length = len(Points) * BonesPerVertex
	BoneIndices    []int32
	Bones          []string
	Bindposes      []math.Mat4 // one per bone
}

// NewMesh returns a visible, empty mesh with the identity refine policy.
func NewMesh() *Mesh {
	m := &Mesh{
		Flags:          MeshDataFlags{Visible: true},
		RefineSettings: DefaultRefineSettings(),
	}
	m.Rotation = math.QuatIdentity()
	m.Scale = math.Vec3One()
	return m
}

// Clear resets every buffer and flag to the empty default, keeping backing
// storage so the value can be recycled across Get cycles.
func (m *Mesh) Clear() {
	m.Flags = MeshDataFlags{Visible: true}
	m.RefineSettings = DefaultRefineSettings()
	m.Points = m.Points[:0]
	m.Normals = m.Normals[:0]
	m.Tangents = m.Tangents[:0]
	m.UV = m.UV[:0]
	m.Counts = m.Counts[:0]
	m.Indices = m.Indices[:0]
	m.MaterialIDs = m.MaterialIDs[:0]
	m.BonesPerVertex = 0
	m.BoneWeights = m.BoneWeights[:0]
	m.BoneIndices = m.BoneIndices[:0]
	m.Bones = m.Bones[:0]
	m.Bindposes = m.Bindposes[:0]
}

// SyncFlags derives the presence bits from the current buffer contents.
// Producers call it before encoding; Encode itself trusts the flags as set.
func (m *Mesh) SyncFlags() {
	m.Flags.HasPoints = len(m.Points) > 0
	m.Flags.HasNormals = len(m.Normals) > 0
	m.Flags.HasTangents = len(m.Tangents) > 0
	m.Flags.HasUV = len(m.UV) > 0
	m.Flags.HasCounts = len(m.Counts) > 0
	m.Flags.HasIndices = len(m.Indices) > 0
	m.Flags.HasMaterialIDs = len(m.MaterialIDs) > 0
	m.Flags.HasBones = len(m.Bones) > 0
}

// Size returns the encoded size in bytes.
func (m *Mesh) Size() int {
	n := m.Transform.Size() + 4 // flags word
	if m.Flags.HasRefineSettings {
		n += m.RefineSettings.Size()
	}
	if m.Flags.HasPoints {
		n += wire.Vec3SliceSize(m.Points)
	}
	if m.Flags.HasNormals {
		n += wire.Vec3SliceSize(m.Normals)
	}
	if m.Flags.HasTangents {
		n += wire.Vec4SliceSize(m.Tangents)
	}
	if m.Flags.HasUV {
		n += wire.Vec2SliceSize(m.UV)
	}
	if m.Flags.HasCounts {
		n += wire.Int32SliceSize(m.Counts)
	}
	if m.Flags.HasIndices {
		n += wire.Int32SliceSize(m.Indices)
	}
	if m.Flags.HasMaterialIDs {
		n += wire.Int32SliceSize(m.MaterialIDs)
	}
	if m.Flags.HasBones {
		n += 4 // BonesPerVertex
		n += wire.Float32SliceSize(m.BoneWeights)
		n += wire.Int32SliceSize(m.BoneIndices)
		n += wire.StringSliceSize(m.Bones)
		n += wire.Mat4SliceSize(m.Bindposes)
	}
	return n
}

// Encode writes the mesh to w, omitting every buffer whose presence flag is
// cleared.
func (m *Mesh) Encode(w io.Writer) error {
	if err := m.Transform.Encode(w); err != nil {
		return err
	}
	if err := wire.WriteUint32(w, m.Flags.pack()); err != nil {
		return err
	}
	if m.Flags.HasRefineSettings {
		if err := m.RefineSettings.Encode(w); err != nil {
			return err
		}
	}
	if m.Flags.HasPoints {
		if err := wire.WriteVec3Slice(w, m.Points); err != nil {
			return err
		}
	}
	if m.Flags.HasNormals {
		if err := wire.WriteVec3Slice(w, m.Normals); err != nil {
			return err
		}
	}
	if m.Flags.HasTangents {
		if err := wire.WriteVec4Slice(w, m.Tangents); err != nil {
			return err
		}
	}
	if m.Flags.HasUV {
		if err := wire.WriteVec2Slice(w, m.UV); err != nil {
			return err
		}
	}
	if m.Flags.HasCounts {
		if err := wire.WriteInt32Slice(w, m.Counts); err != nil {
			return err
		}
	}
	if m.Flags.HasIndices {
		if err := wire.WriteInt32Slice(w, m.Indices); err != nil {
			return err
		}
	}
	if m.Flags.HasMaterialIDs {
		if err := wire.WriteInt32Slice(w, m.MaterialIDs); err != nil {
			return err
		}
	}
	if m.Flags.HasBones {
		if err := wire.WriteInt32(w, m.BonesPerVertex); err != nil {
			return err
		}
		if err := wire.WriteFloat32Slice(w, m.BoneWeights); err != nil {
			return err
		}
		if err := wire.WriteInt32Slice(w, m.BoneIndices); err != nil {
			return err
		}
		if err := wire.WriteStringSlice(w, m.Bones); err != nil {
			return err
		}
		if err := wire.WriteMat4Slice(w, m.Bindposes); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the mesh from r.
func (m *Mesh) Decode(r io.Reader) error {
	if err := m.Transform.Decode(r); err != nil {
		return err
	}
	bits, err := wire.ReadUint32(r)
	if err != nil {
		return err
	}
	m.Flags = unpackMeshFlags(bits)
	m.RefineSettings = DefaultRefineSettings()
	if m.Flags.HasRefineSettings {
		if err := m.RefineSettings.Decode(r); err != nil {
			return err
		}
	}
	m.Points, m.Normals, m.Tangents, m.UV = nil, nil, nil, nil
	m.Counts, m.Indices, m.MaterialIDs = nil, nil, nil
	m.BonesPerVertex = 0
	m.BoneWeights, m.BoneIndices, m.Bones, m.Bindposes = nil, nil, nil, nil

	if m.Flags.HasPoints {
		if m.Points, err = wire.ReadVec3Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasNormals {
		if m.Normals, err = wire.ReadVec3Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasTangents {
		if m.Tangents, err = wire.ReadVec4Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasUV {
		if m.UV, err = wire.ReadVec2Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasCounts {
		if m.Counts, err = wire.ReadInt32Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasIndices {
		if m.Indices, err = wire.ReadInt32Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasMaterialIDs {
		if m.MaterialIDs, err = wire.ReadInt32Slice(r); err != nil {
			return err
		}
	}
	if m.Flags.HasBones {
		if m.BonesPerVertex, err = wire.ReadInt32(r); err != nil {
			return err
		}
		if m.BoneWeights, err = wire.ReadFloat32Slice(r); err != nil {
			return err
		}
		if m.BoneIndices, err = wire.ReadInt32Slice(r); err != nil {
			return err
		}
		if m.Bones, err = wire.ReadStringSlice(r); err != nil {
			return err
		}
		if m.Bindposes, err = wire.ReadMat4Slice(r); err != nil {
			return err
		}
	}
	return nil
}
