// Package protocol defines the four sync message kinds and the wire envelope
// that frames them.
//
// Messages are not self-describing: the envelope carries the kind tag and
// payload size, the payload itself is the bare encoding.
package protocol

import (
	"fmt"
	"io"

	"github.com/Faultbox/meshlink/pkg/scene"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// Kind tags a message on the wire.
type Kind uint32

// Message kinds. Set is tagged "Post" on the wire for historical reasons.
const (
	KindUnknown Kind = iota
	KindGet
	KindSet
	KindDelete
	KindScreenshot
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindGet:
		return "Get"
	case KindSet:
		return "Post"
	case KindDelete:
		return "Delete"
	case KindScreenshot:
		return "Screenshot"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(k))
	}
}

// Message is the codec contract plus a kind tag for the envelope.
type Message interface {
	wire.Value
	Kind() Kind
}

// GetFlags filter which attribute categories a Get response carries.
type GetFlags struct {
	Transform    bool
	Points       bool
	Normals      bool
	Tangents     bool
	UV           bool
	Indices      bool
	MaterialIDs  bool
	Bones        bool
	ApplyCulling bool // restrict to visible-frustum entities
}

const (
	getTransform = 1 << iota
	getPoints
	getNormals
	getTangents
	getUV
	getIndices
	getMaterialIDs
	getBones
	getApplyCulling
)

func (f GetFlags) pack() uint32 {
	var bits uint32
	set := func(on bool, bit uint32) {
		if on {
			bits |= bit
		}
	}
	set(f.Transform, getTransform)
	set(f.Points, getPoints)
	set(f.Normals, getNormals)
	set(f.Tangents, getTangents)
	set(f.UV, getUV)
	set(f.Indices, getIndices)
	set(f.MaterialIDs, getMaterialIDs)
	set(f.Bones, getBones)
	set(f.ApplyCulling, getApplyCulling)
	return bits
}

func unpackGetFlags(bits uint32) GetFlags {
	return GetFlags{
		Transform:    bits&getTransform != 0,
		Points:       bits&getPoints != 0,
		Normals:      bits&getNormals != 0,
		Tangents:     bits&getTangents != 0,
		UV:           bits&getUV != 0,
		Indices:      bits&getIndices != 0,
		MaterialIDs:  bits&getMaterialIDs != 0,
		Bones:        bits&getBones != 0,
		ApplyCulling: bits&getApplyCulling != 0,
	}
}

// GetMessage asks the producer side to capture and return a Scene. The
// response is populated out-of-band by the thread owning the live scene;
// Wait is signaled once it is ready. Wait is never serialized.
type GetMessage struct {
	Flags  GetFlags
	Refine scene.MeshRefineSettings

	Wait *Latch
}

// NewGetMessage returns a GetMessage with a pending completion latch and the
// identity refine policy.
func NewGetMessage() *GetMessage {
	return &GetMessage{
		Refine: scene.DefaultRefineSettings(),
		Wait:   NewLatch(),
	}
}

// Kind returns KindGet.
func (m *GetMessage) Kind() Kind { return KindGet }

// Size returns the encoded size in bytes.
func (m *GetMessage) Size() int {
	return 4 + m.Refine.Size()
}

// Encode writes the message to w.
func (m *GetMessage) Encode(w io.Writer) error {
	if err := wire.WriteUint32(w, m.Flags.pack()); err != nil {
		return err
	}
	return m.Refine.Encode(w)
}

// Decode reads the message from r. A fresh latch is attached so the receiver
// can await out-of-band completion.
func (m *GetMessage) Decode(r io.Reader) error {
	bits, err := wire.ReadUint32(r)
	if err != nil {
		return err
	}
	m.Flags = unpackGetFlags(bits)
	if err := m.Refine.Decode(r); err != nil {
		return err
	}
	m.Wait = NewLatch()
	return nil
}

// SetMessage carries a full Scene payload. Delivering it triggers mesh
// refinement on the receiving side before renderer handoff.
type SetMessage struct {
	Scene scene.Scene
}

// NewSetMessage returns an empty SetMessage.
func NewSetMessage() *SetMessage { return &SetMessage{} }

// Kind returns KindSet.
func (m *SetMessage) Kind() Kind { return KindSet }

// Size returns the encoded size in bytes.
func (m *SetMessage) Size() int { return m.Scene.Size() }

// Encode writes the message to w.
func (m *SetMessage) Encode(w io.Writer) error { return m.Scene.Encode(w) }

// Decode reads the message from r.
func (m *SetMessage) Decode(r io.Reader) error { return m.Scene.Decode(r) }

// Identifier names one entity to delete. Receivers match by Path; ID is an
// advisory disambiguator only, since ids are process-local.
type Identifier struct {
	Path string
	ID   int32
}

// DeleteMessage names entities to remove from the receiving scene.
type DeleteMessage struct {
	Targets []Identifier
}

// maxTargets bounds the decoded target count so a corrupt or hostile frame
// cannot trigger a huge allocation.
const maxTargets = 1 << 20

// NewDeleteMessage returns an empty DeleteMessage.
func NewDeleteMessage() *DeleteMessage { return &DeleteMessage{} }

// Kind returns KindDelete.
func (m *DeleteMessage) Kind() Kind { return KindDelete }

// Size returns the encoded size in bytes.
func (m *DeleteMessage) Size() int {
	n := 4
	for _, t := range m.Targets {
		n += wire.StringSize(t.Path) + 4
	}
	return n
}

// Encode writes the message to w.
func (m *DeleteMessage) Encode(w io.Writer) error {
	if err := wire.WriteUint32(w, uint32(len(m.Targets))); err != nil {
		return err
	}
	for _, t := range m.Targets {
		if err := wire.WriteString(w, t.Path); err != nil {
			return err
		}
		if err := wire.WriteInt32(w, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the message from r.
func (m *DeleteMessage) Decode(r io.Reader) error {
	n, err := wire.ReadUint32(r)
	if err != nil {
		return err
	}
	if n > maxTargets {
		return fmt.Errorf("%w: %d delete targets", wire.ErrCountTooLarge, n)
	}
	m.Targets = make([]Identifier, n)
	for i := range m.Targets {
		if m.Targets[i].Path, err = wire.ReadString(r); err != nil {
			return err
		}
		if m.Targets[i].ID, err = wire.ReadInt32(r); err != nil {
			return err
		}
	}
	return nil
}

// ScreenshotMessage asks the receiving side to capture its current render
// output. It has no payload; completion semantics are identical to Get.
type ScreenshotMessage struct {
	Wait *Latch
}

// NewScreenshotMessage returns a ScreenshotMessage with a pending latch.
func NewScreenshotMessage() *ScreenshotMessage {
	return &ScreenshotMessage{Wait: NewLatch()}
}

// Kind returns KindScreenshot.
func (m *ScreenshotMessage) Kind() Kind { return KindScreenshot }

// Size returns the encoded size in bytes.
func (m *ScreenshotMessage) Size() int { return 0 }

// Encode writes nothing; the message has no payload.
func (m *ScreenshotMessage) Encode(w io.Writer) error { return nil }

// Decode reads nothing and attaches a fresh latch.
func (m *ScreenshotMessage) Decode(r io.Reader) error {
	m.Wait = NewLatch()
	return nil
}
