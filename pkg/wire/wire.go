// Package wire implements the size-prefixed binary codec shared by every
// scene entity and protocol message.
//
// All values are little-endian. Variable-length sequences are written as a
// 4-byte element count followed by the packed elements; strings as a 4-byte
// byte length followed by raw bytes. Every encodable value implements Value:
// Size reports the exact number of bytes Encode writes, and Decode reads
// exactly those bytes back.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/meshlink/pkg/math"
)

// Codec errors.
var (
	ErrTruncated     = errors.New("truncated data")
	ErrCountTooLarge = errors.New("element count exceeds sanity bound")
)

// maxCount bounds decoded element counts so a corrupt or hostile stream
// cannot trigger a huge allocation.
const maxCount = 64 << 20

// Value is the codec contract. Size must be byte-for-byte consistent with
// Encode; Decode is the exact inverse of Encode.
type Value interface {
	Size() int
	Encode(w io.Writer) error
	Decode(r io.Reader) error
}

// mapErr converts reader exhaustion into ErrTruncated.
func mapErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// WriteUint32 writes a little-endian uint32.
func WriteUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, mapErr(err)
	}
	return v, nil
}

// WriteInt32 writes a little-endian int32.
func WriteInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadInt32 reads a little-endian int32.
func ReadInt32(r io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, mapErr(err)
	}
	return v, nil
}

// WriteFloat32 writes a little-endian float32.
func WriteFloat32(w io.Writer, v float32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadFloat32 reads a little-endian float32.
func ReadFloat32(r io.Reader) (float32, error) {
	var v float32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, mapErr(err)
	}
	return v, nil
}

// WriteValue writes any fixed-size binary value (Vec3, Quat, Mat4, structs
// of float32 fields).
func WriteValue(w io.Writer, v any) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadValue reads into any fixed-size binary value.
func ReadValue(r io.Reader, v any) error {
	return mapErr(binary.Read(r, binary.LittleEndian, v))
}

// StringSize returns the encoded size of s.
func StringSize(s string) int {
	return 4 + len(s)
}

// WriteString writes a length-prefixed string.
func WriteString(w io.Writer, s string) error {
	if err := WriteUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a length-prefixed string.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return "", err
	}
	if n > maxCount {
		return "", fmt.Errorf("%w: string length %d", ErrCountTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", mapErr(err)
	}
	return string(buf), nil
}

// readCount reads and bound-checks a sequence length prefix.
func readCount(r io.Reader) (int, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	if n > maxCount {
		return 0, fmt.Errorf("%w: %d elements", ErrCountTooLarge, n)
	}
	return int(n), nil
}

// writeSlice writes a count prefix followed by the packed elements.
func writeSlice(w io.Writer, n int, data any) error {
	if err := WriteUint32(w, uint32(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, data)
}

// Vec2SliceSize returns the encoded size of a Vec2 buffer.
func Vec2SliceSize(v []math.Vec2) int { return 4 + 8*len(v) }

// Vec3SliceSize returns the encoded size of a Vec3 buffer.
func Vec3SliceSize(v []math.Vec3) int { return 4 + 12*len(v) }

// Vec4SliceSize returns the encoded size of a Vec4 buffer.
func Vec4SliceSize(v []math.Vec4) int { return 4 + 16*len(v) }

// Int32SliceSize returns the encoded size of an int32 buffer.
func Int32SliceSize(v []int32) int { return 4 + 4*len(v) }

// Float32SliceSize returns the encoded size of a float32 buffer.
func Float32SliceSize(v []float32) int { return 4 + 4*len(v) }

// Mat4SliceSize returns the encoded size of a matrix buffer.
func Mat4SliceSize(v []math.Mat4) int { return 4 + 64*len(v) }

// StringSliceSize returns the encoded size of a string sequence.
func StringSliceSize(v []string) int {
	n := 4
	for _, s := range v {
		n += StringSize(s)
	}
	return n
}

// WriteVec2Slice writes a count-prefixed Vec2 buffer.
func WriteVec2Slice(w io.Writer, v []math.Vec2) error { return writeSlice(w, len(v), v) }

// WriteVec3Slice writes a count-prefixed Vec3 buffer.
func WriteVec3Slice(w io.Writer, v []math.Vec3) error { return writeSlice(w, len(v), v) }

// WriteVec4Slice writes a count-prefixed Vec4 buffer.
func WriteVec4Slice(w io.Writer, v []math.Vec4) error { return writeSlice(w, len(v), v) }

// WriteInt32Slice writes a count-prefixed int32 buffer.
func WriteInt32Slice(w io.Writer, v []int32) error { return writeSlice(w, len(v), v) }

// WriteFloat32Slice writes a count-prefixed float32 buffer.
func WriteFloat32Slice(w io.Writer, v []float32) error { return writeSlice(w, len(v), v) }

// WriteMat4Slice writes a count-prefixed matrix buffer.
func WriteMat4Slice(w io.Writer, v []math.Mat4) error { return writeSlice(w, len(v), v) }

// WriteStringSlice writes a count-prefixed string sequence.
func WriteStringSlice(w io.Writer, v []string) error {
	if err := WriteUint32(w, uint32(len(v))); err != nil {
		return err
	}
	for _, s := range v {
		if err := WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// ReadVec2Slice reads a count-prefixed Vec2 buffer.
func ReadVec2Slice(r io.Reader) ([]math.Vec2, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]math.Vec2, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadVec3Slice reads a count-prefixed Vec3 buffer.
func ReadVec3Slice(r io.Reader) ([]math.Vec3, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]math.Vec3, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadVec4Slice reads a count-prefixed Vec4 buffer.
func ReadVec4Slice(r io.Reader) ([]math.Vec4, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]math.Vec4, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadInt32Slice reads a count-prefixed int32 buffer.
func ReadInt32Slice(r io.Reader) ([]int32, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]int32, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadFloat32Slice reads a count-prefixed float32 buffer.
func ReadFloat32Slice(r io.Reader) ([]float32, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadMat4Slice reads a count-prefixed matrix buffer.
func ReadMat4Slice(r io.Reader) ([]math.Mat4, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]math.Mat4, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

// ReadStringSlice reads a count-prefixed string sequence.
func ReadStringSlice(r io.Reader) ([]string, error) {
	n, err := readCount(r)
	if err != nil || n == 0 {
		return nil, err
	}
	v := make([]string, n)
	for i := range v {
		if v[i], err = ReadString(r); err != nil {
			return nil, err
		}
	}
	return v, nil
}
