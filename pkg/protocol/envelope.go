package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/meshlink/pkg/wire"
)

// Envelope errors.
var (
	ErrUnknownKind     = errors.New("unknown message kind")
	ErrPayloadTooLarge = errors.New("payload size exceeds sanity bound")
)

// maxPayload bounds a single message frame. Large scenes stay well under
// this; anything above it means a desynchronized or hostile stream.
const maxPayload = 1 << 30

// WriteMessage frames and writes one message: kind tag, payload size,
// payload. The size prefix lets a transport skip or buffer frames without
// parsing payloads.
func WriteMessage(w io.Writer, m Message) error {
	if err := wire.WriteUint32(w, uint32(m.Kind())); err != nil {
		return err
	}
	size := m.Size()
	if err := wire.WriteUint32(w, uint32(size)); err != nil {
		return err
	}
	if err := m.Encode(w); err != nil {
		return fmt.Errorf("encoding %s message: %w", m.Kind(), err)
	}
	return nil
}

// ReadMessage reads one framed message. The payload is fully buffered before
// decoding, so a decode failure never leaves the stream mid-frame.
func ReadMessage(r io.Reader) (Message, error) {
	tag, err := wire.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	size, err := wire.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if size > maxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}

	var m Message
	switch Kind(tag) {
	case KindGet:
		m = NewGetMessage()
	case KindSet:
		m = NewSetMessage()
	case KindDelete:
		m = NewDeleteMessage()
	case KindScreenshot:
		m = NewScreenshotMessage()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, tag)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s message: %w", Kind(tag), wire.ErrTruncated)
		}
		return nil, err
	}
	if err := m.Decode(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("decoding %s message: %w", Kind(tag), err)
	}
	return m, nil
}
