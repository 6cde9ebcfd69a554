// Package client is the producer side of the sync protocol: it pushes
// scenes at a viewer and pulls scenes or screenshots back from it.
package client

import (
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlink/pkg/protocol"
	"github.com/Faultbox/meshlink/pkg/scene"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// Client holds a single connection to a sync server. Methods are not safe
// for concurrent use; the protocol interleaves request and response on one
// stream.
type Client struct {
	conn net.Conn
	log  *zap.Logger

	// Timeout bounds each blocking exchange (Get, Screenshot). Zero means
	// no deadline.
	Timeout time.Duration
}

// Connect dials a sync server.
func Connect(addr string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	log.Debug("connected", zap.String("addr", addr))
	return &Client{conn: conn, log: log, Timeout: 10 * time.Second}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendScene pushes a scene to the server. Fire-and-forget; refinement and
// any rejection happen on the server side.
func (c *Client) SendScene(s *scene.Scene) error {
	return protocol.WriteMessage(c.conn, &protocol.SetMessage{Scene: *s})
}

// SendDelete asks the server to remove the identified entities.
func (c *Client) SendDelete(targets []protocol.Identifier) error {
	return protocol.WriteMessage(c.conn, &protocol.DeleteMessage{Targets: targets})
}

// Get requests the server's live scene, filtered by flags and refined by
// settings. It blocks until the response frame arrives or the deadline
// passes.
func (c *Client) Get(flags protocol.GetFlags, settings scene.MeshRefineSettings) (*scene.Scene, error) {
	msg := protocol.NewGetMessage()
	msg.Flags = flags
	msg.Refine = settings

	if err := c.setDeadline(); err != nil {
		return nil, err
	}
	defer c.clearDeadline()

	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		return nil, fmt.Errorf("sending get: %w", err)
	}
	resp, err := protocol.ReadMessage(c.conn)
	if err != nil {
		return nil, fmt.Errorf("reading get response: %w", err)
	}
	set, ok := resp.(*protocol.SetMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected %s response to get", resp.Kind())
	}
	return &set.Scene, nil
}

// Screenshot asks the server to capture its viewport and returns the PNG
// bytes.
func (c *Client) Screenshot() ([]byte, error) {
	if err := c.setDeadline(); err != nil {
		return nil, err
	}
	defer c.clearDeadline()

	if err := protocol.WriteMessage(c.conn, protocol.NewScreenshotMessage()); err != nil {
		return nil, fmt.Errorf("sending screenshot request: %w", err)
	}
	n, err := wire.ReadUint32(c.conn)
	if err != nil {
		return nil, fmt.Errorf("reading screenshot length: %w", err)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, fmt.Errorf("reading screenshot data: %w", err)
	}
	return data, nil
}

func (c *Client) setDeadline() error {
	if c.Timeout <= 0 {
		return nil
	}
	return c.conn.SetDeadline(time.Now().Add(c.Timeout))
}

func (c *Client) clearDeadline() {
	c.conn.SetDeadline(time.Time{})
}
