// Package server implements the host side of the sync protocol: a TCP
// session layer that frames and decodes messages, queues them for the
// thread that owns the live scene, and writes responses produced
// out-of-band.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/protocol"
	"github.com/Faultbox/meshlink/pkg/refine"
	"github.com/Faultbox/meshlink/pkg/scene"
	"github.com/Faultbox/meshlink/pkg/wire"
)

// SyncedScene is a Set payload after refinement, ready for renderer handoff.
// Meshes rejected for malformed topology are absent from Meshes but still
// present in Scene.
type SyncedScene struct {
	Scene  *scene.Scene
	Meshes []*refine.RefinedMesh
}

// GetRequest is a pending Get awaiting a response scene from the scene
// owner. Complete may be called at most once; calling it after the
// requester timed out is safe.
type GetRequest struct {
	Msg *protocol.GetMessage

	response *scene.Scene
}

// Complete attaches the response scene and releases the waiting requester.
func (g *GetRequest) Complete(s *scene.Scene) {
	g.response = s
	g.Msg.Wait.Signal()
}

// ScreenshotRequest is a pending Screenshot awaiting captured image bytes.
type ScreenshotRequest struct {
	Msg *protocol.ScreenshotMessage

	data []byte
}

// Complete attaches the captured PNG bytes and releases the requester.
func (s *ScreenshotRequest) Complete(data []byte) {
	s.data = data
	s.Msg.Wait.Signal()
}

// Handlers are invoked from Process, on whichever thread pumps it. Nil
// handlers drop their messages (Get/Screenshot requesters then time out).
type Handlers struct {
	OnScene      func(*SyncedScene)
	OnDelete     func([]protocol.Identifier)
	OnGet        func(*GetRequest)
	OnScreenshot func(*ScreenshotRequest)
}

// Config holds server settings.
type Config struct {
	Listen      string
	WaitTimeout time.Duration // Get/Screenshot completion bound

	// DefaultRefine applies to incoming meshes that carry no policy of
	// their own.
	DefaultRefine scene.MeshRefineSettings
}

// Server accepts producer connections and shuttles messages between the
// network goroutines and the scene-owning thread.
type Server struct {
	cfg      Config
	log      *zap.Logger
	refiner  *refine.Refiner
	handlers Handlers

	listener net.Listener
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// Pending request-response exchanges, keyed by their message so the
	// dispatch on the scene-owning thread can find the connection-side
	// state.
	pendingGets  sync.Map
	pendingShots sync.Map

	conns sync.Map // active sessions, for shutdown

	queue chan protocol.Message
}

// New creates a server. Call Start to begin accepting.
func New(cfg Config, handlers Handlers, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		refiner:  refine.New(log),
		handlers: handlers,
		queue:    make(chan protocol.Message, 64),
	}
}

// SetBonePose installs the resolver skin baking uses to look up current
// bone poses. Call before Start.
func (s *Server) SetBonePose(fn func(path string) (math.Mat4, bool)) {
	s.refiner.BonePose = fn
}

// Start begins listening and accepting connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.log.Info("sync server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes the listener and waits for connection
// goroutines to drain.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Range(func(key, _ any) bool {
		key.(net.Conn).Close()
		return true
	})
	s.wg.Wait()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isClosed() {
				s.log.Error("accept failed", zap.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn reads frames until the peer disconnects. A decode error
// desynchronizes the stream, so the session ends with it.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	peer := conn.RemoteAddr().String()
	s.log.Debug("producer connected", zap.String("peer", peer))

	for {
		msg, err := protocol.ReadMessage(conn)
		if err != nil {
			// Peer disconnects surface as truncated reads.
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug("session ended", zap.String("peer", peer), zap.Error(err))
			}
			if errors.Is(err, protocol.ErrUnknownKind) || errors.Is(err, wire.ErrCountTooLarge) ||
				errors.Is(err, protocol.ErrPayloadTooLarge) {
				metricDecodeErrors.Inc()
			}
			return
		}
		metricMessages.WithLabelValues(msg.Kind().String()).Inc()

		switch m := msg.(type) {
		case *protocol.GetMessage:
			if err := s.handleGet(conn, m); err != nil {
				s.log.Warn("get failed", zap.String("peer", peer), zap.Error(err))
				return
			}
		case *protocol.ScreenshotMessage:
			if err := s.handleScreenshot(conn, m); err != nil {
				s.log.Warn("screenshot failed", zap.String("peer", peer), zap.Error(err))
				return
			}
		default:
			// Set and Delete are fire-and-forget.
			s.enqueue(msg)
		}
	}
}

func (s *Server) enqueue(m protocol.Message) {
	select {
	case s.queue <- m:
	default:
		// Scene owner is not draining; drop rather than stall the session.
		s.log.Warn("message queue full, dropping", zap.Stringer("kind", m.Kind()))
	}
}

// handleGet queues the request and blocks this connection goroutine on the
// completion latch. The response scene is produced by the scene owner and
// written back here as a Set frame. A timeout is a distinct outcome: the
// session closes so the producer never mistakes silence for an empty scene.
func (s *Server) handleGet(conn net.Conn, m *protocol.GetMessage) error {
	req := &GetRequest{Msg: m}
	s.pendingGets.Store(m, req)
	defer s.pendingGets.Delete(m)
	s.enqueue(m)

	if err := m.Wait.Wait(s.cfg.WaitTimeout); err != nil {
		metricWaitTimeouts.Inc()
		return fmt.Errorf("awaiting scene capture: %w", err)
	}
	resp := req.response
	if resp == nil {
		resp = &scene.Scene{}
	}
	return protocol.WriteMessage(conn, &protocol.SetMessage{Scene: *resp})
}

// handleScreenshot mirrors handleGet with image bytes instead of a scene.
func (s *Server) handleScreenshot(conn net.Conn, m *protocol.ScreenshotMessage) error {
	req := &ScreenshotRequest{Msg: m}
	s.pendingShots.Store(m, req)
	defer s.pendingShots.Delete(m)
	s.enqueue(m)

	if err := m.Wait.Wait(s.cfg.WaitTimeout); err != nil {
		metricWaitTimeouts.Inc()
		return fmt.Errorf("awaiting screenshot: %w", err)
	}
	if err := wire.WriteUint32(conn, uint32(len(req.data))); err != nil {
		return err
	}
	_, err := conn.Write(req.data)
	return err
}

// Process drains queued messages and dispatches them to the handlers. It
// must be pumped from the thread that owns the live scene (typically once
// per frame); refinement of Set payloads happens here, under that thread's
// ownership.
func (s *Server) Process() {
	for {
		select {
		case msg := <-s.queue:
			s.dispatch(msg)
		default:
			return
		}
	}
}

func (s *Server) dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.SetMessage:
		synced := s.refineScene(&m.Scene)
		if s.handlers.OnScene != nil {
			s.handlers.OnScene(synced)
		}
	case *protocol.DeleteMessage:
		if s.handlers.OnDelete != nil {
			s.handlers.OnDelete(m.Targets)
		}
	case *protocol.GetMessage:
		if req, ok := s.pendingGets.Load(m); ok {
			if s.handlers.OnGet != nil {
				s.handlers.OnGet(req.(*GetRequest))
			}
		}
	case *protocol.ScreenshotMessage:
		if req, ok := s.pendingShots.Load(m); ok {
			if s.handlers.OnScreenshot != nil {
				s.handlers.OnScreenshot(req.(*ScreenshotRequest))
			}
		}
	}
}

// refineScene runs the refinement engine over every mesh in a Set payload.
// A malformed mesh is rejected and logged; its siblings still process.
func (s *Server) refineScene(sc *scene.Scene) *SyncedScene {
	out := &SyncedScene{Scene: sc}
	for _, m := range sc.Meshes {
		settings := s.cfg.DefaultRefine
		if m.Flags.HasRefineSettings {
			settings = m.RefineSettings
		}

		start := time.Now()
		refined, err := s.refiner.Refine(m, settings)
		metricRefineDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metricMeshesRejected.Inc()
			s.log.Warn("mesh rejected", zap.String("path", m.Path), zap.Error(err))
			continue
		}
		out.Meshes = append(out.Meshes, refined)
	}
	return out
}
