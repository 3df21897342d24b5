package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"glow/internal/engine"
	"glow/internal/logging"
	"glow/internal/plugin"
	"glow/internal/scene"
)

const (
	// writeWait bounds every frame write so one stuck client cannot park
	// a session goroutine forever.
	writeWait = 10 * time.Second
	// maxRequestBytes caps inbound control frames. Parameter maps are
	// tiny; anything larger is a broken client.
	maxRequestBytes   = 64 << 10
	readHeaderTimeout = 5 * time.Second
)

// Options carries the collaborators a Server needs.
type Options struct {
	// Listen is the TCP address for the control listener, host:port.
	Listen   string
	Engine   *engine.Engine
	Registry *plugin.Registry
	Scenes   *scene.Store
	// LogHub feeds log_tail requests. Optional; log_tail is rejected
	// when absent.
	LogHub *logging.StreamHub
	Logger *slog.Logger
}

// Server accepts WebSocket control sessions and speaks the wire protocol.
type Server struct {
	engine   *engine.Engine
	registry *plugin.Registry
	scenes   *scene.Store
	logHub   *logging.StreamHub
	logger   *slog.Logger

	upgrader websocket.Upgrader
	listener net.Listener
	httpSrv  *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
}

// NewServer binds the control listener. Serve must be called to start
// accepting sessions.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("gateway requires an engine")
	}
	if opts.Registry == nil {
		return nil, errors.New("gateway requires a plugin registry")
	}
	if opts.Scenes == nil {
		return nil, errors.New("gateway requires a scene store")
	}
	if opts.Listen == "" {
		return nil, errors.New("gateway requires a listen address")
	}
	logger := logging.NewComponentLogger(opts.Logger, "gateway")

	listener, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", opts.Listen, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		engine:   opts.Engine,
		registry: opts.Registry,
		scenes:   opts.Scenes,
		logHub:   opts.LogHub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway fronts a single-operator daemon; origin
			// enforcement belongs on whatever proxies it to a browser.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Addr reports the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve starts accepting control sessions until Close is called.
func (s *Server) Serve() {
	s.logger.Info("gateway listening",
		logging.String("addr", s.Addr()),
		logging.String(logging.FieldEventType, "gateway_start"))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.httpSrv.Serve(s.listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case <-s.ctx.Done():
			default:
				logging.ErrorWithContext(s.logger, "gateway server failed", "gateway_serve_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "restart the daemon to restore remote control"))
			}
		}
	}()
}

// Close stops the listener and tears down every open session.
func (s *Server) Close() {
	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.mu.Lock()
	s.closed = true
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.close()
	}
	s.wg.Wait()
	s.logger.Info("gateway stopped",
		logging.String(logging.FieldEventType, "gateway_stop"))
}

// trackSession registers the session for shutdown. It reports false when
// the server is already closing and the connection should be dropped.
func (s *Server) trackSession(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.id] = sess
	s.wg.Add(1)
	return true
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}

	sess := newSession(s, conn)
	if !s.trackSession(sess) {
		_ = conn.Close()
		return
	}
	defer s.wg.Done()

	s.logger.Info("client connected",
		logging.String(logging.FieldClient, sess.id),
		logging.String("remote", conn.RemoteAddr().String()),
		logging.String(logging.FieldEventType, "client_connect"))

	sess.run(s.ctx)

	s.dropSession(sess.id)
	s.logger.Info("client disconnected",
		logging.String(logging.FieldClient, sess.id),
		logging.String(logging.FieldEventType, "client_disconnect"))
}
