// SPDX-License-Identifier: EPL-2.0

package sshserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"github.com/invowk/modgate/internal/gate"
	"github.com/invowk/modgate/internal/notice"
)

const (
	// StateCreated is a server that has not been started.
	StateCreated ServerState = iota
	// StateRunning is a bound server accepting sessions.
	StateRunning
	// StateStopping is a server draining its sessions.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal; Wait returns the cause.
	StateFailed
)

// ErrNotRunning is returned by operations that need a running server.
var ErrNotRunning = errors.New("diagnostics server is not running")

type (
	// ServerState is the lifecycle state of a Server.
	ServerState int32

	// Evaluator evaluates the requirement set of module in capture mode.
	// It is called once per authenticated session and must build a fresh set
	// each time.
	Evaluator func(ctx context.Context, module string) (gate.Decision, error)

	// Server is the capture diagnostics endpoint. A Server is single-use:
	// once stopped or failed, create a new one.
	Server struct {
		cfg      Config
		evaluate Evaluator
		clock    Clock
		logger   *log.Logger

		state atomic.Int32

		// mu guards the fields set by Start.
		mu       sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		port     int
		cancel   context.CancelFunc
		failure  error

		wg    sync.WaitGroup
		errCh chan error

		tokens  map[string]*Token
		tokenMu sync.Mutex
	}

	// Config holds the server settings. Zero values fall back to
	// DefaultConfig.
	Config struct {
		// Host is the bind address.
		Host string
		// Port is the listen port; 0 picks a free one.
		Port int
		// TokenTTL is how long an unused token stays valid.
		TokenTTL time.Duration
		// ShutdownTimeout bounds how long Stop waits for open sessions.
		ShutdownTimeout time.Duration
		// DefaultFormat is the notice format for sessions that name none.
		DefaultFormat notice.Format
	}

	// Option configures a Server.
	Option func(*Server)
)

func (s ServerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultConfig binds loopback on a free port with 15 minute tokens.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            0,
		TokenTTL:        15 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		DefaultFormat:   notice.FormatText,
	}
}

// WithClock replaces the clock used for token expiry.
func WithClock(clock Clock) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server that answers sessions with evaluate. Call Start to
// begin accepting connections.
func New(cfg Config, evaluate Evaluator, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = def.DefaultFormat
	}

	s := &Server{
		cfg:      cfg,
		evaluate: evaluate,
		clock:    realClock{},
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "ssh-server"}),
		errCh:    make(chan error, 1),
		tokens:   make(map[string]*Token),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateCreated))
	return s
}

// Start binds the listener and starts serving in the background. The server
// is accepting connections when Start returns nil. Runtime failures are
// reported on Err.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateCreated {
		return fmt.Errorf("cannot start server in state %s", st)
	}
	if err := ctx.Err(); err != nil {
		return s.failLocked(fmt.Errorf("context cancelled before start: %w", err))
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return s.failLocked(fmt.Errorf("failed to listen on %s: %w", addr, err))
	}

	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(s.captureMiddleware()),
	)
	if err != nil {
		_ = listener.Close()
		return s.failLocked(fmt.Errorf("failed to create SSH server: %w", err))
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s.srv = srv
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.cancel = cancel
	s.state.Store(int32(StateRunning))

	s.wg.Add(2)
	go s.serve(srv, listener)
	go s.cleanupExpiredTokens(bgCtx)

	s.logger.Info("diagnostics server started", "address", listener.Addr().String())
	return nil
}

// Stop shuts the server down, waiting up to ShutdownTimeout for open
// sessions. Calling Stop more than once, or before Start, is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	switch s.State() {
	case StateCreated:
		s.state.Store(int32(StateStopped))
		s.mu.Unlock()
		return nil
	case StateRunning:
	default:
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	s.state.Store(int32(StateStopping))
	srv, listener, cancel := s.srv, s.listener, s.cancel
	s.mu.Unlock()

	cancel()

	ctx, done := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer done()
	err := srv.Shutdown(ctx)
	if errors.Is(err, ssh.ErrServerClosed) || isClosedConnError(err) {
		err = nil
	}
	if err != nil {
		s.logger.Error("shutdown error", "error", err)
	}
	_ = listener.Close()

	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	close(s.errCh)
	s.logger.Info("diagnostics server stopped")
	return err
}

// Err returns a channel that receives fatal runtime errors. It is closed by
// Stop.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// State returns the current server state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Address returns the bound host:port, or "" when the server is not
// running.
func (s *Server) Address() string {
	if port := s.Port(); port != 0 {
		return net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	}
	return ""
}

// Port returns the bound port, or 0 when the server is not running.
func (s *Server) Port() int {
	if !s.IsRunning() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Host returns the configured bind address.
func (s *Server) Host() string {
	return s.cfg.Host
}

// Wait blocks until the background goroutines exit. It returns the cause
// when the server failed.
func (s *Server) Wait() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// GetConnectionInfo issues a token for module and returns what a client
// needs to connect.
func (s *Server) GetConnectionInfo(module string) (*ConnectionInfo, error) {
	if !s.IsRunning() {
		return nil, fmt.Errorf("%w (state: %s)", ErrNotRunning, s.State())
	}

	token, err := s.GenerateToken(module)
	if err != nil {
		return nil, err
	}

	return &ConnectionInfo{
		Host:     s.cfg.Host,
		Port:     s.Port(),
		Token:    token.Value,
		User:     ConnectionUser,
		Module:   module,
		ExpireAt: token.ExpiresAt,
	}, nil
}

func (s *Server) serve(srv *ssh.Server, listener net.Listener) {
	defer s.wg.Done()

	err := srv.Serve(listener)
	if err == nil || errors.Is(err, ssh.ErrServerClosed) || isClosedConnError(err) {
		return
	}
	select {
	case s.errCh <- fmt.Errorf("serve error: %w", err):
	default:
		s.logger.Error("serve error", "error", err)
	}
}

// failLocked records err as the terminal failure. s.mu must be held.
func (s *Server) failLocked(err error) error {
	s.failure = err
	s.state.Store(int32(StateFailed))
	select {
	case s.errCh <- err:
	default:
	}
	return err
}

// isClosedConnError reports errors caused by a listener or connection that
// was already closed.
func isClosedConnError(err error) bool {
	return err != nil && errors.Is(err, net.ErrClosed)
}
