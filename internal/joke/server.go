package joke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

type Server struct {
	cfg      Config
	logger   *slog.Logger
	reg      *Registry
	content  ContentProvider
	listener net.Listener

	mu       sync.Mutex
	closing  atomic.Bool
	sessions sync.WaitGroup
	stopOnce sync.Once
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	content := cfg.Content
	if content == nil {
		content = NewRandomContent(Jokes, nil)
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		reg:     NewRegistry(128, logger),
		content: content,
	}
}

// Start binds the listening socket and starts the registry. Errors wrap ErrBind.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.listenAddr()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	s.listener = ln

	go s.reg.Run()

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Registry() *Registry { return s.reg }

// Serve accepts connections until the listener fails. It returns nil once
// Shutdown has been called and the accept error otherwise.
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrServerClosed
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			return fmt.Errorf("accept: %w", err)
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.sessions.Add(1)
	s.mu.Unlock()

	id := s.reg.NextID()
	sess := newSession(id, conn, s)
	s.reg.Register(id, sess)

	// Shutdown may have swept the registry between the accept and Register.
	if s.closing.Load() {
		sess.Stop()
	}

	s.logger.Info("client connected", "session_id", id, "remote_addr", remoteAddr(conn))

	go func() {
		defer s.sessions.Done()
		sess.Run()
	}()
}

// Shutdown stops accepting, stops every session, closes the listener and
// waits for the session goroutines to finish.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.logger.Info("shutting down")
		s.mu.Lock()
		s.closing.Store(true)
		s.mu.Unlock()

		if s.listener == nil {
			return
		}

		s.reg.ShutdownAll()
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("listener close failed", "error", err)
		}

		s.sessions.Wait()
		s.reg.Stop()
		s.reg.Wait()

		s.logger.Info("shutdown complete")
	})
}
