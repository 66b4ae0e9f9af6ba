package joke

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Session runs the prompt/reply loop for one client connection.
type Session struct {
	id         int64
	conn       net.Conn
	serverAddr net.Addr
	registry   *Registry
	content    ContentProvider
	logger     *slog.Logger

	closeOnDecline bool

	running   atomic.Bool
	state     atomic.Int32
	closeOnce sync.Once
}

func newSession(id int64, conn net.Conn, srv *Server) *Session {
	s := &Session{
		id:             id,
		conn:           conn,
		serverAddr:     srv.Addr(),
		registry:       srv.reg,
		content:        srv.content,
		logger:         srv.logger.With("session_id", id),
		closeOnDecline: srv.cfg.CloseOnDecline,
	}
	s.running.Store(true)
	return s
}

func (s *Session) ID() int64 { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Stop asks the session to end. The loop notices at its next read, which is
// cut short by an immediate deadline.
func (s *Session) Stop() {
	s.running.Store(false)
	_ = s.conn.SetDeadline(time.Now())
}

// Run drives the session until the client disconnects, an I/O error occurs
// or Stop is called. The session deregisters itself before returning.
func (s *Session) Run() {
	started := time.Now()
	SessionsTotal.Inc()
	defer func() {
		s.close()
		SessionDuration.Observe(time.Since(started).Seconds())
	}()

	s.setState(StateGreeting)
	pending := fmt.Sprintf("[Client: %d] has connected to Joke Server[%s]", s.id, resolveLocalAddress(s.serverAddr))

	for s.running.Load() {
		s.setState(StatePrompting)
		if err := WriteMessage(s.conn, withPrompt(pending)); err != nil {
			s.logger.Debug("write failed", "error", err)
			return
		}

		s.setState(StateAwaitingResponse)
		input, err := ReadMessage(s.conn)
		if err != nil {
			s.logReadError(err)
			return
		}

		var kind string
		pending, kind = s.reply(input)
		RepliesTotal.WithLabelValues(kind).Inc()

		if kind == replyBye && s.closeOnDecline {
			if err := WriteMessage(s.conn, pending); err != nil {
				s.logger.Debug("write failed", "error", err)
			}
			return
		}
	}
}

const (
	replyJoke    = "joke"
	replyBye     = "bye"
	replyInvalid = "invalid"
)

func (s *Session) reply(input string) (string, string) {
	switch strings.ToUpper(input) {
	case "Y":
		return s.content.RandomItem(), replyJoke
	case "N":
		return ByeReply, replyBye
	default:
		return InvalidReply, replyInvalid
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		s.registry.Deregister(s.id)
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("close failed", "error", err)
		}
		s.setState(StateClosed)
		s.logger.Info("client disconnected", "remote_addr", remoteAddr(s.conn))
	})
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Debug("client closed connection")
	case errors.Is(err, os.ErrDeadlineExceeded) && !s.running.Load():
		s.logger.Debug("session stopped")
	case errors.Is(err, ErrDecode):
		s.logger.Warn("dropping client after malformed message", "error", err)
	default:
		s.logger.Debug("read failed", "error", err)
	}
}

// withPrompt appends the prompt on its own line.
func withPrompt(msg string) string {
	if msg == "" || strings.HasSuffix(msg, "\n") {
		return msg + Prompt
	}
	return msg + "\n" + Prompt
}

// resolveLocalAddress renders addr as ip:port, or a placeholder when it
// cannot be parsed.
func resolveLocalAddress(addr net.Addr) string {
	if addr == nil {
		return addrPlaceholder
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addrPlaceholder
	}
	if host == "" {
		host = addrPlaceholder
	}
	return net.JoinHostPort(host, port)
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
