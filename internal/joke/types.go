package joke

import (
	"log/slog"
	"net"
	"strconv"
)

const (
	DefaultPort = 4444
	DefaultHost = "0.0.0.0"

	Prompt          = "Do you want to hear a joke? (Y/N)"
	ByeReply        = "Bye!"
	InvalidReply    = "Invalid input!"
	addrPlaceholder = "unknown"
)

// Config holds everything the server needs to listen and run sessions.
type Config struct {
	Host string
	Port int

	// CloseOnDecline ends a session after "Bye!" is sent. By default the
	// session keeps prompting until the client hangs up.
	CloseOnDecline bool

	Content ContentProvider
	Logger  *slog.Logger
}

// listenAddr joins host and port. An empty host means DefaultHost; port 0 asks
// for an ephemeral port and only out-of-range ports fall back to DefaultPort.
func (c Config) listenAddr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port < 0 || port > 65535 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

type State int

const (
	StateGreeting State = iota
	StatePrompting
	StateAwaitingResponse
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StatePrompting:
		return "prompting"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type eventType int

const (
	eventRegister eventType = iota
	eventDeregister
	eventShutdownAll
	eventAddListener
	eventRemoveListener
	eventQuery
)

func (t eventType) String() string {
	switch t {
	case eventRegister:
		return "register"
	case eventDeregister:
		return "deregister"
	case eventShutdownAll:
		return "shutdown_all"
	case eventAddListener:
		return "add_listener"
	case eventRemoveListener:
		return "remove_listener"
	case eventQuery:
		return "query"
	}
	return "unknown"
}

type event struct {
	typ      eventType
	id       int64
	session  *Session
	listener ListenerID
	callback func()
	query    func(sessions map[int64]*Session)
	done     chan []func()
}

var (
	ErrBind           = errorString("bind failed")
	ErrDecode         = errorString("malformed message")
	ErrMessageTooLong = errorString("message exceeds 65535 bytes")
	ErrServerClosed   = errorString("server closed")
)

type errorString string

func (e errorString) Error() string { return string(e) }
