package joke

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ListenerID identifies a disconnect listener added with AddListener.
type ListenerID int64

type listenerEntry struct {
	id ListenerID
	fn func()
}

// Registry tracks live sessions by id and notifies listeners whenever a
// session disconnects. All state is owned by the Run goroutine; the exported
// methods post events to it and wait for the result.
type Registry struct {
	events chan event
	stopCh chan struct{}
	doneCh chan struct{}
	logger *slog.Logger

	ids       atomic.Int64
	listeners atomic.Int64
}

func NewRegistry(buffer int, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events: make(chan event, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

// NextID returns a fresh session id. Ids start at 0 and are never reissued.
func (r *Registry) NextID() int64 {
	return r.ids.Add(1) - 1
}

func (r *Registry) Register(id int64, s *Session) {
	r.do(event{typ: eventRegister, id: id, session: s})
}

// Deregister removes id if present, then calls every disconnect listener
// before returning. Removing an unknown id still notifies.
func (r *Registry) Deregister(id int64) {
	listeners, _ := r.do(event{typ: eventDeregister, id: id})
	for _, l := range listeners {
		r.notify(id, l)
	}
}

func (r *Registry) AddListener(fn func()) ListenerID {
	id := ListenerID(r.listeners.Add(1))
	r.do(event{typ: eventAddListener, listener: id, callback: fn})
	return id
}

func (r *Registry) RemoveListener(id ListenerID) {
	r.do(event{typ: eventRemoveListener, listener: id})
}

// ShutdownAll asks every registered session to stop and empties the registry.
// Listeners are not called here; each session notifies once as it deregisters.
func (r *Registry) ShutdownAll() {
	r.do(event{typ: eventShutdownAll})
}

func (r *Registry) Len() int {
	n := 0
	r.do(event{typ: eventQuery, query: func(sessions map[int64]*Session) {
		n = len(sessions)
	}})
	return n
}

func (r *Registry) Contains(id int64) bool {
	ok := false
	r.do(event{typ: eventQuery, query: func(sessions map[int64]*Session) {
		_, ok = sessions[id]
	}})
	return ok
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	// Single-writer ownership: these are only accessed in this goroutine.
	sessions := make(map[int64]*Session)
	var listeners []listenerEntry

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			var reply []func()

			switch ev.typ {
			case eventRegister:
				sessions[ev.id] = ev.session
				ConnectedSessions.Set(float64(len(sessions)))
			case eventDeregister:
				if _, ok := sessions[ev.id]; ok {
					delete(sessions, ev.id)
					ConnectedSessions.Set(float64(len(sessions)))
				}
				reply = make([]func(), 0, len(listeners))
				for _, l := range listeners {
					reply = append(reply, l.fn)
				}
			case eventShutdownAll:
				r.handleShutdownAll(sessions)
				ConnectedSessions.Set(0)
			case eventAddListener:
				listeners = append(listeners, listenerEntry{id: ev.listener, fn: ev.callback})
			case eventRemoveListener:
				for i, l := range listeners {
					if l.id == ev.listener {
						listeners = append(listeners[:i:i], listeners[i+1:]...)
						break
					}
				}
			case eventQuery:
				ev.query(sessions)
			}

			RegistryEventDuration.WithLabelValues(ev.typ.String()).Observe(time.Since(start).Seconds())
			ev.done <- reply
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) handleShutdownAll(sessions map[int64]*Session) {
	r.logger.Info("stopping all sessions", "count", len(sessions))
	for id, s := range sessions {
		if s != nil {
			s.Stop()
		}
		delete(sessions, id)
	}
}

// do hands ev to the Run loop and waits for it to be handled. It reports false
// if the loop has already exited.
func (r *Registry) do(ev event) ([]func(), bool) {
	ev.done = make(chan []func(), 1)
	select {
	case r.events <- ev:
	case <-r.doneCh:
		return nil, false
	}
	select {
	case reply := <-ev.done:
		return reply, true
	case <-r.doneCh:
		return nil, false
	}
}

func (r *Registry) notify(id int64, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("disconnect listener panicked", "session_id", id, "error", fmt.Sprint(v))
		}
	}()
	fn()
}
