package joke

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_WelcomeIDsAreSequential(t *testing.T) {
	srv := startServer(t, Config{})
	addr := srv.Addr().String()

	for want := 0; want < 3; want++ {
		c := dial(t, addr)
		got, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("[Client: %d] has connected to Joke Server[%s]\n%s", want, addr, Prompt), got)
	}
}

func TestServer_ConcurrentClientsGetDistinctIDs(t *testing.T) {
	srv := startServer(t, Config{})
	addr := srv.Addr().String()

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			c, err := Dial(ctx, addr)
			if !assert.NoError(t, err) {
				return
			}
			defer c.Close()
			msg, err := c.ReadMessage()
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[msg] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("[Client: %d] has connected to Joke Server[%s]\n%s", i, addr, Prompt)], "missing id %d", i)
	}
}

func TestServer_Replies(t *testing.T) {
	srv := startServer(t, Config{})
	c := dial(t, srv.Addr().String())

	_, err := c.ReadMessage()
	require.NoError(t, err)

	got, err := c.Exchange("Y")
	require.NoError(t, err)
	matched := false
	for _, j := range Jokes {
		if got == j+Prompt {
			matched = true
		}
	}
	assert.True(t, matched, "unexpected joke reply %q", got)

	got, err = c.Exchange("N")
	require.NoError(t, err)
	assert.Equal(t, "Bye!\n"+Prompt, got)

	// The session stays open after a decline.
	got, err = c.Exchange("what")
	require.NoError(t, err)
	assert.Equal(t, "Invalid input!\n"+Prompt, got)
}

func TestServer_DisconnectDeregistersAndNotifies(t *testing.T) {
	srv := startServer(t, Config{})
	reg := srv.Registry()

	notified := make(chan struct{}, 4)
	reg.AddListener(func() { notified <- struct{}{} })

	c := dial(t, srv.Addr().String())
	_, err := c.ReadMessage()
	require.NoError(t, err)
	require.True(t, reg.Contains(0))

	require.NoError(t, c.Close())

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not notified")
	}
	assert.False(t, reg.Contains(0))
	assert.Equal(t, 0, reg.Len())

	select {
	case <-notified:
		t.Fatal("listener notified twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServer_ShutdownEndsSessionsAndRefusesConnections(t *testing.T) {
	srv := NewServer(Config{Host: "127.0.0.1", Port: 0, Content: fixedContent("x")})
	require.NoError(t, srv.Start(context.Background()))
	addr := srv.Addr().String()

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = dial(t, addr)
		_, err := clients[i].ReadMessage()
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return srv.Registry().Len() == 3 }, time.Second, 5*time.Millisecond)

	srv.Shutdown()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	for _, c := range clients {
		_, err := c.ReadMessage()
		assert.Error(t, err)
	}

	_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err)
}

func TestServer_BindError(t *testing.T) {
	srv := startServer(t, Config{})
	port := srv.Addr().(*net.TCPAddr).Port

	other := NewServer(Config{Host: "127.0.0.1", Port: port})
	err := other.Start(context.Background())
	assert.ErrorIs(t, err, ErrBind)
}

type brokenListener struct {
	err error
}

func (l brokenListener) Accept() (net.Conn, error) { return nil, l.err }
func (l brokenListener) Close() error { return nil }
func (l brokenListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4444}
}

func TestServer_AcceptErrorIsFatal(t *testing.T) {
	acceptErr := errors.New("too many open files")
	srv := NewServer(Config{Content: fixedContent("x")})
	srv.listener = brokenListener{err: acceptErr}
	go srv.reg.Run()
	t.Cleanup(srv.Shutdown)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, acceptErr)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after accept failure")
	}
	assert.False(t, srv.closing.Load())
	assert.Equal(t, 0, srv.Registry().Len())
	assert.Equal(t, int64(0), srv.Registry().NextID(), "no session id should have been issued")
}

func TestServer_ServeBeforeStart(t *testing.T) {
	srv := NewServer(Config{})
	assert.ErrorIs(t, srv.Serve(), ErrServerClosed)
	srv.Shutdown()
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv := NewServer(cfg)
	require.NoError(t, srv.Start(context.Background()))
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Shutdown)
	return srv
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
