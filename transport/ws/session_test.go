package ws

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"haven-chat/contract"
)

// echoHandler records inbound frames and echoes them back on the session.
type echoHandler struct {
	mu          sync.Mutex
	frames      [][]byte
	disconnects int
}

func (h *echoHandler) HandleFrame(ctx context.Context, sess contract.Session, raw []byte) {
	h.mu.Lock()
	h.frames = append(h.frames, raw)
	h.mu.Unlock()
	_ = sess.Deliver(raw)
}

func (h *echoHandler) HandleDisconnect(sess contract.Session) {
	h.mu.Lock()
	h.disconnects++
	h.mu.Unlock()
}

func (h *echoHandler) frameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *echoHandler) disconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnects
}

func startServer(t *testing.T, handler FrameHandler) (*Table, string) {
	t.Helper()
	table := NewTable()
	srv := httptest.NewServer(NewServer(slog.Default(), table, handler, 16))
	t.Cleanup(srv.Close)
	return table, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSession_RoundTrip(t *testing.T) {
	req := require.New(t)
	handler := &echoHandler{}
	table, url := startServer(t, handler)

	conn := dial(t, url)

	// When the client sends one frame
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat"}`)))

	// Then the handler saw it and the echo came back on the same connection
	_, echoed, err := conn.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"type":"chat"}`, string(echoed))
	req.Equal(1, handler.frameCount())
	req.Equal(1, table.Len())
}

func TestSession_Client_Close_Triggers_Disconnect(t *testing.T) {
	req := require.New(t)
	handler := &echoHandler{}
	table, url := startServer(t, handler)

	conn := dial(t, url)
	req.Eventually(func() bool { return table.Len() == 1 }, time.Second, 10*time.Millisecond)

	// When the client drops the connection
	conn.Close()

	// Then the disconnect hook ran exactly once and the table emptied
	req.Eventually(func() bool { return handler.disconnectCount() == 1 }, time.Second, 10*time.Millisecond)
	req.Eventually(func() bool { return table.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSession_Terminate_Closes_Transport(t *testing.T) {
	req := require.New(t)
	handler := &echoHandler{}
	table, url := startServer(t, handler)

	conn := dial(t, url)
	req.Eventually(func() bool { return table.Len() == 1 }, time.Second, 10*time.Millisecond)

	// When the server side force-terminates the session
	for _, target := range table.Sessions() {
		target.Terminate()
	}

	// Then the client read fails and the disconnect hook still runs
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.Eventually(func() bool { return handler.disconnectCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSession_Deliver_Reports_Closed_Session(t *testing.T) {
	req := require.New(t)
	handler := &echoHandler{}
	table, url := startServer(t, handler)

	dial(t, url)
	req.Eventually(func() bool { return table.Len() == 1 }, time.Second, 10*time.Millisecond)

	sessions := table.Sessions()
	req.Len(sessions, 1)
	sess := sessions[0].(*Session)

	sess.Terminate()

	// Then delivery to a terminated session is an error, not a panic
	req.Error(sess.Deliver([]byte("late")))
	req.False(sess.Open())
}

func TestSession_Probe_Is_Answered_By_Client(t *testing.T) {
	req := require.New(t)
	handler := &echoHandler{}
	table, url := startServer(t, handler)

	conn := dial(t, url)
	req.Eventually(func() bool { return table.Len() == 1 }, time.Second, 10*time.Millisecond)

	// The client must keep reading for the pong handler to fire
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sess := table.Sessions()[0]

	// When the server probes
	req.NoError(sess.Probe())
	req.True(sess.Awaiting())

	// Then the client's automatic pong clears the flag
	req.Eventually(func() bool { return !sess.Awaiting() }, time.Second, 10*time.Millisecond)
}
