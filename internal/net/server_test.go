package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/survgo/server/internal/net/packet"
	"go.uber.org/zap/zaptest"
)

const waitFor = 2 * time.Second

func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", "/play", opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go s.AcceptLoop()
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, "ws://" + s.Addr().String() + "/play"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func nextSession(t *testing.T, s *Server) *Session {
	t.Helper()
	select {
	case sess := <-s.NewSessions():
		return sess
	case <-time.After(waitFor):
		t.Fatalf("no session arrived")
		return nil
	}
}

func waitDead(t *testing.T, s *Server, id uint64) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case got := <-s.DeadSessions():
			if got == id {
				return
			}
		case <-deadline:
			t.Fatalf("session %d never reported dead", id)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	s, url := startServer(t, Options{})
	conn := dial(t, url)
	sess := nextSession(t, s)
	if sess.State() != packet.StateConnected {
		t.Fatalf("new session state = %v", sess.State())
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{packet.MsgPing, 1, 2}); err != nil {
		t.Fatalf("client write: %v", err)
	}
	select {
	case in := <-sess.InQueue:
		if len(in) != 3 || in[0] != packet.MsgPing {
			t.Fatalf("unexpected inbound frame %v", in)
		}
	case <-time.After(waitFor):
		t.Fatalf("inbound frame never queued")
	}

	sess.Send([]byte{packet.MsgPong, 9})
	if sess.Pending() != 1 {
		t.Fatalf("send must buffer until flush")
	}
	sess.FlushOutput()
	conn.SetReadDeadline(time.Now().Add(waitFor))
	kind, out, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if kind != websocket.BinaryMessage || len(out) != 2 || out[0] != packet.MsgPong {
		t.Fatalf("unexpected outbound frame kind=%d %v", kind, out)
	}
}

func TestTextFrameClosesSession(t *testing.T) {
	s, url := startServer(t, Options{})
	conn := dial(t, url)
	sess := nextSession(t, s)
	conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	waitDead(t, s, sess.ID)
	if !sess.IsClosed() || sess.State() != packet.StateDisconnecting {
		t.Fatalf("session must be closed after a text frame")
	}
}

func TestRateLimitClosesSession(t *testing.T) {
	s, url := startServer(t, Options{MaxPacketsPerSec: 3, InQueueSize: 16})
	conn := dial(t, url)
	sess := nextSession(t, s)
	for i := 0; i < 10; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{packet.MsgPing}); err != nil {
			break
		}
	}
	waitDead(t, s, sess.ID)
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	s, url := startServer(t, Options{})
	dial(t, url)
	sess := nextSession(t, s)
	sess.Close()
	sess.Close()
	sess.Send([]byte{1})
	if sess.Pending() != 0 {
		t.Fatalf("closed session must not buffer")
	}
}

func TestBackpressureClosesSession(t *testing.T) {
	got := make(chan *Session, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// No writer goroutine: OutQueue never drains.
		got <- NewSession(conn, 1, Options{OutQueueSize: 2}, zaptest.NewLogger(t))
	}))
	defer srv.Close()

	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	var sess *Session
	select {
	case sess = <-got:
	case <-time.After(waitFor):
		t.Fatalf("no session")
	}

	sess.Send([]byte{1})
	sess.Send([]byte{2})
	sess.FlushOutput()
	if sess.IsClosed() {
		t.Fatalf("queue with room must not close the session")
	}
	sess.Send([]byte{3})
	sess.FlushOutput()
	if !sess.IsClosed() {
		t.Fatalf("full output queue must close the session")
	}
	if sess.Pending() != 0 {
		t.Fatalf("buffer must be dropped on backpressure close")
	}
}

func TestCloseSendsCloseFrame(t *testing.T) {
	s, url := startServer(t, Options{})
	conn := dial(t, url)
	sess := nextSession(t, s)

	sess.Close()
	conn.SetReadDeadline(time.Now().Add(waitFor))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected a normal close frame, got %v", err)
	}
}

func TestCloseDoesNotWaitForStuckWriter(t *testing.T) {
	s, url := startServer(t, Options{OutQueueSize: 64, WriteTimeout: 5 * time.Second})
	dial(t, url) // never reads, so the socket buffers fill up
	sess := nextSession(t, s)

	big := make([]byte, 1<<20)
	big[0] = packet.MsgPong
	for i := 0; i < 32; i++ {
		sess.Send(big)
	}
	sess.FlushOutput()
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	sess.Close()
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Fatalf("close blocked the caller for %v", d)
	}
}
