package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gorilla/websocket"
)

// fakeRelay answers the hello with reply and then runs after, if set.
func fakeRelay(t *testing.T, reply func(hello api.Frame) api.Frame, after func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		hello, err := api.DecodeFrame(data)
		if err != nil || hello.Type != api.FrameHello {
			return
		}
		if err := writeFrame(conn, reply(hello)); err != nil {
			return
		}
		if after != nil {
			after(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func guestParams(t *testing.T, srv *httptest.Server) domain.HandoffParams {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split %s: %v", srv.URL, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port %s: %v", portStr, err)
	}
	return domain.HandoffParams{
		Role:     domain.RoleGuest,
		JoinCode: "ABC123",
		RoomID:   "room-1",
		Conn: domain.ConnParams{
			AllocationID:       "guest-1",
			Endpoint:           host,
			Port:               port,
			AllocationIDBytes:  []byte{1},
			Key:                []byte("key"),
			ConnectionData:     []byte("guest"),
			HostConnectionData: []byte("host"),
		},
	}
}

func welcome(hello api.Frame) api.Frame {
	return api.Frame{Type: api.FrameWelcome, From: "host-1", To: hello.AllocationID}
}

func TestHandoff_RejectedHello(t *testing.T) {
	srv := fakeRelay(t, func(api.Frame) api.Frame {
		return api.Frame{Type: api.FrameError, Error: "unauthorized"}
	}, nil)

	tr := NewTransport("ws")
	err := tr.Handoff(context.Background(), guestParams(t, srv))
	if err == nil || !strings.Contains(err.Error(), "relay rejected hello: unauthorized") {
		t.Fatalf("expected rejection, got %v", err)
	}
	if tr.Session() != nil {
		t.Fatalf("rejected handoff must not leave a session")
	}
}

func TestHandoff_SendsSignedHello(t *testing.T) {
	got := make(chan api.Frame, 1)
	srv := fakeRelay(t, func(hello api.Frame) api.Frame {
		got <- hello
		return welcome(hello)
	}, func(conn *websocket.Conn) { _, _, _ = conn.ReadMessage() })

	params := guestParams(t, srv)
	tr := NewTransport("ws")
	if err := tr.Handoff(context.Background(), params); err != nil {
		t.Fatalf("handoff: %v", err)
	}
	defer tr.Session().Close()

	hello := <-got
	if hello.AllocationID != params.Conn.AllocationID {
		t.Fatalf("hello allocation %s", hello.AllocationID)
	}
	if !domain.VerifySignature(params.Conn.Key, hello.ConnectionData, hello.Signature) {
		t.Fatalf("hello signature does not verify")
	}
	s := tr.Session()
	if s.Host != "host-1" || s.Role != domain.RoleGuest || s.RoomID != "room-1" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestHandoff_SecondCallFails(t *testing.T) {
	srv := fakeRelay(t, welcome, func(conn *websocket.Conn) { _, _, _ = conn.ReadMessage() })

	tr := NewTransport("ws")
	params := guestParams(t, srv)
	if err := tr.Handoff(context.Background(), params); err != nil {
		t.Fatalf("handoff: %v", err)
	}
	defer tr.Session().Close()

	err := tr.Handoff(context.Background(), params)
	if err == nil || err.Error() != "transport already started" {
		t.Fatalf("expected transport already started, got %v", err)
	}
}

func TestHandoff_InvalidParamsNeverDial(t *testing.T) {
	tr := NewTransport("ws")
	p := domain.HandoffParams{Role: domain.RoleGuest, Conn: domain.ConnParams{Endpoint: "127.0.0.1", Port: 1}}
	if err := tr.Handoff(context.Background(), p); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSession_ReadLoopClosesOnServerClose(t *testing.T) {
	srv := fakeRelay(t, welcome, func(conn *websocket.Conn) {
		_ = writeFrame(conn, api.Frame{Type: api.FrameData, From: "host-1", Payload: []byte("hi")})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	tr := NewTransport("ws")
	if err := tr.Handoff(context.Background(), guestParams(t, srv)); err != nil {
		t.Fatalf("handoff: %v", err)
	}
	s := tr.Session()

	select {
	case f, ok := <-s.Frames():
		if !ok || f.Type != api.FrameData || string(f.Payload) != "hi" {
			t.Fatalf("unexpected frame %+v ok=%v", f, ok)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no frame received")
	}

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session not done after server close")
	}
	if _, ok := <-s.Frames(); ok {
		t.Fatalf("frames channel still open")
	}
}
