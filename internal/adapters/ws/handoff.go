package ws

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Transport is the websocket core.TransportHandoff. A successful Handoff
// leaves an open Session.
type Transport struct {
	// Scheme is "ws" or "wss".
	Scheme string
	Path   string
	Dialer *websocket.Dialer

	mu      sync.Mutex
	session *Session
}

var _ core.TransportHandoff = (*Transport)(nil)

func NewTransport(scheme string) *Transport {
	if scheme == "" {
		scheme = "ws"
	}
	return &Transport{Scheme: scheme, Path: "/relay/ws", Dialer: websocket.DefaultDialer}
}

// RelayURL builds the relay websocket address from connection parameters.
func (t *Transport) RelayURL(p domain.ConnParams) string {
	u := url.URL{
		Scheme: t.Scheme,
		Host:   net.JoinHostPort(p.Endpoint, strconv.Itoa(p.Port)),
		Path:   t.Path,
	}
	return u.String()
}

func (t *Transport) Handoff(ctx context.Context, params domain.HandoffParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	if t.session != nil {
		t.mu.Unlock()
		return fmt.Errorf("transport already started")
	}
	t.mu.Unlock()

	addr := t.RelayURL(params.Conn)
	conn, _, err := t.Dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", addr, err)
	}

	hello := api.Frame{
		Type:           api.FrameHello,
		AllocationID:   params.Conn.AllocationID,
		ConnectionData: params.Conn.ConnectionData,
		Signature:      params.Conn.Signature(),
	}
	if err := writeFrame(conn, hello); err != nil {
		_ = conn.Close()
		return err
	}

	deadline := time.Now().Add(helloWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("relay welcome: %w", err)
	}
	welcome, err := api.DecodeFrame(data)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if welcome.Type != api.FrameWelcome {
		_ = conn.Close()
		return fmt.Errorf("relay rejected hello: %s", welcome.Error)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := newSession(conn, params, welcome.From)
	t.mu.Lock()
	t.session = s
	t.mu.Unlock()

	log.Info().
		Str("module", "adapters.ws").
		Str("role", string(params.Role)).
		Str("allocation_id", string(params.Conn.AllocationID)).
		Str("relay", addr).
		Msg("relay session started")
	go s.readLoop()
	return nil
}

// Session returns the session started by Handoff, or nil.
func (t *Transport) Session() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func writeFrame(conn *websocket.Conn, f api.Frame) error {
	b, err := api.EncodeFrame(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

// Session is an open relay connection.
type Session struct {
	Role   domain.Role
	Self   domain.AllocationID
	Host   domain.AllocationID
	RoomID domain.RoomID

	conn   *websocket.Conn
	wmu    sync.Mutex
	frames chan api.Frame
	once   sync.Once
	done   chan struct{}
}

func newSession(conn *websocket.Conn, p domain.HandoffParams, host domain.AllocationID) *Session {
	return &Session{
		Role:   p.Role,
		Self:   p.Conn.AllocationID,
		Host:   host,
		RoomID: p.RoomID,
		conn:   conn,
		frames: make(chan api.Frame, 64),
		done:   make(chan struct{}),
	}
}

// Frames delivers relayed frames until the session ends.
func (s *Session) Frames() <-chan api.Frame { return s.frames }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send relays payload to one peer, or to every other peer when to is empty.
func (s *Session) Send(to domain.AllocationID, payload []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return writeFrame(s.conn, api.Frame{Type: api.FrameData, To: to, Payload: payload})
}

func (s *Session) Close() {
	s.once.Do(func() {
		s.wmu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.wmu.Unlock()
		_ = s.conn.Close()
	})
}

func (s *Session) readLoop() {
	defer func() {
		close(s.frames)
		close(s.done)
		s.Close()
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.ws").Msg("relay session closed")
			return
		}
		f, err := api.DecodeFrame(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Msg("bad relay frame")
			continue
		}
		select {
		case s.frames <- f:
		default:
			log.Warn().Str("module", "adapters.ws").Str("type", string(f.Type)).Msg("session frame dropped")
		}
	}
}
