package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const helloWait = 10 * time.Second

// RelayController upgrades relay connections, authenticates the hello frame
// and attaches the peer to its allocation's relay.
type RelayController struct {
	Allocator  *relay.Allocator
	Relays     *relay.RelayManager
	ReadLimit  int64
	PingPeriod time.Duration

	upgrader websocket.Upgrader
}

func NewRelayController(alloc *relay.Allocator, relays *relay.RelayManager, readLimit int64, pingPeriod time.Duration) *RelayController {
	if readLimit <= 0 {
		readLimit = 64 << 10
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &RelayController{
		Allocator:  alloc,
		Relays:     relays,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (ctl *RelayController) pongWait() time.Duration {
	return ctl.PingPeriod * 10 / 9
}

func (ctl *RelayController) Handle(ctx context.Context, c *gin.Context) {
	wsConn, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	wsConn.SetReadLimit(ctl.ReadLimit)

	binding, err := ctl.hello(wsConn)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("relay hello rejected")
		b, _ := api.EncodeFrame(api.Frame{Type: api.FrameError, Error: err.Error()})
		_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = wsConn.WriteMessage(websocket.BinaryMessage, b)
		_ = wsConn.Close()
		return
	}

	conn := newPeerConn(binding.ID, wsConn)
	peer := relay.NewPeer(binding.ID, binding.Role, conn)
	_ = conn.trySendFrame(api.Frame{Type: api.FrameWelcome, AllocationID: binding.ID, From: binding.Host, Role: binding.Role})
	r := ctl.Relays.Attach(ctx, binding.Host, peer)

	connCtx, cancel := context.WithCancel(ctx)
	go conn.writePump(connCtx, ctl.PingPeriod)
	go func() {
		defer cancel()
		ctl.readPump(connCtx, conn, r)
		ctl.Relays.Detach(context.WithoutCancel(ctx), binding.Host, peer)
		conn.Close()
	}()
}

// hello reads and authenticates the first frame.
func (ctl *RelayController) hello(wsConn *websocket.Conn) (relay.Binding, error) {
	_ = wsConn.SetReadDeadline(time.Now().Add(helloWait))
	_, data, err := wsConn.ReadMessage()
	if err != nil {
		return relay.Binding{}, err
	}
	f, err := api.DecodeFrame(data)
	if err != nil || f.Type != api.FrameHello {
		return relay.Binding{}, domain.NewOpError("relay hello", domain.ErrInvalidArgument, "expected hello frame")
	}
	return ctl.Allocator.Authenticate(f.AllocationID, f.ConnectionData, f.Signature)
}

func (ctl *RelayController) readPump(ctx context.Context, c *peerConn, r *relay.Relay) {
	logger := log.With().Str("module", "adapters.ws").Str("peer", string(c.id)).Logger()
	wait := ctl.pongWait()
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Msg("readPump closing")
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		f, err := api.DecodeFrame(data)
		if err != nil || f.Type != api.FrameData {
			logger.Warn().Err(err).Str("type", string(f.Type)).Msg("unexpected frame")
			continue
		}
		pkt := relay.Packet{Kind: relay.PacketData, From: c.id, To: f.To, Payload: f.Payload}
		if err := r.Submit(ctx, pkt); err != nil {
			logger.Info().Err(err).Msg("relay gone")
			return
		}
	}
}
