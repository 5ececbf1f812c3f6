package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// peerConn is the websocket endpoint of one relay peer.
// It implements relay.Conn.
type peerConn struct {
	id   domain.AllocationID
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

var _ relay.Conn = (*peerConn)(nil)

func newPeerConn(id domain.AllocationID, conn *websocket.Conn) *peerConn {
	return &peerConn{
		id:   id,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// frameOf maps a relay packet onto its wire frame.
func frameOf(p relay.Packet) api.Frame {
	f := api.Frame{From: p.From, To: p.To, Payload: p.Payload}
	switch p.Kind {
	case relay.PacketPeerJoined:
		f.Type = api.FramePeerJoined
		f.Role = domain.Role(p.Payload)
		f.Payload = nil
	case relay.PacketPeerLeft:
		f.Type = api.FramePeerLeft
	default:
		f.Type = api.FrameData
	}
	return f
}

func (c *peerConn) TrySend(p relay.Packet) error {
	return c.trySendFrame(frameOf(p))
}

func (c *peerConn) trySendFrame(f api.Frame) error {
	b, err := api.EncodeFrame(f)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *peerConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump pumps frames to the network and pings on pingPeriod.
// Adapter owns transport resources and closes them on exit.
func (c *peerConn) writePump(ctx context.Context, pingPeriod time.Duration) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Str("peer", string(c.id)).Msg("write error")
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
