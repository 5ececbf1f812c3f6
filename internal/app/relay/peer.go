package relay

import (
	"sync/atomic"

	"github.com/dkeye/Lobby/internal/domain"
)

type PeerState int32

const (
	PeerOk PeerState = iota
	PeerDelete
)

type PacketKind uint8

const (
	PacketData PacketKind = iota + 1
	PacketPeerJoined
	PacketPeerLeft
)

// Packet is one unit routed by a relay. An empty To broadcasts to every
// other peer.
type Packet struct {
	Kind    PacketKind
	From    domain.AllocationID
	To      domain.AllocationID
	Payload []byte
}

// Conn is the transport endpoint of a peer. Owned by the adapter; the
// adapter must Close() it.
type Conn interface {
	TrySend(Packet) error
	Close()
}

// Peer is one attached allocation inside a relay.
type Peer struct {
	ID    domain.AllocationID
	Role  domain.Role
	Conn  Conn
	state atomic.Int32 // Zero by default (PeerOk)
}

func NewPeer(id domain.AllocationID, role domain.Role, conn Conn) *Peer {
	return &Peer{ID: id, Role: role, Conn: conn}
}

func (p *Peer) GetState() PeerState {
	return PeerState(p.state.Load())
}

func (p *Peer) MarkDelete() {
	p.state.Store(int32(PeerDelete))
}
