package relay

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog"
)

var ErrRelayStopped = errors.New("relay stopped")

// Relay fans packets out between the peers of one host allocation.
// A single loop goroutine preserves per-relay ordering.
type Relay struct {
	Host domain.AllocationID

	mu    sync.RWMutex
	peers map[domain.AllocationID]*Peer

	in     chan Packet
	done   chan struct{}
	cancel context.CancelFunc
}

func NewRelay(host domain.AllocationID, cancel context.CancelFunc) *Relay {
	return &Relay{
		Host:   host,
		peers:  make(map[domain.AllocationID]*Peer),
		in:     make(chan Packet, 64),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Submit queues pkt for forwarding. It blocks while the queue is full.
func (r *Relay) Submit(ctx context.Context, pkt Packet) error {
	select {
	case <-r.done:
		return ErrRelayStopped
	case <-ctx.Done():
		return ctx.Err()
	case r.in <- pkt:
		return nil
	}
}

// loop forwards queued packets until ctx is cancelled.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, closing all peers")
			r.closeAll()
			return
		case pkt := <-r.in:
			r.forward(pkt, logger)
		}
	}
}

func (r *Relay) forward(pkt Packet, logger *zerolog.Logger) {
	snapshot := make(map[domain.AllocationID]*Peer, len(r.peers))
	r.mu.RLock()
	maps.Copy(snapshot, r.peers)
	r.mu.RUnlock()

	dirty := make([]domain.AllocationID, 0, len(snapshot))
	for dst, p := range snapshot {
		if dst == pkt.From || (pkt.To != "" && pkt.To != dst) {
			continue
		}
		switch p.GetState() {
		case PeerDelete:
			dirty = append(dirty, dst)
		case PeerOk:
			if err := p.Conn.TrySend(pkt); err != nil {
				logger.Error().
					Err(err).
					Str("dst", string(dst)).
					Msg("relay send error, marking peer as delete")
				p.MarkDelete()
				dirty = append(dirty, dst)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []domain.AllocationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range dirty {
		if p, ok := r.peers[id]; ok {
			p.Conn.Close()
			delete(r.peers, id)
		}
	}
}

func (r *Relay) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.peers {
		p.MarkDelete()
		p.Conn.Close()
		delete(r.peers, id)
	}
}

// AddPeer attaches p, replacing a previous connection of the same allocation.
func (r *Relay) AddPeer(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.peers[p.ID]; ok {
		old.MarkDelete()
		old.Conn.Close()
	}
	r.peers[p.ID] = p
}

// RemovePeer detaches the peer with id if conn is still its connection.
// It reports whether anything was removed.
func (r *Relay) RemovePeer(id domain.AllocationID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[id]
	if !ok || p.Conn != conn {
		return false
	}
	p.MarkDelete()
	delete(r.peers, id)
	return true
}

func (r *Relay) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
