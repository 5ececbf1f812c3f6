package relay

import (
	"context"
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

type RelayManager struct {
	mu     sync.RWMutex
	relays map[domain.AllocationID]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[domain.AllocationID]*Relay),
	}
}

// relayFor returns the relay of host, starting its loop on first use.
func (m *RelayManager) relayFor(ctx context.Context, host domain.AllocationID) *Relay {
	m.mu.RLock()
	r, ok := m.relays[host]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.relays[host]; ok {
		return r
	}
	logger := log.With().
		Str("module", "relay").
		Str("host_allocation", string(host)).
		Logger()

	// The relay outlives the request that created it.
	relayCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r = NewRelay(host, cancel)
	m.relays[host] = r
	logger.Info().Msg("starting relay loop")
	go r.loop(relayCtx, &logger)
	return r
}

// Attach adds a peer to the relay of host and tells the others about it.
func (m *RelayManager) Attach(ctx context.Context, host domain.AllocationID, p *Peer) *Relay {
	r := m.relayFor(ctx, host)
	r.AddPeer(p)
	if err := r.Submit(ctx, Packet{Kind: PacketPeerJoined, From: p.ID, Payload: []byte(p.Role)}); err != nil {
		log.Debug().Err(err).Str("module", "relay").Str("host_allocation", string(host)).Str("peer", string(p.ID)).Msg("peer joined notice dropped")
	}
	log.Info().Str("module", "relay").Str("host_allocation", string(host)).Str("peer", string(p.ID)).Str("role", string(p.Role)).Msg("peer attached")
	return r
}

// Detach removes a peer. When the host itself leaves the relay is stopped.
func (m *RelayManager) Detach(ctx context.Context, host domain.AllocationID, p *Peer) {
	m.mu.RLock()
	r, ok := m.relays[host]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if !r.RemovePeer(p.ID, p.Conn) {
		return
	}
	log.Info().Str("module", "relay").Str("host_allocation", string(host)).Str("peer", string(p.ID)).Msg("peer detached")
	if p.Role == domain.RoleHost {
		m.StopRelay(host)
		return
	}
	if err := r.Submit(ctx, Packet{Kind: PacketPeerLeft, From: p.ID}); err != nil {
		log.Debug().Err(err).Str("module", "relay").Str("host_allocation", string(host)).Str("peer", string(p.ID)).Msg("peer left notice dropped")
	}
}

// StopRelay stops a relay and removes it from the manager.
func (m *RelayManager) StopRelay(host domain.AllocationID) {
	m.mu.Lock()
	r, ok := m.relays[host]
	if ok {
		delete(m.relays, host)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
}

// HasRelay reports whether a relay exists for host.
func (m *RelayManager) HasRelay(host domain.AllocationID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.relays[host]
	return ok
}
