package orch

import (
	"context"

	"github.com/dkeye/Lobby/internal/app/readiness"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// relayCapacity is the number of guest connections to allocate for.
func relayCapacity(room *domain.Room, configured int) int {
	n := configured - 1
	if room != nil {
		n = room.Capacity - 1
	}
	if n < 1 {
		n = 1
	}
	return n
}

// electHost allocates a relay, publishes its join code and hands off as
// host. Allocation and publish failures return to WaitingForReady so the
// next ReadyAsHost poll retries.
func (o *Orchestrator) electHost(ctx context.Context, roomID domain.RoomID, s readiness.Snapshot) {
	o.setState(StateElectingHost)

	alloc := o.pending
	if alloc == nil {
		o.setState(StateAllocatingRelay)
		cctx, cancel := o.call(ctx)
		a, err := o.Allocator.Allocate(cctx, relayCapacity(s.Room, o.Config.MaxPlayers))
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("room_id", string(roomID)).Msg("relay allocation failed, retrying next poll")
			o.setState(StateWaitingForReady)
			return
		}
		// Kept until published so a failed publish does not mint another one.
		o.pending = a
		log.Info().
			Str("module", "orch").
			Str("room_id", string(roomID)).
			Str("allocation_id", string(a.ID)).
			Msg("relay allocated")
		alloc = a
	}

	data := domain.Data{
		domain.KeyRelayStarted:  domain.Public(domain.ValueTrue),
		domain.KeyRelayJoinCode: domain.Public(alloc.JoinCode),
	}
	cctx, cancel := o.call(ctx)
	_, err := o.Store.UpdateRoomData(cctx, roomID, data)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room_id", string(roomID)).Msg("join code publish failed, retrying next poll")
		o.setState(StateWaitingForReady)
		return
	}

	o.handoff(ctx, domain.HandoffParams{
		Role:     domain.RoleHost,
		JoinCode: alloc.JoinCode,
		RoomID:   roomID,
		Conn:     alloc.Host,
	})
}
