package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Lobby/internal/app/readiness"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// resolveTerminal reports resolve errors that will not go away by retrying.
func resolveTerminal(err error) bool {
	switch domain.Classify(err) {
	case domain.KindAllocatorFailure, domain.KindConfiguration:
		return true
	}
	return errors.Is(err, domain.ErrRoomFull)
}

// resolveJoin turns the published join code into guest parameters and hands
// off. A missing code keeps waiting since the write may not be visible yet.
func (o *Orchestrator) resolveJoin(ctx context.Context, roomID domain.RoomID, s readiness.Snapshot) {
	if s.JoinCode == "" {
		log.Info().
			Err(domain.ErrJoinCodeMissing).
			Str("module", "orch").
			Str("room_id", string(roomID)).
			Msg("relay started without a visible join code, waiting")
		return
	}

	o.setState(StateResolvingJoinCode)
	cctx, cancel := o.call(ctx)
	conn, err := o.Allocator.Resolve(cctx, s.JoinCode)
	cancel()
	switch {
	case err == nil:
	case resolveTerminal(err):
		o.fail(err)
		return
	default:
		log.Warn().Err(err).Str("module", "orch").Str("room_id", string(roomID)).Msg("join code resolve failed, retrying next poll")
		o.setState(StateWaitingForReady)
		return
	}

	o.handoff(ctx, domain.HandoffParams{
		Role:     domain.RoleGuest,
		JoinCode: s.JoinCode,
		RoomID:   roomID,
		Conn:     *conn,
	})
}
