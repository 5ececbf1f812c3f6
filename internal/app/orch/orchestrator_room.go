package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// selfMember is the member record this client joins or creates rooms with.
func (o *Orchestrator) selfMember() domain.Member {
	return domain.NewMember(o.Self.ID, domain.Data{
		domain.KeyName:  domain.Public(o.Self.Name),
		domain.KeyReady: domain.Members(domain.ValueFalse),
	})
}

// lostJoinRace reports errors that mean another client got the slot or the
// room went away between query and join.
func lostJoinRace(err error) bool {
	return errors.Is(err, domain.ErrRoomFull) ||
		errors.Is(err, domain.ErrRoomNotFound) ||
		errors.Is(err, domain.ErrRoomClosed)
}

// findOrCreate joins the configured room, or the first joinable one, or
// creates a new room with this client as host.
func (o *Orchestrator) findOrCreate(ctx context.Context) (*domain.Room, error) {
	self := o.selfMember()

	if o.Config.RoomID != "" {
		cctx, cancel := o.call(ctx)
		defer cancel()
		room, err := o.Store.JoinRoom(cctx, o.Config.RoomID, self)
		if err != nil {
			return nil, err
		}
		log.Info().Str("module", "orch").Str("room_id", string(room.ID)).Msg("joined room by id")
		return room, nil
	}

	var lastErr error
	for attempt := 1; attempt <= o.Config.JoinAttempts; attempt++ {
		room, err := o.quickJoin(ctx, self)
		switch {
		case err == nil && room != nil:
			return room, nil
		case err == nil:
			return o.createRoom(ctx, self)
		case lostJoinRace(err):
			log.Info().Err(err).Str("module", "orch").Int("attempt", attempt).Msg("lost join race, searching again")
		case domain.Classify(err) == domain.KindStoreTransient:
			log.Warn().Err(err).Str("module", "orch").Int("attempt", attempt).Msg("room search failed")
		default:
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.Config.PollInterval):
		}
	}
	if domain.Classify(lastErr) == domain.KindStoreTransient {
		return nil, lastErr
	}
	return o.createRoom(ctx, self)
}

// quickJoin queries one room with a free slot and joins it. A nil room and
// nil error mean nothing was joinable.
func (o *Orchestrator) quickJoin(ctx context.Context, self domain.Member) (*domain.Room, error) {
	qctx, cancel := o.call(ctx)
	rooms, err := o.Store.QueryJoinableRooms(qctx, domain.RoomFilter{MinAvailableSlots: 1, Count: 1})
	cancel()
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}

	jctx, cancel := o.call(ctx)
	defer cancel()
	room, err := o.Store.JoinRoom(jctx, rooms[0].ID, self)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room_id", string(room.ID)).Msg("joined room")
	return room, nil
}

func (o *Orchestrator) createRoom(ctx context.Context, self domain.Member) (*domain.Room, error) {
	spec := domain.RoomSpec{
		Name:      o.Config.RoomName,
		Capacity:  o.Config.MaxPlayers,
		IsPrivate: o.Config.Private,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	cctx, cancel := o.call(ctx)
	defer cancel()
	room, err := o.Store.CreateRoom(cctx, spec, self)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "orch").
		Str("room_id", string(room.ID)).
		Int("capacity", room.Capacity).
		Msg("created room as host")
	return room, nil
}
