// Package readiness polls a room and reduces it to a readiness outcome for
// the local member.
package readiness

import (
	"context"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

type Outcome int

const (
	NotReady Outcome = iota
	ReadyAsHost
	ReadyAsGuest
)

func (o Outcome) String() string {
	switch o {
	case NotReady:
		return "not_ready"
	case ReadyAsHost:
		return "ready_as_host"
	case ReadyAsGuest:
		return "ready_as_guest"
	default:
		return "unknown"
	}
}

// Snapshot is the immutable result of one poll. Room is a private copy and
// may be nil when the poll failed.
type Snapshot struct {
	Outcome      Outcome
	IsHost       bool
	RelayStarted bool
	JoinCode     string
	Room         *domain.Room
	Err          error
	At           time.Time
}

// AllReady reports whether the room has members and every one of them has
// ready set to "true".
func AllReady(room *domain.Room) bool {
	if room == nil || len(room.Members) == 0 {
		return false
	}
	for _, m := range room.Members {
		if !m.Ready() {
			return false
		}
	}
	return true
}

// Evaluate computes the outcome of room for self. It has no side effects.
func Evaluate(room *domain.Room, self domain.MemberID) Snapshot {
	if room == nil {
		return Snapshot{Outcome: NotReady}
	}
	s := Snapshot{
		Outcome:      NotReady,
		IsHost:       room.IsHost(self),
		RelayStarted: room.RelayStarted(),
		JoinCode:     room.JoinCode(),
		Room:         room.Clone(),
	}
	// A member that is no longer listed is not ready, whatever the others say.
	if !room.HasMember(self) {
		s.Err = domain.ErrMemberNotFound
		return s
	}
	if !AllReady(room) {
		return s
	}
	if s.IsHost {
		s.Outcome = ReadyAsHost
	} else {
		s.Outcome = ReadyAsGuest
	}
	return s
}

// Aggregator polls one room at a fixed interval.
type Aggregator struct {
	Store    core.PresenceStore
	RoomID   domain.RoomID
	Self     domain.MemberID
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
}

// Poll fetches the room once and evaluates it. Store errors are returned in
// the snapshot with a NotReady outcome.
func (a *Aggregator) Poll(ctx context.Context) Snapshot {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	room, err := a.Store.GetRoom(ctx, a.RoomID)
	if err != nil {
		return Snapshot{Outcome: NotReady, Err: err, At: now()}
	}
	s := Evaluate(room, a.Self)
	s.At = now()
	return s
}

// Run polls immediately and then every Interval, sending each useful
// snapshot to out. Transient failures are logged and skipped. Run returns
// when ctx is done.
func (a *Aggregator) Run(ctx context.Context, out chan<- Snapshot) {
	logger := log.With().
		Str("module", "app.readiness").
		Str("room_id", string(a.RoomID)).
		Str("member_id", string(a.Self)).
		Logger()

	interval := a.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		s := a.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		switch domain.Classify(s.Err) {
		case domain.KindNone:
			logger.Debug().
				Str("outcome", s.Outcome.String()).
				Bool("relay_started", s.RelayStarted).
				Msg("poll")
			a.emit(ctx, out, s)
		case domain.KindStoreTransient:
			logger.Warn().Err(s.Err).Msg("poll failed, retrying next tick")
		default:
			logger.Info().Err(s.Err).Msg("poll: not ready")
			a.emit(ctx, out, s)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *Aggregator) emit(ctx context.Context, out chan<- Snapshot, s Snapshot) {
	select {
	case out <- s:
	case <-ctx.Done():
	}
}
