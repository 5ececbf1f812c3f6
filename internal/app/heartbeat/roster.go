package heartbeat

import (
	"context"
	"slices"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Entry is one line of the room roster as seen by the local member.
type Entry struct {
	ID    domain.MemberID
	Name  string
	Ready bool
	Host  bool
}

// Entries projects the members of room into a roster, host first and then
// by join time.
func Entries(room *domain.Room) []Entry {
	if room == nil {
		return nil
	}
	members := slices.Clone(room.Members)
	slices.SortStableFunc(members, func(a, b domain.Member) int {
		switch {
		case room.IsHost(a.ID) && !room.IsHost(b.ID):
			return -1
		case room.IsHost(b.ID) && !room.IsHost(a.ID):
			return 1
		}
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		out = append(out, Entry{
			ID:    m.ID,
			Name:  m.Name(),
			Ready: m.Ready(),
			Host:  room.IsHost(m.ID),
		})
	}
	return out
}

// Roster refreshes the member list of a room and reports changes.
type Roster struct {
	Store    core.PresenceStore
	RoomID   domain.RoomID
	Interval time.Duration
	Timeout  time.Duration
	OnChange func([]Entry)

	last []Entry
}

// Refresh fetches the room once and calls OnChange when the roster differs
// from the previous refresh.
func (r *Roster) Refresh(ctx context.Context) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	room, err := r.Store.GetRoom(ctx, r.RoomID)
	if err != nil {
		return err
	}
	entries := Entries(room)
	if r.last != nil && slices.Equal(entries, r.last) {
		return nil
	}
	r.last = entries
	if r.OnChange != nil {
		r.OnChange(slices.Clone(entries))
	}
	return nil
}

// Run refreshes immediately and then every Interval until ctx is done.
func (r *Roster) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.Debug().Err(err).Str("module", "app.roster").Str("room_id", string(r.RoomID)).Msg("refresh failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
