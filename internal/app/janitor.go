package app

import (
	"context"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/rs/zerolog/log"
)

// Janitor drops rooms whose host stopped heartbeating.
type Janitor struct {
	Store  core.RoomStore
	TTL    time.Duration
	Period time.Duration
	Now    func() time.Time
}

func (j *Janitor) Run(ctx context.Context) {
	period := j.Period
	if period <= 0 {
		period = 5 * time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.janitor").Msg("janitor stopped")
			return
		case <-t.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass and returns how many rooms were removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	ids, err := j.Store.Expire(ctx, now(), j.TTL)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.janitor").Msg("expire failed")
		return 0
	}
	for _, id := range ids {
		log.Info().Str("module", "app.janitor").Str("room_id", string(id)).Msg("room expired")
	}
	return len(ids)
}
