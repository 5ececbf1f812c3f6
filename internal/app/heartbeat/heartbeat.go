// Package heartbeat keeps a hosted room alive and tracks its roster.
package heartbeat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// Manager sends periodic heartbeats for a room while active. It stops for
// good after the store reports the room gone.
type Manager struct {
	Store    core.PresenceStore
	RoomID   domain.RoomID
	Interval time.Duration
	Timeout  time.Duration

	active   atomic.Bool
	lost     chan struct{}
	lostOnce sync.Once
}

func NewManager(store core.PresenceStore, roomID domain.RoomID, interval, timeout time.Duration) *Manager {
	return &Manager{
		Store:    store,
		RoomID:   roomID,
		Interval: interval,
		Timeout:  timeout,
		lost:     make(chan struct{}),
	}
}

func (m *Manager) Activate()    { m.active.Store(true) }
func (m *Manager) Deactivate()  { m.active.Store(false) }
func (m *Manager) Active() bool { return m.active.Load() }

// Lost is closed when a heartbeat found the room missing.
func (m *Manager) Lost() <-chan struct{} { return m.lost }

// Beat sends one heartbeat. It reports whether the loop should continue.
func (m *Manager) Beat(ctx context.Context) bool {
	if !m.Active() {
		return false
	}
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	err := m.Store.Heartbeat(ctx, m.RoomID)
	switch {
	case err == nil:
		log.Debug().Str("module", "app.heartbeat").Str("room_id", string(m.RoomID)).Msg("heartbeat")
		return true
	case errors.Is(err, domain.ErrRoomNotFound):
		log.Warn().Str("module", "app.heartbeat").Str("room_id", string(m.RoomID)).Msg("room gone, stopping heartbeat")
		m.Deactivate()
		m.lostOnce.Do(func() { close(m.lost) })
		return false
	default:
		log.Warn().Err(err).Str("module", "app.heartbeat").Str("room_id", string(m.RoomID)).Msg("heartbeat failed, retrying next tick")
		return true
	}
}

// Run beats every Interval until ctx is done, the manager is deactivated,
// or the room is gone.
func (m *Manager) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !m.Beat(ctx) {
				log.Info().Str("module", "app.heartbeat").Str("room_id", string(m.RoomID)).Msg("heartbeat stopped")
				return
			}
		}
	}
}
