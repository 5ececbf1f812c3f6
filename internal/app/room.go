package app

import (
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomEntry is a threadsafe in-memory room record.
// Readers always get clones; the record itself never escapes.
type roomEntry struct {
	mu   sync.RWMutex
	room *domain.Room
}

func newRoomEntry(room *domain.Room) *roomEntry {
	return &roomEntry{room: room}
}

func (e *roomEntry) snapshot() *domain.Room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.room.Clone()
}

func (e *roomEntry) join(p Policy, m domain.Member, now time.Time) (*domain.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch action := p.Admit(e.room, m.ID); action {
	case AlreadyMember:
		for i := range e.room.Members {
			if e.room.Members[i].ID == m.ID {
				e.room.Members[i].Data = e.room.Members[i].Data.Merge(m.Data)
			}
		}
		log.Debug().Str("module", "app.room").Str("room_id", string(e.room.ID)).Str("member_id", string(m.ID)).Msg("member rejoined")
	case Admit:
		m = m.Clone()
		m.Data = domain.Data{}.Merge(m.Data)
		m.JoinedAt = now
		e.room.Members = append(e.room.Members, m)
		log.Info().Str("module", "app.room").Str("room_id", string(e.room.ID)).Str("member_id", string(m.ID)).Int("members", len(e.room.Members)).Msg("member added")
	default:
		return nil, AdmissionError(action)
	}
	return e.room.Clone(), nil
}

func (e *roomEntry) updateData(caller domain.MemberID, data domain.Data) (*domain.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.room.IsHost(caller) {
		return nil, domain.ErrForbidden
	}
	e.room.Data = e.room.Data.Merge(data)
	return e.room.Clone(), nil
}

func (e *roomEntry) updateMember(caller, id domain.MemberID, data domain.Data) (*domain.Member, error) {
	if caller != id {
		return nil, domain.ErrForbidden
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.room.Members {
		if e.room.Members[i].ID == id {
			e.room.Members[i].Data = e.room.Members[i].Data.Merge(data)
			m := e.room.Members[i].Clone()
			return &m, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

// removeMember reports whether the room must be closed (the host left).
func (e *roomEntry) removeMember(caller, id domain.MemberID) (closeRoom bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != id && !e.room.IsHost(caller) {
		return false, domain.ErrForbidden
	}
	idx := -1
	for i := range e.room.Members {
		if e.room.Members[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, domain.ErrMemberNotFound
	}
	e.room.Members = append(e.room.Members[:idx], e.room.Members[idx+1:]...)
	log.Info().Str("module", "app.room").Str("room_id", string(e.room.ID)).Str("member_id", string(id)).Msg("member removed")
	if e.room.IsHost(id) {
		e.room.IsLocked = true
		return true, nil
	}
	return false, nil
}

func (e *roomEntry) heartbeat(caller domain.MemberID, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.room.HasMember(caller) {
		return domain.ErrForbidden
	}
	e.room.LastHeartbeat = now
	return nil
}

func (e *roomEntry) expired(now time.Time, ttl time.Duration) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return now.Sub(e.room.LastHeartbeat) > ttl
}
