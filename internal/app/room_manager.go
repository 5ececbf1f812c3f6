package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemoryStore is the in-process core.RoomStore.
type MemoryStore struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomEntry
	policy Policy
	now    func() time.Time
}

var _ core.RoomStore = (*MemoryStore)(nil)

func NewMemoryStore(policy Policy) *MemoryStore {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &MemoryStore{
		rooms:  make(map[domain.RoomID]*roomEntry),
		policy: policy,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Used by tests and the janitor.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *MemoryStore) entry(id domain.RoomID) (*roomEntry, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	s.mu.RLock()
	e, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return e, nil
}

func (s *MemoryStore) Create(_ context.Context, spec domain.RoomSpec, host domain.Member) (*domain.Room, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if host.ID == "" {
		return nil, domain.NewOpError("create room", domain.ErrInvalidArgument, "empty host id")
	}
	now := s.clock()
	host = host.Clone()
	host.Data = domain.Data{}.Merge(host.Data)
	host.JoinedAt = now
	room := &domain.Room{
		ID:            domain.RoomID(uuid.NewString()),
		Name:          spec.Name,
		HostID:        host.ID,
		Capacity:      spec.Capacity,
		IsPrivate:     spec.IsPrivate,
		Data:          domain.Data{}.Merge(spec.Data),
		Members:       []domain.Member{host},
		CreatedAt:     now,
		LastHeartbeat: now,
	}

	s.mu.Lock()
	s.rooms[room.ID] = newRoomEntry(room)
	s.mu.Unlock()

	log.Info().Str("module", "app.store").Str("room_id", string(room.ID)).Str("host_id", string(host.ID)).Int("capacity", room.Capacity).Msg("room created")
	return room.Clone(), nil
}

func (s *MemoryStore) Query(_ context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	entries := make([]*roomEntry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]domain.Room, 0, filter.Count)
	for _, e := range entries {
		r := e.snapshot()
		if r.IsPrivate || r.IsLocked || r.AvailableSlots() < filter.MinAvailableSlots {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > filter.Count {
		out = out[:filter.Count]
	}
	return out, nil
}

func (s *MemoryStore) Join(_ context.Context, id domain.RoomID, m domain.Member) (*domain.Room, error) {
	if m.ID == "" {
		return nil, domain.NewOpError("join room", domain.ErrInvalidArgument, "empty member id")
	}
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.join(s.policy, m, s.clock())
}

func (s *MemoryStore) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (s *MemoryStore) UpdateRoomData(_ context.Context, id domain.RoomID, caller domain.MemberID, data domain.Data) (*domain.Room, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.updateData(caller, data)
}

func (s *MemoryStore) UpdateMemberData(_ context.Context, id domain.RoomID, caller, member domain.MemberID, data domain.Data) (*domain.Member, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.updateMember(caller, member, data)
}

func (s *MemoryStore) RemoveMember(_ context.Context, id domain.RoomID, caller, member domain.MemberID) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	closeRoom, err := e.removeMember(caller, member)
	if err != nil {
		return err
	}
	if closeRoom {
		s.drop(id)
		log.Info().Str("module", "app.store").Str("room_id", string(id)).Msg("host left, room closed")
	}
	return nil
}

func (s *MemoryStore) Heartbeat(_ context.Context, id domain.RoomID, caller domain.MemberID) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	return e.heartbeat(caller, s.clock())
}

func (s *MemoryStore) Delete(_ context.Context, id domain.RoomID, caller domain.MemberID) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	if r := e.snapshot(); !r.IsHost(caller) {
		return domain.ErrForbidden
	}
	s.drop(id)
	log.Info().Str("module", "app.store").Str("room_id", string(id)).Msg("room deleted")
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, now time.Time, ttl time.Duration) ([]domain.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomID
	for id, e := range s.rooms {
		if e.expired(now, ttl) {
			delete(s.rooms, id)
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *MemoryStore) drop(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}
