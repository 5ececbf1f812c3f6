package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/domain"
)

// newTestStore needs LOBBY_TEST_POSTGRES_DSN pointing at a disposable database.
func newTestStore(t *testing.T) *RoomStore {
	t.Helper()
	dsn := os.Getenv("LOBBY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LOBBY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{DSN: dsn, MaxConns: 8, ApplicationName: "lobby-test"})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewRoomStore(pool, app.SimplePolicy{})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE lobby_rooms CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestRoomStoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.Create(ctx, domain.RoomSpec{Name: "MyLobby", Capacity: 2, Data: domain.Data{"mode": domain.Public("ffa")}},
		domain.NewMember("host", domain.Data{"ready": domain.Members("false")}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Join(ctx, room.ID, domain.NewMember("guest", nil)); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join(ctx, room.ID, domain.NewMember("late", nil)); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	if _, err := s.UpdateRoomData(ctx, room.ID, "guest", domain.Data{"x": domain.Public("1")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("guest wrote room data: %v", err)
	}
	if _, err := s.UpdateRoomData(ctx, room.ID, "host", domain.Data{"relay_started": domain.Public("true")}); err != nil {
		t.Fatalf("update room: %v", err)
	}
	if _, err := s.UpdateMemberData(ctx, room.ID, "guest", "guest", domain.Data{"ready": domain.Members("true")}); err != nil {
		t.Fatalf("update member: %v", err)
	}

	got, err := s.Get(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.RelayStarted() || len(got.Members) != 2 || got.Members[0].ID != "host" {
		t.Fatalf("unexpected room: %+v", got)
	}
	if m, _ := got.Member("guest"); !m.Ready() {
		t.Fatal("guest should be ready")
	}

	if err := s.Heartbeat(ctx, room.ID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger heartbeat: %v", err)
	}
	if err := s.RemoveMember(ctx, room.ID, "host", "host"); err != nil {
		t.Fatalf("host leave: %v", err)
	}
	if _, err := s.Get(ctx, room.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("room should be gone, got %v", err)
	}
	if err := s.Heartbeat(ctx, room.ID, "guest"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("heartbeat on closed room: %v", err)
	}
}

func TestRoomStoreConcurrentJoinsRespectCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.Create(ctx, domain.RoomSpec{Name: "race", Capacity: 3}, domain.NewMember("host", nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ids := []domain.MemberID{"a", "b", "c", "d", "e"}
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.MemberID) {
			defer wg.Done()
			if _, err := s.Join(ctx, room.ID, domain.NewMember(id, nil)); err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if joined != 2 {
		t.Fatalf("expected 2 joins to succeed, got %d", joined)
	}
}

func TestRoomStoreQueryAndExpire(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	open, err := s.Create(ctx, domain.RoomSpec{Name: "open", Capacity: 4}, domain.NewMember("h1", nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, domain.RoomSpec{Name: "hidden", Capacity: 4, IsPrivate: true}, domain.NewMember("h2", nil)); err != nil {
		t.Fatalf("create private: %v", err)
	}

	rooms, err := s.Query(ctx, domain.RoomFilter{Count: 10, MinAvailableSlots: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != open.ID {
		t.Fatalf("expected only the public room, got %+v", rooms)
	}

	expired, err := s.Expire(ctx, time.Now().Add(time.Hour), time.Minute)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected both rooms expired, got %v", expired)
	}
}
