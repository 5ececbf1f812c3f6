package readiness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

func member(id domain.MemberID, ready string) domain.Member {
	data := domain.Data{domain.KeyName: domain.Public(string(id))}
	if ready != "" {
		data[domain.KeyReady] = domain.Members(ready)
	}
	return domain.NewMember(id, data)
}

func twoPlayerRoom(hostReady, guestReady string) *domain.Room {
	return &domain.Room{
		ID:       "r1",
		HostID:   "H",
		Capacity: 2,
		Members:  []domain.Member{member("H", hostReady), member("G", guestReady)},
	}
}

func TestAllReady(t *testing.T) {
	cases := []struct {
		name string
		room *domain.Room
		want bool
	}{
		{"nil room", nil, false},
		{"empty room", &domain.Room{HostID: "H"}, false},
		{"both ready", twoPlayerRoom("true", "true"), true},
		{"host not ready", twoPlayerRoom("false", "true"), false},
		{"missing key is not ready", twoPlayerRoom("true", ""), false},
		{"only literal true counts", twoPlayerRoom("true", "True"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AllReady(tc.room); got != tc.want {
				t.Fatalf("AllReady = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluate_HostNotReady(t *testing.T) {
	room := twoPlayerRoom("false", "true")
	for _, self := range []domain.MemberID{"H", "G"} {
		if got := Evaluate(room, self).Outcome; got != NotReady {
			t.Fatalf("%s: outcome = %s, want not_ready", self, got)
		}
	}
}

func TestEvaluate_BothReady(t *testing.T) {
	room := twoPlayerRoom("true", "true")
	if got := Evaluate(room, "H").Outcome; got != ReadyAsHost {
		t.Fatalf("host outcome = %s", got)
	}
	if got := Evaluate(room, "G").Outcome; got != ReadyAsGuest {
		t.Fatalf("guest outcome = %s", got)
	}
}

func TestEvaluate_RelayStartedVisibleWhileNotReady(t *testing.T) {
	room := twoPlayerRoom("true", "false")
	room.Data = domain.Data{
		domain.KeyRelayStarted:  domain.Public(domain.ValueTrue),
		domain.KeyRelayJoinCode: domain.Public("ABC123"),
	}
	s := Evaluate(room, "G")
	if s.Outcome != NotReady {
		t.Fatalf("outcome = %s", s.Outcome)
	}
	if !s.RelayStarted || s.JoinCode != "ABC123" {
		t.Fatalf("relay fields not reported: %+v", s)
	}
}

func TestEvaluate_AbsentSelfIsNotReady(t *testing.T) {
	s := Evaluate(twoPlayerRoom("true", "true"), "X")
	if s.Outcome != NotReady {
		t.Fatalf("outcome = %s", s.Outcome)
	}
	if !errors.Is(s.Err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", s.Err)
	}
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	room := twoPlayerRoom("true", "true")
	before := room.Clone()

	a := Evaluate(room, "H")
	b := Evaluate(room, "H")
	if a.Outcome != b.Outcome || a.IsHost != b.IsHost || a.RelayStarted != b.RelayStarted {
		t.Fatalf("outcomes differ: %+v vs %+v", a, b)
	}
	if len(room.Members) != len(before.Members) || room.Members[0].Ready() != before.Members[0].Ready() {
		t.Fatalf("room was mutated")
	}

	// The snapshot owns its copy.
	a.Room.Members[0].Data[domain.KeyReady] = domain.Members(domain.ValueFalse)
	if !room.Members[0].Ready() {
		t.Fatalf("snapshot shares member data with the input")
	}
}

type fakeStore struct {
	core.PresenceStore

	mu    sync.Mutex
	room  *domain.Room
	errs  []error
	calls int
}

func (f *fakeStore) GetRoom(_ context.Context, _ domain.RoomID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.room.Clone(), nil
}

func (f *fakeStore) setRoom(r *domain.Room) {
	f.mu.Lock()
	f.room = r
	f.mu.Unlock()
}

func TestPoll_ReturnsStoreError(t *testing.T) {
	store := &fakeStore{room: twoPlayerRoom("true", "true"), errs: []error{domain.ErrRoomNotFound}}
	a := &Aggregator{Store: store, RoomID: "r1", Self: "H"}

	s := a.Poll(context.Background())
	if s.Outcome != NotReady || !errors.Is(s.Err, domain.ErrRoomNotFound) {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s = a.Poll(context.Background()); s.Outcome != ReadyAsHost {
		t.Fatalf("second poll outcome = %s", s.Outcome)
	}
}

func TestRun_SkipsTransientAndObservesLaterWrites(t *testing.T) {
	store := &fakeStore{
		room: twoPlayerRoom("true", "true"),
		errs: []error{domain.ErrTransient, domain.ErrTransient},
	}
	a := &Aggregator{Store: store, RoomID: "r1", Self: "G", Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Snapshot)
	done := make(chan struct{})
	go func() {
		a.Run(ctx, out)
		close(done)
	}()

	first := recv(t, out)
	if first.Err != nil || first.Outcome != ReadyAsGuest {
		t.Fatalf("first emitted snapshot %+v", first)
	}
	if first.RelayStarted {
		t.Fatalf("relay not yet published")
	}

	published := twoPlayerRoom("true", "true")
	published.Data = domain.Data{
		domain.KeyRelayStarted:  domain.Public(domain.ValueTrue),
		domain.KeyRelayJoinCode: domain.Public("ABC123"),
	}
	store.setRoom(published)

	// The write becomes visible within a bounded number of polls.
	for i := 0; i < 10; i++ {
		s := recv(t, out)
		if s.RelayStarted {
			if s.JoinCode != "ABC123" {
				t.Fatalf("join code = %q", s.JoinCode)
			}
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatalf("Run did not stop after cancel")
			}
			return
		}
	}
	t.Fatalf("relay_started never observed")
}

func recv(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot received")
		return Snapshot{}
	}
}
