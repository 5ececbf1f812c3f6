package http_test

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/api"
	lobbyhttp "github.com/dkeye/Lobby/internal/adapters/http"
	"github.com/dkeye/Lobby/internal/adapters/presence"
	"github.com/dkeye/Lobby/internal/adapters/relayclient"
	"github.com/dkeye/Lobby/internal/adapters/ws"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewUnstartedServer(nil)
	addr := srv.Listener.Addr().(*net.TCPAddr)

	cfg := &config.Server{
		Mode:       "test",
		Secret:     "0123456789abcdef0123456789abcdef",
		Store:      config.StoreMemory,
		RateLimit:  100,
		RateWindow: time.Minute,
		ReadLimit:  64 << 10,
		PingPeriod: time.Second,
	}
	relays := relay.NewRelayManager()
	deps := lobbyhttp.Deps{
		Registry:  app.NewRegistry(),
		Rooms:     app.NewMemoryStore(app.SimplePolicy{}),
		Allocator: relay.NewAllocator(addr.IP.String(), addr.Port, 10*time.Minute, relays),
		Relays:    relays,
		Version:   "test",
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv.Config.Handler = lobbyhttp.SetupRouter(ctx, cfg, deps)
	srv.Start()
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv.URL
}

func signIn(t *testing.T, base, name string) (*api.Client, api.AuthResponse) {
	t.Helper()
	c := api.NewClient(base, "", 5*time.Second)
	me, err := c.SignIn(context.Background(), name)
	if err != nil {
		t.Fatalf("sign in %s: %v", name, err)
	}
	return c, me
}

func TestAPI_PresenceRoundTrip(t *testing.T) {
	base := newTestServer(t)
	ctx := context.Background()

	hostAPI, host := signIn(t, base, "Alice")
	guestAPI, guest := signIn(t, base, "Bob")
	hostStore := presence.New(hostAPI)
	guestStore := presence.New(guestAPI)

	room, err := hostStore.CreateRoom(ctx, domain.RoomSpec{Name: "MyLobby", Capacity: 2},
		domain.NewMember(host.PlayerID, domain.Data{domain.KeyReady: domain.Members("false")}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.HostID != host.PlayerID {
		t.Fatalf("host id %q, want %q", room.HostID, host.PlayerID)
	}

	rooms, err := guestStore.QueryJoinableRooms(ctx, domain.RoomFilter{Count: 5})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != room.ID {
		t.Fatalf("expected the new room, got %+v", rooms)
	}

	if _, err := guestStore.JoinRoom(ctx, room.ID, domain.NewMember(guest.PlayerID, domain.Data{domain.KeyReady: domain.Members("false")})); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := guestStore.UpdateMemberData(ctx, room.ID, guest.PlayerID, domain.Data{domain.KeyReady: domain.Members("true")}); err != nil {
		t.Fatalf("ready: %v", err)
	}

	got, err := hostStore.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m, ok := got.Member(guest.PlayerID); !ok || !m.Ready() {
		t.Fatalf("host should see guest ready: %+v", got.Members)
	}

	if _, err := guestStore.UpdateRoomData(ctx, room.ID, domain.Data{"mode": domain.Public("x")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("guest room write: want ErrForbidden, got %v", err)
	}
	if _, err := guestStore.UpdateMemberData(ctx, room.ID, host.PlayerID, domain.Data{domain.KeyReady: domain.Members("true")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign member write: want ErrForbidden, got %v", err)
	}
	if err := hostStore.Heartbeat(ctx, room.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if _, err := hostStore.GetRoom(ctx, "missing"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("missing room: want ErrRoomNotFound, got %v", err)
	}

	if err := hostStore.RemoveMember(ctx, room.ID, host.PlayerID); err != nil {
		t.Fatalf("host leave: %v", err)
	}
	if _, err := guestStore.GetRoom(ctx, room.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("closed room: want ErrRoomNotFound, got %v", err)
	}
}

func TestAPI_RequiresIdentity(t *testing.T) {
	base := newTestServer(t)
	anon := presence.New(api.NewClient(base, "", time.Second))

	_, err := anon.GetRoom(context.Background(), "any")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if domain.Classify(err) != domain.KindConfiguration {
		t.Fatalf("unauthorized should be a configuration error, got %s", domain.Classify(err))
	}
}

func TestAPI_EmptyRoomIDNeverLeavesClient(t *testing.T) {
	// Unroutable base URL: any network call would come back transient.
	c := presence.New(api.NewClient("http://127.0.0.1:1", "token", time.Second))
	if _, err := c.GetRoom(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func nextFrame(t *testing.T, s *ws.Session, typ api.FrameType) api.Frame {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case f, ok := <-s.Frames():
			if !ok {
				t.Fatalf("session closed waiting for %s", typ)
			}
			if f.Type == typ {
				return f
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestAPI_RelayAllocateResolveAndHandoff(t *testing.T) {
	base := newTestServer(t)
	ctx := context.Background()

	hostAPI, _ := signIn(t, base, "Alice")
	guestAPI, _ := signIn(t, base, "Bob")
	hostRelay := relayclient.New(hostAPI)
	guestRelay := relayclient.New(guestAPI)

	alloc, err := hostRelay.Allocate(ctx, 1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := guestRelay.Resolve(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("bogus code: want ErrInvalidCode, got %v", err)
	}
	conn, err := guestRelay.Resolve(ctx, alloc.JoinCode)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := guestRelay.Resolve(ctx, alloc.JoinCode); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("second guest: want ErrRoomFull, got %v", err)
	}

	hostT := ws.NewTransport("ws")
	if err := hostT.Handoff(ctx, domain.HandoffParams{Role: domain.RoleHost, JoinCode: alloc.JoinCode, RoomID: "r1", Conn: alloc.Host}); err != nil {
		t.Fatalf("host handoff: %v", err)
	}
	guestT := ws.NewTransport("ws")
	if err := guestT.Handoff(ctx, domain.HandoffParams{Role: domain.RoleGuest, JoinCode: alloc.JoinCode, RoomID: "r1", Conn: *conn}); err != nil {
		t.Fatalf("guest handoff: %v", err)
	}
	hostS, guestS := hostT.Session(), guestT.Session()
	t.Cleanup(func() {
		guestS.Close()
		hostS.Close()
	})

	joined := nextFrame(t, hostS, api.FramePeerJoined)
	if joined.From != conn.AllocationID || joined.Role != domain.RoleGuest {
		t.Fatalf("unexpected join frame %+v", joined)
	}
	if guestS.Host != alloc.ID {
		t.Fatalf("guest bound to %q, want %q", guestS.Host, alloc.ID)
	}

	if err := guestS.Send("", []byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}
	data := nextFrame(t, hostS, api.FrameData)
	if string(data.Payload) != "ping" || data.From != conn.AllocationID {
		t.Fatalf("unexpected data frame %+v", data)
	}

	if err := hostS.Send(conn.AllocationID, []byte("pong")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := nextFrame(t, guestS, api.FrameData); string(got.Payload) != "pong" {
		t.Fatalf("guest got %q", got.Payload)
	}
}

func TestAPI_RelayRejectsForgedHello(t *testing.T) {
	base := newTestServer(t)
	ctx := context.Background()
	hostAPI, _ := signIn(t, base, "Alice")

	alloc, err := relayclient.New(hostAPI).Allocate(ctx, 1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	forged := alloc.Host
	forged.Key = []byte("not-the-key")

	err = ws.NewTransport("ws").Handoff(ctx, domain.HandoffParams{Role: domain.RoleHost, JoinCode: alloc.JoinCode, RoomID: "r1", Conn: forged})
	if err == nil {
		t.Fatal("forged hello should be rejected")
	}
}
