// Package core holds the collaborator contracts the bootstrap core is written
// against. Implementations live in adapters (network) and app (in-process).
package core

import (
	"context"

	"github.com/dkeye/Lobby/internal/domain"
)

// PresenceStore is the client-side view of the room presence service.
// Every call is single-shot. Store-side failures surface as domain sentinels
// (ErrRoomNotFound, ErrRoomFull, ErrRoomClosed, ErrTransient); misuse such as
// an empty room id surfaces as domain.ErrInvalidArgument without a round trip.
type PresenceStore interface {
	CreateRoom(ctx context.Context, spec domain.RoomSpec, self domain.Member) (*domain.Room, error)
	QueryJoinableRooms(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error)
	JoinRoom(ctx context.Context, roomID domain.RoomID, self domain.Member) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error)
	UpdateRoomData(ctx context.Context, roomID domain.RoomID, data domain.Data) (*domain.Room, error)
	UpdateMemberData(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID, data domain.Data) (*domain.Member, error)
	RemoveMember(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID) error
	Heartbeat(ctx context.Context, roomID domain.RoomID) error
}

// RelayAllocator mints and resolves relay allocations. Allocate is not
// idempotent: two calls produce two independent allocations.
type RelayAllocator interface {
	Allocate(ctx context.Context, maxConnections int) (*domain.Allocation, error)
	Resolve(ctx context.Context, joinCode string) (*domain.ConnParams, error)
}

// TransportHandoff starts the network session from final connection
// parameters. The bootstrap core calls it at most once per run.
type TransportHandoff interface {
	Handoff(ctx context.Context, params domain.HandoffParams) error
}

// Prefs is the process-local key/value state handed to the next stage.
type Prefs interface {
	GetString(key string) string
	SetString(key, value string)
	GetBool(key string) bool
	SetBool(key string, value bool)
	Delete(key string)
	Save() error
}

// Well-known prefs keys.
const (
	PrefCurrentRoomID = "CurrentRoomId"
	PrefJoinCode      = "JoinCode"
	PrefIsHost        = "IsHost"
	PrefPlayerName    = "PlayerName"
	PrefPlayerID      = "PlayerId"
	PrefPlayerToken   = "PlayerToken"
)
