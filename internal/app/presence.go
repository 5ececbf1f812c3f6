package app

import (
	"context"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Presence is the presence API of one authenticated caller over a
// RoomStore. Every room it returns is projected for that caller.
type Presence struct {
	Store  core.RoomStore
	Caller domain.MemberID
}

var _ core.PresenceStore = Presence{}

func NewPresence(store core.RoomStore, caller domain.MemberID) Presence {
	return Presence{Store: store, Caller: caller}
}

func (p Presence) view(r *domain.Room, err error) (*domain.Room, error) {
	if err != nil {
		return nil, err
	}
	return r.ViewFor(p.Caller), nil
}

func (p Presence) CreateRoom(ctx context.Context, spec domain.RoomSpec, self domain.Member) (*domain.Room, error) {
	if self.ID != p.Caller {
		return nil, domain.ErrForbidden
	}
	return p.view(p.Store.Create(ctx, spec, self))
}

func (p Presence) QueryJoinableRooms(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	rooms, err := p.Store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i] = *rooms[i].ViewFor(p.Caller)
	}
	return rooms, nil
}

func (p Presence) JoinRoom(ctx context.Context, roomID domain.RoomID, self domain.Member) (*domain.Room, error) {
	if self.ID != p.Caller {
		return nil, domain.ErrForbidden
	}
	return p.view(p.Store.Join(ctx, roomID, self))
}

func (p Presence) GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error) {
	return p.view(p.Store.Get(ctx, roomID))
}

func (p Presence) UpdateRoomData(ctx context.Context, roomID domain.RoomID, data domain.Data) (*domain.Room, error) {
	return p.view(p.Store.UpdateRoomData(ctx, roomID, p.Caller, data))
}

func (p Presence) UpdateMemberData(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID, data domain.Data) (*domain.Member, error) {
	return p.Store.UpdateMemberData(ctx, roomID, p.Caller, memberID, data)
}

func (p Presence) RemoveMember(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID) error {
	return p.Store.RemoveMember(ctx, roomID, p.Caller, memberID)
}

func (p Presence) Heartbeat(ctx context.Context, roomID domain.RoomID) error {
	return p.Store.Heartbeat(ctx, roomID, p.Caller)
}
