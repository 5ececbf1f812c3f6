package core

import (
	"context"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

// RoomStore is the server-side persistence behind the presence API.
// caller is the authenticated member issuing the request; implementations
// enforce host-only and owner-only writes with domain.ErrForbidden.
type RoomStore interface {
	Create(ctx context.Context, spec domain.RoomSpec, host domain.Member) (*domain.Room, error)
	Query(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error)
	Join(ctx context.Context, id domain.RoomID, m domain.Member) (*domain.Room, error)
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	UpdateRoomData(ctx context.Context, id domain.RoomID, caller domain.MemberID, data domain.Data) (*domain.Room, error)
	UpdateMemberData(ctx context.Context, id domain.RoomID, caller, member domain.MemberID, data domain.Data) (*domain.Member, error)
	RemoveMember(ctx context.Context, id domain.RoomID, caller, member domain.MemberID) error
	Heartbeat(ctx context.Context, id domain.RoomID, caller domain.MemberID) error
	Delete(ctx context.Context, id domain.RoomID, caller domain.MemberID) error
	Expire(ctx context.Context, now time.Time, ttl time.Duration) ([]domain.RoomID, error)
}

// RoomInfo is the listing view of a room.
type RoomInfo struct {
	ID             domain.RoomID   `json:"id"`
	Name           string          `json:"name"`
	HostID         domain.MemberID `json:"host_id"`
	MemberCount    int             `json:"member_count"`
	AvailableSlots int             `json:"available_slots"`
	RelayStarted   bool            `json:"relay_started"`
}

func InfoOf(r *domain.Room) RoomInfo {
	return RoomInfo{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		MemberCount:    len(r.Members),
		AvailableSlots: r.AvailableSlots(),
		RelayStarted:   r.RelayStarted(),
	}
}
