package domain

import "time"

type RoomID string

// Room is a presence-store record. HostID is fixed at creation.
type Room struct {
	ID            RoomID    `json:"id"`
	Name          string    `json:"name"`
	HostID        MemberID  `json:"host_id"`
	Capacity      int       `json:"capacity"`
	IsPrivate     bool      `json:"is_private"`
	IsLocked      bool      `json:"is_locked"`
	Data          Data      `json:"data,omitempty"`
	Members       []Member  `json:"members"`
	CreatedAt     time.Time `json:"created_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// RoomSpec carries the caller-chosen attributes of a new room.
type RoomSpec struct {
	Name      string
	Capacity  int
	IsPrivate bool
	Data      Data
}

const (
	MinRoomCapacity = 1
	MaxRoomCapacity = 100
)

func (s RoomSpec) Validate() error {
	if s.Name == "" {
		return NewOpError("validate room", ErrInvalidArgument, "empty name")
	}
	if s.Capacity < MinRoomCapacity || s.Capacity > MaxRoomCapacity {
		return NewOpError("validate room", ErrInvalidArgument, "capacity out of range")
	}
	return nil
}

// RoomFilter narrows QueryJoinable results.
type RoomFilter struct {
	MinAvailableSlots int
	Count             int
}

const (
	DefaultQueryCount = 1
	MaxQueryCount     = 50
)

// Normalize fills defaults and clamps bounds.
func (f RoomFilter) Normalize() RoomFilter {
	if f.MinAvailableSlots <= 0 {
		f.MinAvailableSlots = 1
	}
	if f.Count <= 0 {
		f.Count = DefaultQueryCount
	}
	if f.Count > MaxQueryCount {
		f.Count = MaxQueryCount
	}
	return f
}

func (r *Room) AvailableSlots() int {
	n := r.Capacity - len(r.Members)
	if n < 0 {
		return 0
	}
	return n
}

// Member returns the member with id, if present.
func (r *Room) Member(id MemberID) (Member, bool) {
	for _, m := range r.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Room) HasMember(id MemberID) bool {
	_, ok := r.Member(id)
	return ok
}

func (r *Room) IsHost(id MemberID) bool {
	return id != "" && r.HostID == id
}

func (r *Room) RelayStarted() bool {
	return r.Data.Flag(KeyRelayStarted)
}

// JoinCode returns the published relay join code, or "".
func (r *Room) JoinCode() string {
	v, _ := r.Data.Value(KeyRelayJoinCode)
	return v
}

// Clone returns a deep copy.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = r.Data.Clone()
	out.Members = make([]Member, len(r.Members))
	for i, m := range r.Members {
		out.Members[i] = m.Clone()
	}
	return &out
}

// ViewFor projects the room for reader, applying visibility rules.
func (r *Room) ViewFor(reader MemberID) *Room {
	out := r.Clone()
	member := r.HasMember(reader)
	out.Data = out.Data.Visible(r.IsHost(reader), member)
	for i := range out.Members {
		m := &out.Members[i]
		m.Data = m.Data.Visible(m.ID == reader, member)
	}
	return out
}
