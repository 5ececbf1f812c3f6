package domain

import "time"

// Member represents one player's participation in a room.
// Ready and Name are read from member-scoped data.
type Member struct {
	ID       MemberID  `json:"id"`
	Data     Data      `json:"data,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

func NewMember(id MemberID, data Data) Member {
	return Member{ID: id, Data: data.Clone()}
}

// Ready is fail-closed: a missing key is not ready.
func (m Member) Ready() bool {
	return m.Data.Flag(KeyReady)
}

func (m Member) Name() string {
	v, _ := m.Data.Value(KeyName)
	return v
}

// Clone returns a copy that shares nothing with m.
func (m Member) Clone() Member {
	m.Data = m.Data.Clone()
	return m
}
