package app

import "github.com/dkeye/Lobby/internal/domain"

type AdmissionAction int

const (
	Admit AdmissionAction = iota
	AlreadyMember
	RejectFull
	RejectClosed
)

// Policy decides whether a member may enter a room. It is evaluated under the
// room's write lock (memory) or row lock (postgres).
type Policy interface {
	Admit(room *domain.Room, id domain.MemberID) AdmissionAction
}

type SimplePolicy struct{}

func (SimplePolicy) Admit(room *domain.Room, id domain.MemberID) AdmissionAction {
	switch {
	case room.IsLocked:
		return RejectClosed
	case room.HasMember(id):
		return AlreadyMember
	case len(room.Members) >= room.Capacity:
		return RejectFull
	default:
		return Admit
	}
}

// AdmissionError converts a rejecting action into its sentinel.
func AdmissionError(a AdmissionAction) error {
	switch a {
	case RejectFull:
		return domain.ErrRoomFull
	case RejectClosed:
		return domain.ErrRoomClosed
	default:
		return nil
	}
}
