package orch

// State is the bootstrap progress of one client.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateJoined
	StateWaitingForReady
	StateElectingHost
	StateAllocatingRelay
	StateResolvingJoinCode
	StateHandedOff
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateJoined:
		return "joined"
	case StateWaitingForReady:
		return "waiting_for_ready"
	case StateElectingHost:
		return "electing_host"
	case StateAllocatingRelay:
		return "allocating_relay"
	case StateResolvingJoinCode:
		return "resolving_join_code"
	case StateHandedOff:
		return "handed_off"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateHandedOff || s == StateFailed
}
