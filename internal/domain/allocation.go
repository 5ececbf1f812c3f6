package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"time"
)

type AllocationID string

// Role is the side of the transport session a client takes.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ConnParams are the relay connection parameters of one peer.
type ConnParams struct {
	AllocationID       AllocationID `json:"allocation_id"`
	Endpoint           string       `json:"endpoint"`
	Port               int          `json:"port"`
	AllocationIDBytes  []byte       `json:"allocation_id_bytes"`
	Key                []byte       `json:"key"`
	ConnectionData     []byte       `json:"connection_data"`
	HostConnectionData []byte       `json:"host_connection_data,omitempty"`
}

// Allocation is what the host receives from the relay allocator.
type Allocation struct {
	ID             AllocationID `json:"id"`
	JoinCode       string       `json:"join_code"`
	MaxConnections int          `json:"max_connections"`
	ExpiresAt      time.Time    `json:"expires_at"`
	Host           ConnParams   `json:"host"`
}

// HandoffParams is the full parameter set delivered to the transport.
type HandoffParams struct {
	Role     Role
	JoinCode string
	RoomID   RoomID
	Conn     ConnParams
}

// Validate rejects partially populated parameter sets. Guests must carry the
// host connection data; hosts must not.
func (p HandoffParams) Validate() error {
	switch {
	case p.Role != RoleHost && p.Role != RoleGuest:
		return NewOpError("handoff params", ErrInvalidArgument, "unknown role")
	case p.Conn.Endpoint == "" || p.Conn.Port <= 0:
		return NewOpError("handoff params", ErrInvalidArgument, "missing endpoint")
	case len(p.Conn.AllocationIDBytes) == 0 || len(p.Conn.Key) == 0 || len(p.Conn.ConnectionData) == 0:
		return NewOpError("handoff params", ErrInvalidArgument, "missing allocation secrets")
	case p.Role == RoleGuest && len(p.Conn.HostConnectionData) == 0:
		return NewOpError("handoff params", ErrInvalidArgument, "missing host connection data")
	case p.Role == RoleHost && len(p.Conn.HostConnectionData) != 0:
		return NewOpError("handoff params", ErrInvalidArgument, "host params carry host connection data")
	}
	return nil
}

// Signature proves possession of Key for ConnectionData when attaching to
// the relay endpoint.
func (p ConnParams) Signature() []byte {
	mac := hmac.New(sha256.New, p.Key)
	mac.Write(p.ConnectionData)
	return mac.Sum(nil)
}

// VerifySignature reports whether sig was produced by Signature for
// connectionData under key.
func VerifySignature(key, connectionData, sig []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(connectionData)
	return hmac.Equal(mac.Sum(nil), sig)
}
