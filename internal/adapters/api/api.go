// Package api holds the wire types shared by the lobby server handlers and
// the HTTP clients.
package api

import (
	"github.com/dkeye/Lobby/internal/domain"
)

const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

type AuthRequest struct {
	Name string `json:"name"`
}

type AuthResponse struct {
	PlayerID domain.MemberID `json:"player_id"`
	Name     string          `json:"name"`
	Token    string          `json:"token"`
}

type CreateRoomRequest struct {
	Name       string      `json:"name"`
	Capacity   int         `json:"capacity"`
	IsPrivate  bool        `json:"is_private"`
	Data       domain.Data `json:"data,omitempty"`
	MemberData domain.Data `json:"member_data,omitempty"`
}

type JoinRoomRequest struct {
	MemberData domain.Data `json:"member_data,omitempty"`
}

type UpdateDataRequest struct {
	Data domain.Data `json:"data"`
}

type RoomsResponse struct {
	Rooms []domain.Room `json:"rooms"`
}

type AllocateRequest struct {
	MaxConnections int `json:"max_connections"`
}

type ResolveRequest struct {
	JoinCode string `json:"join_code"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
