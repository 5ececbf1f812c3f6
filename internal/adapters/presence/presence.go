// Package presence is the HTTP Presence Store client.
package presence

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

type Client struct {
	api *api.Client
}

var _ core.PresenceStore = (*Client)(nil)

func New(c *api.Client) *Client {
	return &Client{api: c}
}

func roomPath(id domain.RoomID, suffix string) string {
	return "/api/rooms/" + url.PathEscape(string(id)) + suffix
}

func requireRoom(op string, id domain.RoomID) error {
	if id == "" {
		return domain.NewOpError(op, domain.ErrInvalidArgument, "empty room id")
	}
	return nil
}

func (c *Client) CreateRoom(ctx context.Context, spec domain.RoomSpec, self domain.Member) (*domain.Room, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	req := api.CreateRoomRequest{
		Name:       spec.Name,
		Capacity:   spec.Capacity,
		IsPrivate:  spec.IsPrivate,
		Data:       spec.Data,
		MemberData: self.Data,
	}
	var room domain.Room
	if err := c.api.Do(ctx, http.MethodPost, "/api/rooms", req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) QueryJoinableRooms(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	filter = filter.Normalize()
	q := url.Values{}
	q.Set("min_slots", strconv.Itoa(filter.MinAvailableSlots))
	q.Set("count", strconv.Itoa(filter.Count))
	var out api.RoomsResponse
	if err := c.api.Do(ctx, http.MethodGet, "/api/rooms?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID domain.RoomID, self domain.Member) (*domain.Room, error) {
	if err := requireRoom("join room", roomID); err != nil {
		return nil, err
	}
	var room domain.Room
	if err := c.api.Do(ctx, http.MethodPost, roomPath(roomID, "/join"), api.JoinRoomRequest{MemberData: self.Data}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error) {
	if err := requireRoom("get room", roomID); err != nil {
		return nil, err
	}
	var room domain.Room
	if err := c.api.Do(ctx, http.MethodGet, roomPath(roomID, ""), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) UpdateRoomData(ctx context.Context, roomID domain.RoomID, data domain.Data) (*domain.Room, error) {
	if err := requireRoom("update room data", roomID); err != nil {
		return nil, err
	}
	var room domain.Room
	if err := c.api.Do(ctx, http.MethodPatch, roomPath(roomID, "/data"), api.UpdateDataRequest{Data: data}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) UpdateMemberData(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID, data domain.Data) (*domain.Member, error) {
	if err := requireRoom("update member data", roomID); err != nil {
		return nil, err
	}
	if memberID == "" {
		return nil, domain.NewOpError("update member data", domain.ErrInvalidArgument, "empty member id")
	}
	var m domain.Member
	path := roomPath(roomID, "/members/"+url.PathEscape(string(memberID))+"/data")
	if err := c.api.Do(ctx, http.MethodPatch, path, api.UpdateDataRequest{Data: data}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) RemoveMember(ctx context.Context, roomID domain.RoomID, memberID domain.MemberID) error {
	if err := requireRoom("remove member", roomID); err != nil {
		return err
	}
	if memberID == "" {
		return domain.NewOpError("remove member", domain.ErrInvalidArgument, "empty member id")
	}
	return c.api.Do(ctx, http.MethodDelete, roomPath(roomID, "/members/"+url.PathEscape(string(memberID))), nil, nil)
}

func (c *Client) Heartbeat(ctx context.Context, roomID domain.RoomID) error {
	if err := requireRoom("heartbeat", roomID); err != nil {
		return err
	}
	return c.api.Do(ctx, http.MethodPost, roomPath(roomID, "/heartbeat"), nil, nil)
}
