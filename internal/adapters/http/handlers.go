package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handlers serves the presence and relay allocation API.
type Handlers struct {
	Registry  *app.Registry
	Rooms     core.RoomStore
	Allocator *relay.Allocator
}

func respondErr(c *gin.Context, err error) {
	status, code := api.StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Code: code, Message: err.Error()})
}

func (h *Handlers) presence(c *gin.Context) app.Presence {
	return app.NewPresence(h.Rooms, playerOf(c).ID)
}

// selfMember builds the caller's member record. The id always comes from
// the authenticated identity.
func selfMember(p domain.Player, data domain.Data) domain.Member {
	data = data.Clone()
	if data == nil {
		data = domain.Data{}
	}
	if _, ok := data[domain.KeyName]; !ok {
		data[domain.KeyName] = domain.Public(p.Name)
	}
	return domain.NewMember(p.ID, data)
}

func bindJSON(c *gin.Context, op string, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondErr(c, domain.NewOpError(op, domain.ErrInvalidArgument, "bad payload"))
		return false
	}
	return true
}

func (h *Handlers) listRooms(c *gin.Context) {
	filter := domain.RoomFilter{}
	if v := c.Query("min_slots"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondErr(c, domain.NewOpError("list rooms", domain.ErrInvalidArgument, "min_slots"))
			return
		}
		filter.MinAvailableSlots = n
	}
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondErr(c, domain.NewOpError("list rooms", domain.ErrInvalidArgument, "count"))
			return
		}
		filter.Count = n
	}
	rooms, err := h.presence(c).QueryJoinableRooms(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, api.RoomsResponse{Rooms: rooms})
}

func (h *Handlers) createRoom(c *gin.Context) {
	var req api.CreateRoomRequest
	if !bindJSON(c, "create room", &req) {
		return
	}
	self := selfMember(playerOf(c), req.MemberData)
	spec := domain.RoomSpec{Name: req.Name, Capacity: req.Capacity, IsPrivate: req.IsPrivate, Data: req.Data}
	room, err := h.presence(c).CreateRoom(c.Request.Context(), spec, self)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handlers) getRoom(c *gin.Context) {
	room, err := h.presence(c).GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) joinRoom(c *gin.Context) {
	var req api.JoinRoomRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, "join room", &req) {
		return
	}
	self := selfMember(playerOf(c), req.MemberData)
	room, err := h.presence(c).JoinRoom(c.Request.Context(), domain.RoomID(c.Param("id")), self)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) updateRoomData(c *gin.Context) {
	var req api.UpdateDataRequest
	if !bindJSON(c, "update room data", &req) {
		return
	}
	room, err := h.presence(c).UpdateRoomData(c.Request.Context(), domain.RoomID(c.Param("id")), req.Data)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) updateMemberData(c *gin.Context) {
	var req api.UpdateDataRequest
	if !bindJSON(c, "update member data", &req) {
		return
	}
	m, err := h.presence(c).UpdateMemberData(c.Request.Context(),
		domain.RoomID(c.Param("id")), domain.MemberID(c.Param("member")), req.Data)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handlers) removeMember(c *gin.Context) {
	err := h.presence(c).RemoveMember(c.Request.Context(),
		domain.RoomID(c.Param("id")), domain.MemberID(c.Param("member")))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) heartbeat(c *gin.Context) {
	if err := h.presence(c).Heartbeat(c.Request.Context(), domain.RoomID(c.Param("id"))); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) deleteRoom(c *gin.Context) {
	if err := h.Rooms.Delete(c.Request.Context(), domain.RoomID(c.Param("id")), playerOf(c).ID); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) allocate(c *gin.Context) {
	var req api.AllocateRequest
	if !bindJSON(c, "allocate", &req) {
		return
	}
	alloc, err := h.Allocator.Allocate(c.Request.Context(), req.MaxConnections)
	if err != nil {
		respondErr(c, err)
		return
	}
	log.Info().
		Str("module", "adapters.http").
		Str("player_id", string(playerOf(c).ID)).
		Str("allocation_id", string(alloc.ID)).
		Msg("relay allocated")
	c.JSON(http.StatusCreated, alloc)
}

func (h *Handlers) resolve(c *gin.Context) {
	var req api.ResolveRequest
	if !bindJSON(c, "resolve", &req) {
		return
	}
	conn, err := h.Allocator.For(playerOf(c).ID).Resolve(c.Request.Context(), req.JoinCode)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCode) {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("resolve failed")
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}
