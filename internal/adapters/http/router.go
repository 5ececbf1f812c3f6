package http

import (
	"context"

	"github.com/dkeye/Lobby/internal/adapters/ws"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	transport "github.com/dkeye/Lobby/internal/transport/http"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Deps are the server collaborators the router exposes.
type Deps struct {
	Registry  *app.Registry
	Rooms     core.RoomStore
	Allocator *relay.Allocator
	Relays    *relay.RelayManager
	Version   string
}

func SetupRouter(ctx context.Context, cfg *config.Server, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbySessions", store))

	transport.Register(r, deps.Version)

	h := &Handlers{Registry: deps.Registry, Rooms: deps.Rooms, Allocator: deps.Allocator}
	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	api := r.Group("/api")
	api.POST("/auth/anonymous", h.signIn)

	authed := api.Group("")
	authed.Use(IdentityMiddleware(deps.Registry))

	authed.PATCH("/auth/me", h.rename)
	authed.DELETE("/auth/me", h.signOut)

	authed.GET("/rooms", h.listRooms)
	authed.POST("/rooms", limiter.Middleware(), h.createRoom)
	authed.GET("/rooms/:id", h.getRoom)
	authed.DELETE("/rooms/:id", h.deleteRoom)
	authed.POST("/rooms/:id/join", h.joinRoom)
	authed.PATCH("/rooms/:id/data", h.updateRoomData)
	authed.PATCH("/rooms/:id/members/:member/data", h.updateMemberData)
	authed.DELETE("/rooms/:id/members/:member", h.removeMember)
	authed.POST("/rooms/:id/heartbeat", h.heartbeat)

	authed.POST("/relay/allocations", limiter.Middleware(), h.allocate)
	authed.POST("/relay/join", h.resolve)

	relayCtl := ws.NewRelayController(deps.Allocator, deps.Relays, cfg.ReadLimit, cfg.PingPeriod)
	r.GET("/relay/ws", func(c *gin.Context) {
		relayCtl.Handle(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("store", cfg.Store).Msg("router setup")
	return r
}
