package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	ctxPlayer       = "player"
	ctxToken        = "player_token"
	sessionTokenKey = "player_token"
)

// bearerToken reads the token from the Authorization header, falling back
// to the cookie session for browser callers.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(api.HeaderAuthorization); strings.HasPrefix(h, api.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, api.BearerPrefix))
	}
	if v, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
		return v
	}
	return ""
}

// IdentityMiddleware resolves the caller and aborts with 401 when unknown.
func IdentityMiddleware(reg *app.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		p, ok := reg.Resolve(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
				Code:    api.CodeUnauthorized,
				Message: "sign in first",
			})
			return
		}
		c.Set(ctxPlayer, p)
		c.Set(ctxToken, token)
		c.Next()
	}
}

func playerOf(c *gin.Context) domain.Player {
	p, _ := c.MustGet(ctxPlayer).(domain.Player)
	return p
}

func (h *Handlers) signIn(c *gin.Context) {
	var req api.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, domain.NewOpError("sign in", domain.ErrInvalidArgument, "bad payload"))
		return
	}
	p, token, err := h.Registry.SignIn(req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	s := sessions.Default(c)
	s.Set(sessionTokenKey, token)
	_ = s.Save()
	c.JSON(http.StatusOK, api.AuthResponse{PlayerID: p.ID, Name: p.Name, Token: token})
}

func (h *Handlers) rename(c *gin.Context) {
	var req api.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, domain.NewOpError("rename", domain.ErrInvalidArgument, "bad payload"))
		return
	}
	p, err := h.Registry.Rename(c.GetString(ctxToken), req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{PlayerID: p.ID, Name: p.Name})
}

func (h *Handlers) signOut(c *gin.Context) {
	h.Registry.SignOut(c.GetString(ctxToken))
	s := sessions.Default(c)
	s.Delete(sessionTokenKey)
	_ = s.Save()
	c.Status(http.StatusNoContent)
}
