package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// Register mounts the liveness and version endpoints.
func Register(router gin.IRouter, version string) {
	router.GET("/healthz", handlerHealth)
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, VersionResponse{Version: version})
	})
}

func handlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
