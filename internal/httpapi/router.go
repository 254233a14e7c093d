package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codebridge/codebridge/internal/common"
	"github.com/codebridge/codebridge/internal/config"
	"github.com/codebridge/codebridge/internal/httpapi/handlers"
	"github.com/codebridge/codebridge/internal/httpapi/middleware"
	"github.com/codebridge/codebridge/internal/ws"
)

func NewRouter(cfg config.Config, h *handlers.Handler, wsServer *ws.Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/health", h.Health)
	r.POST("/api/token", h.IssueToken)

	// The websocket endpoint authenticates per-message only; the original
	// bridge accepted the upgrade for any client id.
	r.GET("/ws/:client_id", wsServer.Handle)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(authSecret(cfg)))
	authGroup.GET("/config/providers", h.ListProviders)
	authGroup.GET("/config/providers/:name/models", h.ListModels)
	authGroup.GET("/config/defaults", h.DefaultConfig)
	authGroup.POST("/config/validate", h.ValidateConfig)
	authGroup.GET("/sessions", h.ListSessions)
	authGroup.DELETE("/sessions/:id", h.CloseSession)
	authGroup.GET("/approvals/:id", h.GetApproval)

	return r
}

// authSecret disables REST auth entirely when no gateway key is configured,
// matching the dev posture of the original server.
func authSecret(cfg config.Config) string {
	if cfg.GatewayKeyHash == "" {
		return ""
	}
	return cfg.JWTSecret
}
