package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/codebridge/codebridge/internal/auth"
	"github.com/codebridge/codebridge/internal/common"
	"github.com/codebridge/codebridge/internal/provider"
)

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, gin.H{
		"status":            "healthy",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"active_sessions":   len(h.Sessions.ListActive()),
		"connected_clients": h.Hub.ConnectedCount(),
		"pending_approvals": h.Approvals.PendingCount(),
	})
}

func (h *Handler) ListProviders(c *gin.Context) {
	common.OK(c, gin.H{"providers": h.Providers.Providers()})
}

func (h *Handler) ListModels(c *gin.Context) {
	name := c.Param("name")
	// Unknown providers yield an empty list, not an error.
	common.OK(c, gin.H{"provider": name, "models": h.Providers.Models(name)})
}

func (h *Handler) DefaultConfig(c *gin.Context) {
	common.OK(c, h.Providers.DefaultConfig(c.Query("provider")))
}

func (h *Handler) ValidateConfig(c *gin.Context) {
	var raw provider.RawConfig
	if err := c.ShouldBindJSON(&raw); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	common.OK(c, gin.H{"valid": h.Providers.Validate(raw)})
}

func (h *Handler) ListSessions(c *gin.Context) {
	common.OK(c, gin.H{"sessions": h.Sessions.ListActive()})
}

func (h *Handler) CloseSession(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Sessions.Get(id); !ok {
		common.Fail(c, http.StatusNotFound, 40404, "session not found")
		return
	}
	h.Sessions.Close(id)
	common.OK(c, gin.H{"session_id": id, "status": "closed"})
}

// GetApproval looks in the live registry first, then the redis audit mirror.
func (h *Handler) GetApproval(c *gin.Context) {
	id := c.Param("id")
	if p, ok := h.Approvals.Get(id); ok {
		common.OK(c, p)
		return
	}
	if h.Audit != nil {
		p, err := h.Audit.GetResolved(c.Request.Context(), id)
		if err == nil {
			common.OK(c, p)
			return
		}
		if err != redis.Nil {
			common.Fail(c, http.StatusInternalServerError, 20001, "audit store error")
			return
		}
	}
	common.Fail(c, http.StatusNotFound, 40405, "approval not found")
}

type tokenReq struct {
	ClientID string `json:"client_id" binding:"required"`
	Key      string `json:"key" binding:"required"`
}

// IssueToken exchanges the shared gateway key for a client-scoped JWT.
func (h *Handler) IssueToken(c *gin.Context) {
	if h.Cfg.GatewayKeyHash == "" {
		common.Fail(c, http.StatusNotFound, 40406, "token issuance disabled")
		return
	}
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !auth.CheckKey(h.Cfg.GatewayKeyHash, req.Key) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid gateway key")
		return
	}
	token, err := auth.SignJWT(req.ClientID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token, "client_id": req.ClientID})
}
