package handlers

import (
	"github.com/codebridge/codebridge/internal/approval"
	"github.com/codebridge/codebridge/internal/config"
	"github.com/codebridge/codebridge/internal/provider"
	"github.com/codebridge/codebridge/internal/session"
	"github.com/codebridge/codebridge/internal/store/redisstore"
	"github.com/codebridge/codebridge/internal/ws"
)

type Handler struct {
	Cfg       config.Config
	Providers *provider.Registry
	Sessions  *session.Table
	Approvals *approval.Registry
	Hub       *ws.Hub
	// Audit is the redis mirror of resolved approvals; may be nil.
	Audit *redisstore.Store
}

func NewHandler(cfg config.Config, providers *provider.Registry, sessions *session.Table,
	approvals *approval.Registry, hub *ws.Hub, audit *redisstore.Store) *Handler {
	return &Handler{
		Cfg:       cfg,
		Providers: providers,
		Sessions:  sessions,
		Approvals: approvals,
		Hub:       hub,
		Audit:     audit,
	}
}
