package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/codebridge/codebridge/internal/approval"
	"github.com/codebridge/codebridge/internal/config"
	"github.com/codebridge/codebridge/internal/extension"
	"github.com/codebridge/codebridge/internal/httpapi"
	"github.com/codebridge/codebridge/internal/httpapi/handlers"
	"github.com/codebridge/codebridge/internal/provider"
	"github.com/codebridge/codebridge/internal/router"
	"github.com/codebridge/codebridge/internal/session"
	"github.com/codebridge/codebridge/internal/store/rabbitmq"
	"github.com/codebridge/codebridge/internal/store/redisstore"
	"github.com/codebridge/codebridge/internal/ws"
)

// auditSink fans audit events out to the rabbit queue and, for resolved
// approvals, mirrors the full record into redis with the retention TTL.
type auditSink struct {
	rabbit    *rabbitmq.Publisher
	audit     *redisstore.Store
	approvals *approval.Registry
	retention time.Duration
	logger    *slog.Logger
}

func (s *auditSink) Publish(ctx context.Context, event string, payload map[string]any) error {
	if s.audit != nil && event == "approval_resolved" {
		if id, ok := payload["approval_id"].(string); ok {
			if p, ok := s.approvals.Get(id); ok {
				if err := s.audit.SaveResolved(ctx, p, s.retention); err != nil {
					s.logger.Warn("approval audit mirror failed", "approval_id", id, "err", err)
				}
			}
		}
	}
	if s.rabbit != nil {
		return s.rabbit.Publish(ctx, event, payload)
	}
	return nil
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	providers := provider.NewRegistry(logger)
	sessions := session.NewTable(logger)
	approvals := approval.NewRegistry(logger)

	// Both stores are optional: the bridge routes without them, it just
	// loses the audit trail.
	var audit *redisstore.Store
	{
		store := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, approval audit mirror disabled", "err", err)
			_ = store.Close()
		} else {
			audit = store
		}
		cancel()
	}

	var publisher *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		logger.Warn("rabbit unavailable, audit events disabled", "err", err)
	} else {
		publisher = p
		defer publisher.Close()
	}

	sink := &auditSink{
		rabbit:    publisher,
		audit:     audit,
		approvals: approvals,
		retention: cfg.ApprovalRetention,
		logger:    logger,
	}

	hub := ws.NewHub(logger)
	extAddr := net.JoinHostPort(cfg.ExtensionHost, strconv.Itoa(cfg.ExtensionPort))
	extensions := extension.NewManager(extAddr, logger)

	rt := router.New(providers, sessions, approvals, hub, extensions, sink, logger)
	wsServer := ws.NewServer(hub, sessions, extensions, rt, sink, logger)
	h := handlers.NewHandler(cfg, providers, sessions, approvals, hub, audit)
	engine := httpapi.NewRouter(cfg, h, wsServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic sweep: inactive sessions out, resolved approvals past
	// retention out.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, sess := range sessions.CleanupInactive(cfg.SessionTimeout) {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					err := sink.Publish(sctx, "session_closed", map[string]any{
						"session_id": sess.ID,
						"client_id":  sess.ClientID,
						"provider":   sess.Provider,
						"created_at": sess.CreatedAt,
					})
					if err != nil {
						logger.Warn("audit publish failed", "event", "session_closed", "err", err)
					}
					cancel()
				}
				approvals.SweepResolved(cfg.ApprovalRetention)
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.BridgeAddr,
		Handler: engine,
	}

	go func() {
		logger.Info("bridge listening", "addr", cfg.BridgeAddr, "extension", extAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	extensions.CloseAll()
	sessions.CleanupAll()
	if audit != nil {
		_ = audit.Close()
	}
}
