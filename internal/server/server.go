package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatjam/chatjam/internal/delivery"
	"github.com/chatjam/chatjam/internal/handler"
	"github.com/chatjam/chatjam/internal/middleware"
	"github.com/chatjam/chatjam/internal/push"
	"github.com/chatjam/chatjam/internal/realtime"
	"github.com/chatjam/chatjam/internal/store"
)

type Server struct {
	db          *sql.DB
	registry    *realtime.Registry
	pipeline    *delivery.Pipeline
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, pushCfg push.Config, logger *slog.Logger) *Server {
	registry := realtime.NewRegistry(logger.With("component", "registry"))

	messageStore := store.NewMessageStore(db)
	blockStore := store.NewBlockStore(db)
	pushStore := store.NewPushStore(db)

	// Push is optional: without VAPID keys the service runs websocket-only
	// and offline recipients simply get nothing until they reconnect.
	var pushSvc *push.Service
	var sender delivery.OfflineNotifier
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg)
		sender = push.NewSender(pushSvc, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	pipeline := delivery.NewPipeline(
		messageStore,
		messageStore,
		blockStore,
		registry,
		sender,
		logger.With("component", "delivery"),
	)

	return &Server{
		db:          db,
		registry:    registry,
		pipeline:    pipeline,
		pushH:       pushH,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Registry exposes the membership registry, e.g. for health reporting.
func (s *Server) Registry() *realtime.Registry {
	return s.registry
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.registry, s.pipeline, s.logger.With("component", "websocket")))
	mux.HandleFunc("GET /health", s.healthHandler)

	if s.pushH != nil {
		limited := s.rateLimitedHandler
		mux.HandleFunc("POST /api/push/subscribe", limited(s.pushH.Subscribe))
		mux.HandleFunc("DELETE /api/push/unsubscribe", limited(s.pushH.Unsubscribe))
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.registry.ConnectionCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
