package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatjam/chatjam/internal/database"
	"github.com/chatjam/chatjam/internal/logging"
	"github.com/chatjam/chatjam/internal/push"
	"github.com/chatjam/chatjam/internal/server"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(os.Getenv("CHATJAM_LOG_LEVEL"), os.Getenv("CHATJAM_LOG_FORMAT"))

	port := env("CHATJAM_PORT", "8080")
	dbPath := env("CHATJAM_DB_PATH", "chatjam.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("CHATJAM_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CHATJAM_VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("CHATJAM_VAPID_SUBSCRIBER"),
	}
	if pushCfg.VAPIDPublicKey == "" {
		logger.Warn("VAPID keys not configured, web push disabled")
	}

	srv := server.New(db, pushCfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("chatjam listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
