package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"buiq-backend/internal/config"
	"buiq-backend/internal/database"
	"buiq-backend/internal/handlers"
	"buiq-backend/internal/logger"
	"buiq-backend/internal/middleware"
	"buiq-backend/internal/render"
	"buiq-backend/internal/router"
	"buiq-backend/internal/services"
	"buiq-backend/internal/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()
	log.Info("starting BUIQ chat", zap.String("env", cfg.Env))

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = randomSecret()
		log.Warn("SESSION_SECRET not set, tokens will not survive a restart")
	}

	// ──── Step 2: Optional Redis Relay ────
	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected, events relayed through pub/sub")
	}

	// ──── Step 3: Initialize Gemini Client ────
	answers, closeAnswers, err := services.NewAnswerService(ctx, cfg, log)
	if err != nil {
		log.Fatal("gemini client initialization failed", zap.Error(err))
	}
	defer closeAnswers()
	log.Info("gemini client initialized",
		zap.String("transport", cfg.GeminiTransport),
		zap.String("model", cfg.GeminiModel),
		zap.String("render_mode", cfg.RenderMode),
	)

	// ──── Step 4: Sessions and Events ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret)
	wsHub := websocket.NewHub(redisClient, sessionAuth, log)
	defer wsHub.Close()

	var present services.Presenter
	if cfg.IsMarkdown() {
		present = render.BotHTML
	}

	sessions := services.NewSessionManager(services.SessionOptions{
		Answers:     answers,
		Replies:     services.ReplyProcessorFromConfig(cfg),
		Events:      wsHub,
		Present:     present,
		IdleTimeout: cfg.SessionIdleTimeout,
	}, log)
	wsHub.SetSessionChecker(sessions)
	sessions.Start()
	defer sessions.Stop()

	// ──── Step 5: Start HTTP Server ────
	limits := router.Limits{
		Session: middleware.NewRateLimiter(10, time.Minute),
		Send:    middleware.NewRateLimiter(cfg.SendRateLimit, time.Minute),
	}
	defer limits.Session.Stop()
	defer limits.Send.Stop()

	chatHandler := handlers.NewChatHandler(sessions, sessionAuth, log)
	r := router.New(sessionAuth, chatHandler, wsHub, limits, cfg.FrontendURL, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("BUIQ chat ready",
		zap.String("ui", "http://localhost:"+cfg.Port),
		zap.String("api", "http://localhost:"+cfg.Port+"/api/v1"),
		zap.String("ws", "ws://localhost:"+cfg.Port+"/api/v1/ws"),
	)

	if err := runServer(ctx, server); err != nil {
		log.Error("server error", zap.Error(err))
	}
	log.Info("shut down")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate session secret: %v", err))
	}
	return hex.EncodeToString(b)
}
