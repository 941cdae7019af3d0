package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tullo/chatdesk/config"
	"github.com/tullo/chatdesk/internal/api"
	"github.com/tullo/chatdesk/internal/auth"
	"github.com/tullo/chatdesk/internal/cache"
	"github.com/tullo/chatdesk/internal/chat"
	"github.com/tullo/chatdesk/internal/handlers"
	"github.com/tullo/chatdesk/internal/messaging"
	"github.com/tullo/chatdesk/internal/metrics"
	"github.com/tullo/chatdesk/internal/middleware"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/websocket"
)

const eventNotice = "notice"

// publisher is the side of the viewer hub the agent feeds
type publisher interface {
	Publish(event string, payload any) error
}

func forwardChanges(p publisher) func(store.Change) {
	return func(c store.Change) {
		if err := p.Publish(websocket.EventStoreChange, c); err != nil {
			log.Printf("[hub] publish change: %v", err)
		}
	}
}

func forwardNotices(p publisher) chat.Notifier {
	return func(n chat.Notice) {
		log.Printf("[chat] %s: %s", n.Level, n.Text)
		if err := p.Publish(eventNotice, n); err != nil {
			log.Printf("[hub] publish notice: %v", err)
		}
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Identify the operator from the access token
	tokens := auth.NewTokenSource(cfg.Credentials.TokenFile, cfg.Credentials.TokenEnv)
	token, err := tokens.Token()
	if err != nil {
		log.Fatalf("Failed to read access token: %v", err)
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		log.Fatalf("Invalid access token: %v", err)
	}

	st := store.New()

	// Viewer hub fans store changes out to attached browsers
	hub := websocket.NewHub()
	go hub.Run(ctx)
	st.Subscribe(forwardChanges(hub))

	// Redis mirror (optional)
	if cfg.Redis.Enabled {
		redis, err := cache.NewRedisClient(ctx, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
			log.Println("Running without the Redis mirror")
		} else {
			defer redis.Close()
			stopMirror := cache.NewMirror(redis, st).Start()
			defer stopMirror()
		}
	}

	// NATS relay (optional)
	if cfg.NATS.Enabled {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATS.URL
		natsClient, err := messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Printf("Warning: Failed to connect to NATS: %v", err)
		} else {
			defer natsClient.Close()
			stopRelay := messaging.NewRelay(natsClient, st, cfg.NATS.Subject).Start()
			defer stopRelay()
		}
	}

	// Chat session
	gateway := websocket.NewClient(websocket.Config{
		URL:               cfg.SocketEndpoint(),
		ReconnectAttempts: cfg.Chat.ReconnectAttempts,
		ReconnectDelay:    cfg.Chat.ReconnectDelay,
		ConnectTimeout:    cfg.Chat.ConnectTimeout,
		AckTimeout:        cfg.Chat.AckTimeout,
	}, tokens)
	service := api.NewClient(cfg.API.BaseURL, tokens, cfg.API.RequestTimeout)

	session := chat.NewSession(chat.Config{
		UserID:         claims.Identity(),
		PageSize:       cfg.API.PageSize,
		SendLimit:      cfg.Limits.SendLimit,
		SendWindow:     cfg.Limits.SendWindow,
		TypingInterval: cfg.Chat.TypingInterval,
		LongForm:       cfg.Limits.LongForm,
	}, gateway, service, st, forwardNotices(hub))

	log.Printf("Signed in as %s", claims.Identity())
	if err := session.Start(ctx); err != nil {
		log.Printf("Warning: initial conversation load failed: %v", err)
	}
	defer session.Stop()

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitRequestsPerSec)
	rateLimiter.Cleanup(ctx)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		status, _ := st.Connection()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": status})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	wsHandler := websocket.NewHandler(hub, cfg.CORS.AllowedOrigins)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKey(cfg.API.KeyHeader, cfg.Server.APIKey))
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		handlers.SetChatRoutes(v1, session)
		v1.GET("/ws", wsHandler.HandleViewer)
	}

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting chat agent on %s (env: %s)", srv.Addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
