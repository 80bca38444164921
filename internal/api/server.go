package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/ai/llm"
	"futures-signal-dashboard/internal/assetinfo"
	"futures-signal-dashboard/internal/engine"
	"futures-signal-dashboard/internal/events"
	"futures-signal-dashboard/internal/history"
	"futures-signal-dashboard/internal/sentiment"
	"futures-signal-dashboard/internal/store"
)

// Config holds the HTTP server settings.
type Config struct {
	Port             int
	AllowedOrigins   []string
	RateLimitPerMin  int
	ResponseCacheTTL time.Duration
}

// Server exposes the dashboard REST API and websocket feed.
type Server struct {
	cfg        Config
	engine     *engine.Engine
	archive    *history.Archive
	sentiment  *sentiment.Service
	assets     *assetinfo.Service
	validator  *llm.Validator
	store      store.Store
	hub        *wsHub
	httpServer *http.Server
	logger     zerolog.Logger
	startedAt  time.Time
}

// NewServer wires the router, middleware and websocket hub.
func NewServer(
	cfg Config,
	eng *engine.Engine,
	archive *history.Archive,
	sent *sentiment.Service,
	assets *assetinfo.Service,
	validator *llm.Validator,
	st store.Store,
	bus *events.Bus,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		archive:   archive,
		sentiment: sent,
		assets:    assets,
		validator: validator,
		store:     st,
		hub:       newWSHub(logger),
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	go s.hub.run()
	bus.SubscribeAll(func(event events.Event) {
		s.hub.broadcastEvent(event)
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	limiter := newIPRateLimiter(cfg.RateLimitPerMin)
	cache := newResponseCache(cfg.ResponseCacheTTL)

	apiGroup := router.Group("/api")
	apiGroup.Use(rateLimitMiddleware(limiter))
	{
		cached := apiGroup.Group("")
		cached.Use(cacheMiddleware(cache))
		{
			cached.GET("/signals", s.handleSignals)
			cached.GET("/history", s.handleHistory)
			cached.GET("/sentiment", s.handleSentiment)
			cached.GET("/market", s.handleMarket)
			cached.GET("/assets/:symbol", s.handleAssetInfo)
		}

		apiGroup.GET("/health", s.handleHealth)
		apiGroup.POST("/signals/:symbol/validate", s.handleValidate)
	}

	router.GET("/ws", s.hub.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP traffic until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
