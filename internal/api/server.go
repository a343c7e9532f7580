package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"signal-scanner/internal/auth"
	"signal-scanner/internal/cache"
	"signal-scanner/internal/candles"
	"signal-scanner/internal/events"
	"signal-scanner/internal/metrics"
	"signal-scanner/internal/scanner"
	"signal-scanner/internal/store"
)

// RateLimiter provides simple in-memory rate limiting per client.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  string
	ProductionMode  bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
	MetricsEnabled  bool
}

// Server is the HTTP API over the scan pipeline. The repo, cache service
// and auth service may be nil when their subsystems are disabled.
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	config       ServerConfig
	scanner      *scanner.Scanner
	analyzer     *scanner.Analyzer
	source       scanner.Source
	aggregator   *candles.Aggregator
	scanConfig   scanner.Config
	repo         *store.Repository
	cacheService *cache.CacheService
	eventBus     *events.EventBus
	recorder     *metrics.Recorder
	authService  *auth.Service
	hub          *WSHub
	rateLimiter  *RateLimiter
	log          zerolog.Logger
}

// NewServer wires the router, middleware and routes.
func NewServer(
	config ServerConfig,
	sc *scanner.Scanner,
	analyzer *scanner.Analyzer,
	source scanner.Source,
	aggregator *candles.Aggregator,
	scanConfig scanner.Config,
	repo *store.Repository,
	cacheService *cache.CacheService,
	eventBus *events.EventBus,
	recorder *metrics.Recorder,
	authService *auth.Service,
	log zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		router:       router,
		config:       config,
		scanner:      sc,
		analyzer:     analyzer,
		source:       source,
		aggregator:   aggregator,
		scanConfig:   scanConfig,
		repo:         repo,
		cacheService: cacheService,
		eventBus:     eventBus,
		recorder:     recorder,
		authService:  authService,
		hub:          NewWSHub(log),
		rateLimiter:  NewRateLimiter(config.RateLimit, config.RateLimitWindow),
		log:          log.With().Str("component", "api").Logger(),
	}

	router.Use(gin.Recovery())
	router.Use(server.requestLogger())
	router.Use(server.rateLimitMiddleware())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server.registerRoutes()

	// Forward pipeline events to websocket clients.
	if eventBus != nil {
		eventBus.SubscribeAll(server.hub.BroadcastEvent)
	}

	return server
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")

	if s.authService != nil {
		v1.POST("/auth/login", s.handleLogin)
	}

	// Read-only pipeline surface.
	v1.GET("/patterns", s.handleListPatterns)
	v1.GET("/signals/:symbol", s.handleSymbolSignals)
	v1.GET("/scan/latest", s.handleLatestScan)
	v1.GET("/scans/recent", s.handleRecentScans)

	// Mutating endpoints require auth when it is enabled.
	protected := v1.Group("")
	if s.authService != nil {
		protected.Use(auth.Middleware(s.authService.JWT()))
	}
	protected.POST("/analyze", s.handleAnalyze)
	protected.POST("/scan", s.handleScan)
}

// requestLogger logs each request with method, path, status and latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if s.recorder != nil {
			s.recorder.RecordHTTPRequest(route, c.Request.Method,
				strconv.Itoa(c.Writer.Status()), elapsed.Seconds())
		}
		s.log.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", elapsed).
			Msg("Request completed")
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// Start runs the HTTP server and the websocket hub.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
