package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AquaChat/backend/internal/api/http"
	"github.com/GriffinCanCode/AquaChat/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AquaChat/backend/internal/backend"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AquaChat/backend/internal/proxy"
	"github.com/GriffinCanCode/AquaChat/backend/internal/upstream"
)

// shutdownTimeout bounds how long open streams may keep the process alive
const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	specs, persona, err := cfg.Backend.ModuleSpecs()
	if err != nil {
		return nil, fmt.Errorf("failed to load backend modules: %w", err)
	}
	modules := backend.ModulesFromSpecs(specs)

	logger.Info("Initializing AquaChat proxy",
		zap.String("addr", cfg.Addr()),
		zap.String("model", cfg.AI.Model),
		zap.Int("modules", len(modules)),
		zap.Bool("backend_configured", cfg.Backend.URL != ""),
	)
	if cfg.AI.APIKey == "" {
		logger.Warn("AI_API_KEY is not set; chat requests will fail")
	}

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("aquachat-proxy", logger.Component("trace"))

	// A nil fetcher makes the aggregator report the backend as unavailable
	var fetcher backend.ModuleFetcher
	health := apihttp.HealthInfo{Model: cfg.AI.Model}
	for _, m := range modules {
		health.Modules = append(health.Modules, m.Name)
	}
	if cfg.Backend.URL != "" {
		f := backend.NewFetcher(backend.Config{
			BaseURL:        cfg.Backend.URL,
			Username:       cfg.Backend.Username,
			Password:       cfg.Backend.Password,
			Timeout:        cfg.Backend.Timeout,
			Retries:        cfg.Backend.Retries,
			ModuleMaxBytes: cfg.Backend.ModuleMaxBytes,
			RequestsPerSec: cfg.Backend.RequestsPerSec,
		}, metrics, logger.Component("backend"))
		fetcher = f
		health.Backend = f
	}
	aggregator := backend.NewAggregator(fetcher, modules, cfg.Backend.ContextMaxBytes, logger.Component("backend"))

	completions := upstream.New(upstream.Config{
		URL:    cfg.AI.GatewayURL,
		APIKey: cfg.AI.APIKey,
		Model:  cfg.AI.Model,
	}, metrics, logger.Component("upstream"))

	chatProxy := proxy.New(aggregator, completions, logger.Component("proxy"),
		proxy.WithPersona(persona),
		proxy.WithRecorder(metrics),
	)
	handlers := apihttp.NewHandlers(chatProxy, metrics, health, logger.Component("http"))

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.CustomRecovery(recoverJSON(logger.Logger)))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	// Register routes
	router.OPTIONS("/chat", handlers.Preflight)
	router.POST("/chat", handlers.Chat)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close releases background resources
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}

// recoverJSON turns a handler panic into the chat error envelope. Once a
// relay has committed its headers the panic is only logged.
func recoverJSON(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		fields := append(tracing.Fields(c.Request.Context()), zap.Any("panic", recovered))
		if c.Writer.Written() {
			logger.Error("Recovered from handler panic after response started", fields...)
			c.Abort()
			return
		}
		logger.Error("Recovered from handler panic", fields...)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(recovered)})
	}
}
