package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/api/health"
	"github.com/paw-chain/vaultbook/app"
)

// Server is the HTTP and WebSocket gateway in front of a Ledger
type Server struct {
	router      *gin.Engine
	ledger      *app.Ledger
	config      *Config
	wsHub       *WebSocketHub
	logger      log.Logger
	rateLimiter *RateLimiter
	auditLogger *AuditLogger
	health      *health.Checker
	metrics     *GatewayMetrics
	faucetMax   math.Int
	unsubscribe func()
}

// Config holds server configuration
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors-origins"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	RequestTimeout  time.Duration `mapstructure:"request-timeout"`
	MaxWSClients    int           `mapstructure:"max-ws-clients"`

	RateLimit *RateLimitConfig `mapstructure:"rate-limit"`

	AuditLogDir  string `mapstructure:"audit-log-dir"`
	AuditEnabled bool   `mapstructure:"audit-enabled"`

	FaucetEnabled bool `mapstructure:"faucet-enabled"`
	// FaucetMaxAmount caps each coin of one faucet request, in base units
	FaucetMaxAmount string `mapstructure:"faucet-max-amount"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            "8080",
		CORSOrigins:     []string{"http://localhost:3000", "http://localhost:8080"},
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RequestTimeout:  30 * time.Second,
		MaxWSClients:    1000,
		RateLimit:       DefaultRateLimitConfig(),
		AuditLogDir:     "./logs/audit",
		AuditEnabled:    false,
		FaucetEnabled:   true,
		// 1e6 whole tokens at 18 decimals
		FaucetMaxAmount: "1000000000000000000000000",
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewServer creates the gateway and subscribes it to committed blocks
func NewServer(ledger *app.Ledger, config *Config, logger log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger = logger.With("module", "gateway")

	faucetMax, err := ParseAmount(config.FaucetMaxAmount)
	if err != nil {
		return nil, fmt.Errorf("faucet max amount: %w", err)
	}

	auditLogger, err := NewAuditLogger(config.AuditLogDir, config.AuditEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	var rateLimiter *RateLimiter
	if config.RateLimit != nil && config.RateLimit.Enabled {
		rateLimiter, err = NewRateLimiter(config.RateLimit)
		if err != nil {
			auditLogger.Close()
			return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
	}

	metrics := NewGatewayMetrics()
	wsHub := NewWebSocketHub(logger, metrics)
	go wsHub.Run()

	s := &Server{
		ledger:      ledger,
		config:      config,
		wsHub:       wsHub,
		logger:      logger,
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
		health:      health.NewChecker(app.Version, 2*time.Second),
		metrics:     metrics,
		faucetMax:   faucetMax,
	}
	s.registerHealthChecks()
	s.unsubscribe = ledger.Subscribe(wsHub.PublishBlock)
	s.setupRouter()

	return s, nil
}

func (s *Server) registerHealthChecks() {
	s.health.Critical("ledger", health.Height(s.ledger.Height))
	s.health.Critical("store", func(context.Context) (string, error) {
		var vaults uint64
		err := s.ledger.Query(func(ctx sdk.Context) error {
			if _, err := s.ledger.VaultKeeper.GetParams(ctx); err != nil {
				return err
			}
			vaults = s.ledger.VaultKeeper.GetNextVaultID(ctx) - 1
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d vaults", vaults), nil
	})
	s.health.Optional("websocket", health.Capacity("clients", s.wsHub.GetConnectedClients, s.config.MaxWSClients))
}

// setupRouter configures the Gin router with all routes and middleware
func (s *Server) setupRouter() {
	s.router = gin.New()

	// Global middleware, in order
	// 1. Recovery (must be first to catch panics)
	s.router.Use(gin.Recovery())

	// 2. Security headers
	s.router.Use(SecurityHeadersMiddleware())

	// 3. Request size limiting
	s.router.Use(RequestSizeLimitMiddleware(MaxRequestSize))

	// 4. Request ID (for tracing)
	s.router.Use(RequestIDMiddleware())

	// 5. Logging and metrics
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(MetricsMiddleware(s.metrics))

	// 6. CORS (before the caller check)
	s.router.Use(CORSMiddleware(s.config.CORSOrigins))

	// 7. Rate limiting (before expensive operations)
	if s.rateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.rateLimiter, s.auditLogger))
	}

	// 8. Timeout
	s.router.Use(TimeoutMiddleware(s.config.RequestTimeout))

	s.router.GET("/health", gin.WrapF(s.health.ServeHealth))
	s.router.GET("/health/live", gin.WrapF(s.health.ServeLive))
	s.router.GET("/health/ready", gin.WrapF(s.health.ServeReady))

	if s.rateLimiter != nil {
		s.router.GET("/rate-limit/stats", s.handleRateLimitStats)
	}

	s.registerRoutes()
}

// Handler returns the HTTP handler of the gateway
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			s.Close()
			return fmt.Errorf("gateway failed: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway forced to shutdown: %w", err)
	}

	s.logger.Info("gateway exited")
	return nil
}

// Close detaches the gateway from the ledger and releases its resources
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.wsHub.Close()
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.auditLogger != nil {
		s.auditLogger.Close()
	}
}

// handleRateLimitStats returns rate limiter statistics
func (s *Server) handleRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.rateLimiter.Stats())
}

// handleStatus describes the ledger behind the gateway
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		ChainID: s.ledger.ChainID(),
		Height:  s.ledger.Height(),
		Version: app.Version,
		Time:    time.Now().UTC(),
	})
}

// deliver runs a mutating operation on the ledger and records it in the audit log
func (s *Server) deliver(c *gin.Context, op string, fn func(ctx sdk.Context) error) (app.Block, error) {
	block, err := s.ledger.Deliver(c.Request.Context(), op, fn)
	s.auditLogger.LogOperation(c, op, block.Height, err)
	return block, err
}

// query runs fn against the last committed height
func (s *Server) query(fn func(ctx sdk.Context) error) error {
	return s.ledger.Query(fn)
}
