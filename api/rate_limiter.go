package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled" json:"enabled"`
	DefaultRPS      int           `mapstructure:"default-rps" json:"default_rps"`
	DefaultBurst    int           `mapstructure:"default-burst" json:"default_burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup-interval" json:"cleanup_interval"`
	IdleTimeout     time.Duration `mapstructure:"idle-timeout" json:"idle_timeout"`

	// Per-endpoint limits keyed by "METHOD /route/template"
	EndpointLimits map[string]*EndpointLimit `mapstructure:"endpoint-limits" json:"endpoint_limits"`
}

// EndpointLimit defines rate limits for a specific endpoint
type EndpointLimit struct {
	RPS           int    `mapstructure:"rps" json:"rps"`
	Burst         int    `mapstructure:"burst" json:"burst"`
	CustomMessage string `mapstructure:"custom-message" json:"custom_message"`
}

// DefaultRateLimitConfig returns a default rate limiting configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:         true,
		DefaultRPS:      50,
		DefaultBurst:    100,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     10 * time.Minute,
		EndpointLimits: map[string]*EndpointLimit{
			"POST /api/faucet": {
				RPS:           1,
				Burst:         5,
				CustomMessage: "Faucet rate limit exceeded. Please try again later.",
			},
			"POST /api/vaults": {
				RPS:   2,
				Burst: 5,
			},
		},
	}
}

// Validate checks the rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DefaultRPS <= 0 || c.DefaultBurst <= 0 {
		return fmt.Errorf("default rps and burst must be positive")
	}
	for key, limit := range c.EndpointLimits {
		if limit.RPS <= 0 || limit.Burst <= 0 {
			return fmt.Errorf("endpoint %s: rps and burst must be positive", key)
		}
	}
	return nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and endpoint class.
type RateLimiter struct {
	config   *RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	done     chan struct{}
	once     sync.Once
}

// RateLimitStats summarizes the limiter state
type RateLimitStats struct {
	Enabled        bool `json:"enabled"`
	ActiveLimiters int  `json:"active_limiters"`
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(config *RateLimitConfig) (*RateLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*limiterEntry),
		done:     make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl, nil
}

// Allow takes one token from the bucket of client on endpoint.
func (rl *RateLimiter) Allow(client, endpoint string) (bool, *EndpointLimit) {
	limit, special := rl.config.EndpointLimits[endpoint]
	key := client
	rps, burst := rl.config.DefaultRPS, rl.config.DefaultBurst
	if special {
		key = endpoint + "|" + client
		rps, burst = limit.RPS, limit.Burst
	}

	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow(), limit
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.config.IdleTimeout {
			delete(rl.limiters, key)
		}
	}
}

// Stats returns rate limiter statistics
func (rl *RateLimiter) Stats() RateLimitStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return RateLimitStats{Enabled: rl.config.Enabled, ActiveLimiters: len(rl.limiters)}
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// RateLimitMiddleware limits requests per caller, falling back to the client
// IP for anonymous requests. Rejections are recorded in audit when it is set.
func RateLimitMiddleware(rl *RateLimiter, audit *AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.GetHeader(HeaderCaller)
		if client == "" {
			client = c.ClientIP()
		}

		allowed, limit := rl.Allow(client, c.Request.Method+" "+c.FullPath())
		if !allowed {
			message := "Rate limit exceeded"
			rps, burst := rl.config.DefaultRPS, rl.config.DefaultBurst
			if limit != nil {
				rps, burst = limit.RPS, limit.Burst
				if limit.CustomMessage != "" {
					message = limit.CustomMessage
				}
			}
			if audit != nil {
				audit.LogRateLimitExceeded(c, fmt.Sprintf("%d rps, burst %d", rps, burst))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: message,
				Code:  "RATE_LIMIT",
			})
			return
		}

		c.Next()
	}
}
