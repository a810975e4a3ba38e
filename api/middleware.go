package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

const (
	// HeaderCaller carries the bech32 identity a mutating request acts as.
	// The devnet trusts it; nothing is signed.
	HeaderCaller = "X-Caller"
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyCaller holds the parsed caller address
	ContextKeyCaller = "caller"
	// ContextKeyRequestID holds the request id
	ContextKeyRequestID = "request_id"
)

// CallerMiddleware requires a valid X-Caller header and stores the parsed
// address in the context
func CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(HeaderCaller)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: HeaderCaller + " header required",
				Code:  "CALLER_REQUIRED",
			})
			return
		}

		caller, err := ParseAddress(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid " + HeaderCaller + " header",
				Code:    "INVALID_CALLER",
				Details: err.Error(),
			})
			return
		}

		c.Set(ContextKeyCaller, caller)
		c.Next()
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(origins []string) gin.HandlerFunc {
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", HeaderCaller, HeaderRequestID},
		ExposedHeaders:   []string{HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return func(c *gin.Context) {
		handler.HandlerFunc(c.Writer, c.Request)

		// Preflight requests are answered by the cors handler.
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.Abort()
			return
		}

		c.Next()
	}
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}

		c.Next()

		status := c.Writer.Status()
		keyvals := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ContextKeyRequestID),
		}
		if caller := c.GetHeader(HeaderCaller); caller != "" {
			keyvals = append(keyvals, "caller", caller)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", keyvals...)
		case status >= http.StatusBadRequest:
			logger.Info("request", keyvals...)
		default:
			logger.Debug("request", keyvals...)
		}
	}
}

// MetricsMiddleware records request counts and latencies per route
func MetricsMiddleware(metrics *GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimitMiddleware caps request bodies at maxBytes
func RequestSizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "Request body too large",
				Code:  "REQUEST_TOO_LARGE",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// TimeoutMiddleware bounds the request context. Ledger operations already
// running are not interrupted; the deadline stops queued work from starting.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
