// Package ginmw provides a Gin middleware backed by throttle admitters.
// It lives in a sub-package so that projects using only net/http do not
// pull in gin.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	throttle "github.com/KARTIKrocks/go-throttle"
)

type config struct {
	statusCode int
	addHeaders bool
	logger     *zap.Logger
	onDenied   func(c *gin.Context)
}

// Option configures the middleware.
type Option func(*config)

// WithStatusCode sets the status code returned for denied requests.
func WithStatusCode(code int) Option {
	return func(cfg *config) {
		cfg.statusCode = code
	}
}

// WithHeaders enables or disables rate limit headers.
func WithHeaders(enabled bool) Option {
	return func(cfg *config) {
		cfg.addHeaders = enabled
	}
}

// WithLogger sets the logger for denial events. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithOnDenied replaces the default denial response. The callback must
// abort the context itself.
func WithOnDenied(fn func(c *gin.Context)) Option {
	return func(cfg *config) {
		cfg.onDenied = fn
	}
}

// Handler guards a Gin route or group with a single admitter. All
// requests through the handler share one budget.
func Handler(a throttle.Admitter, opts ...Option) gin.HandlerFunc {
	cfg := &config{
		statusCode: http.StatusTooManyRequests,
		addHeaders: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	tracker := headerTracker(a)

	return func(c *gin.Context) {
		allowed := a.Allow()

		if cfg.addHeaders && tracker != nil {
			throttle.AddRateLimitHeaders(c.Writer.Header(), tracker, allowed)
		}

		if !allowed {
			cfg.logger.Warn("request throttled",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			if cfg.onDenied != nil {
				cfg.onDenied(c)
				return
			}
			c.AbortWithStatusJSON(cfg.statusCode, gin.H{
				"error":   "throttled",
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}

// headerTracker unwraps an admitter chain down to the tracker feeding the
// advisory headers.
func headerTracker(a throttle.Admitter) *throttle.Tracker {
	for a != nil {
		if t, ok := a.(*throttle.Tracker); ok {
			return t
		}
		u, ok := a.(interface{ Unwrap() throttle.Admitter })
		if !ok {
			return nil
		}
		a = u.Unwrap()
	}
	return nil
}
