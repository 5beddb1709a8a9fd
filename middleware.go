package throttle

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OnLimitReached is called when a request is denied.
type OnLimitReached func(w http.ResponseWriter, r *http.Request)

// Middleware guards an http.Handler with a single admitter. Every request
// routed through the wrapped handler draws from the same budget; this is
// operation-level throttling, not per-client fairness. Use one middleware
// per route group that should share a budget.
func Middleware(a Admitter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		statusCode: http.StatusTooManyRequests,
		addHeaders: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.onLimitReached == nil {
		cfg.onLimitReached = cfg.defaultOnLimitReached
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	tracker := headerTracker(a)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skipFunc != nil && cfg.skipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			allowed := a.Allow()

			if cfg.addHeaders && tracker != nil {
				AddRateLimitHeaders(w.Header(), tracker, allowed)
			}

			if !allowed {
				cfg.logger.Warn("request throttled",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				cfg.onLimitReached(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type middlewareConfig struct {
	onLimitReached OnLimitReached
	statusCode     int
	addHeaders     bool
	skipFunc       func(*http.Request) bool
	logger         *zap.Logger
}

// defaultOnLimitReached returns a plain-text error using the configured status code.
func (cfg *middlewareConfig) defaultOnLimitReached(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Rate limit exceeded", cfg.statusCode)
}

// MiddlewareOption is an option for the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithOnLimitReached sets the handler for denied requests.
func WithOnLimitReached(fn OnLimitReached) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.onLimitReached = fn
	}
}

// WithStatusCode sets the status code returned for denied requests.
func WithStatusCode(code int) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.statusCode = code
	}
}

// WithHeaders enables or disables rate limit headers.
func WithHeaders(enabled bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.addHeaders = enabled
	}
}

// WithSkipFunc sets a function to determine if throttling should be skipped.
func WithSkipFunc(fn func(*http.Request) bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.skipFunc = fn
	}
}

// WithLogger sets the logger for denial events. Defaults to a no-op
// logger; the library never logs unless asked to.
func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = logger
	}
}

// headerTracker unwraps an admitter chain down to the tracker whose
// window feeds the advisory headers. Returns nil when there is none, for
// example with a Multi.
func headerTracker(a Admitter) *Tracker {
	for a != nil {
		if t, ok := a.(*Tracker); ok {
			return t
		}
		u, ok := a.(interface{ Unwrap() Admitter })
		if !ok {
			return nil
		}
		a = u.Unwrap()
	}
	return nil
}

// AddRateLimitHeaders adds advisory rate limit headers from the tracker's
// current state. The values are snapshots taken after the admission
// decision; concurrent callers may have moved the counter in between.
func AddRateLimitHeaders(h http.Header, t *Tracker, allowed bool) {
	iv := t.Interval()
	h.Set("X-RateLimit-Limit", strconv.Itoa(iv.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(t.Remaining()))

	_, end := t.Window()
	if end.IsZero() {
		return
	}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(end.Unix(), 10))

	if !allowed {
		if retry := time.Until(end); retry > 0 {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		}
	}
}

// DefaultOnLimitReached is the default handler for denied requests. When
// used with WithOnLimitReached, it always uses 429. To customize the
// status code, use WithStatusCode without WithOnLimitReached (the default
// handler respects WithStatusCode).
func DefaultOnLimitReached(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
}

// JSONOnLimitReached returns a JSON response for denied requests with a
// 429 status code. Use JSONOnLimitReachedWithCode to customize.
func JSONOnLimitReached(w http.ResponseWriter, r *http.Request) {
	jsonOnLimitReached(w, http.StatusTooManyRequests)
}

// JSONOnLimitReachedWithCode creates a JSON response handler with a custom status code.
func JSONOnLimitReachedWithCode(statusCode int) OnLimitReached {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonOnLimitReached(w, statusCode)
	}
}

func jsonOnLimitReached(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprint(w, `{"error":"throttled","message":"Too many requests"}`)
}

// Skip Functions

// SkipHealthChecks skips throttling for common health check paths.
func SkipHealthChecks(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/healthz", "/ready", "/readyz", "/live", "/livez", "/ping":
		return true
	}
	return false
}

// SkipPrivateIPs skips throttling for private IP addresses.
func SkipPrivateIPs(r *http.Request) bool {
	ip := net.ParseIP(clientIP(r))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

// SkipMethods creates a skip function that skips specific HTTP methods.
func SkipMethods(methods ...string) func(*http.Request) bool {
	methodSet := make(map[string]bool)
	for _, m := range methods {
		methodSet[strings.ToUpper(m)] = true
	}
	return func(r *http.Request) bool {
		return methodSet[r.Method]
	}
}

// SkipPaths creates a skip function that skips specific paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	pathSet := make(map[string]bool)
	for _, p := range paths {
		pathSet[p] = true
	}
	return func(r *http.Request) bool {
		return pathSet[r.URL.Path]
	}
}

// SkipIf combines multiple skip functions with OR logic.
func SkipIf(funcs ...func(*http.Request) bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		for _, fn := range funcs {
			if fn(r) {
				return true
			}
		}
		return false
	}
}

// clientIP extracts the client IP from RemoteAddr only. Proxy headers are
// not consulted; they can be spoofed and skip decisions must not trust
// them.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Handler Adapters

// Handler guards an http.Handler with an admitter.
func Handler(handler http.Handler, a Admitter, opts ...MiddlewareOption) http.Handler {
	return Middleware(a, opts...)(handler)
}

// HandlerFunc guards an http.HandlerFunc with an admitter.
func HandlerFunc(fn http.HandlerFunc, a Admitter, opts ...MiddlewareOption) http.HandlerFunc {
	return Middleware(a, opts...)(fn).ServeHTTP
}
