// Package grpcmw provides gRPC interceptors backed by throttle admitters.
// It lives in a sub-package so that projects using only the HTTP
// middleware do not pull in google.golang.org/grpc.
package grpcmw

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	throttle "github.com/KARTIKrocks/go-throttle"
)

type config struct {
	exclude  map[string]bool
	logger   *zap.Logger
	onDenied func(ctx context.Context, fullMethod string)
}

// Option configures the interceptors.
type Option func(*config)

// WithExcludeMethods skips throttling for the given full method names,
// e.g. "/pkg.Service/Health".
func WithExcludeMethods(methods ...string) Option {
	return func(cfg *config) {
		for _, m := range methods {
			cfg.exclude[m] = true
		}
	}
}

// WithLogger sets the logger for denial events. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithOnDenied sets a callback invoked for every denied call, after
// logging and before the status is returned.
func WithOnDenied(fn func(ctx context.Context, fullMethod string)) Option {
	return func(cfg *config) {
		cfg.onDenied = fn
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{exclude: make(map[string]bool)}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

func (cfg *config) deny(ctx context.Context, fullMethod string) error {
	cfg.logger.Warn("rpc throttled", zap.String("method", fullMethod))
	if cfg.onDenied != nil {
		cfg.onDenied(ctx, fullMethod)
	}
	return status.Error(codes.ResourceExhausted, throttle.ErrThrottled.Error())
}

// UnaryServerInterceptor throttles unary calls through a single admitter.
// Denied calls fail with codes.ResourceExhausted and never reach the
// handler.
func UnaryServerInterceptor(a throttle.Admitter, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if cfg.exclude[info.FullMethod] {
			return handler(ctx, req)
		}
		if !a.Allow() {
			return nil, cfg.deny(ctx, info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor throttles stream openings through a single
// admitter. One admission covers the whole stream, not each message.
func StreamServerInterceptor(a throttle.Admitter, opts ...Option) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if cfg.exclude[info.FullMethod] {
			return handler(srv, ss)
		}
		if !a.Allow() {
			return cfg.deny(ss.Context(), info.FullMethod)
		}
		return handler(srv, ss)
	}
}

// UnaryClientInterceptor throttles outgoing unary calls. Useful in front
// of an upstream API with a published request budget: denied calls fail
// locally with codes.ResourceExhausted instead of burning the upstream
// quota.
func UnaryClientInterceptor(a throttle.Admitter, opts ...Option) grpc.UnaryClientInterceptor {
	cfg := newConfig(opts)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		if cfg.exclude[method] {
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}
		if !a.Allow() {
			return cfg.deny(ctx, method)
		}
		return invoker(ctx, method, req, reply, cc, callOpts...)
	}
}
