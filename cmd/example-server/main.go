// Example server wiring trackers, middleware and metrics together.
//
// Run it, then hammer an endpoint:
//
//	go run ./cmd/example-server
//	for i in $(seq 1 15); do curl -s -o /dev/null -w "%{http_code}\n" localhost:8080/search; done
//
// The first requests return 200 until the window budget is spent, the
// rest 429 until the window rolls. Admission counts are exported at
// /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	throttle "github.com/KARTIKrocks/go-throttle"
	"github.com/KARTIKrocks/go-throttle/metrics"
)

const requestIDHeader = "X-Request-ID"

type config struct {
	Env    string        `mapstructure:"env"`
	Listen string        `mapstructure:"listen"`
	Window time.Duration `mapstructure:"window"`
	Limit  int           `mapstructure:"limit"`
	Slack  time.Duration `mapstructure:"slack"`
}

func loadConfig() (*config, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("THROTTLE")

	v.SetDefault("env", "development")
	v.SetDefault("listen", ":8080")
	v.SetDefault("window", "2s")
	v.SetDefault("limit", 10)
	v.SetDefault("slack", "10ms")

	for _, key := range []string{"env", "listen", "window", "limit", "slack"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func newLogger(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// requestID tags every request and response with a correlation identifier.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one line per request.
func accessLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterPrometheus(prometheus.DefaultRegisterer)

	// Both routes draw from trackers registered by name: any other part
	// of the process asking for the same key shares the same budget.
	registry := throttle.NewRegistry()

	searchTracker, err := registry.Tracker("search", cfg.Window, cfg.Limit,
		throttle.WithSlack(cfg.Slack))
	if err != nil {
		logger.Fatal("failed to build search tracker", zap.Error(err))
	}
	// Exports are ten times more expensive than searches.
	exportTracker, err := registry.Tracker("export", cfg.Window, cfg.Limit/10+1,
		throttle.WithSlack(cfg.Slack))
	if err != nil {
		logger.Fatal("failed to build export tracker", zap.Error(err))
	}

	search := metrics.NewInstrumented(searchTracker, "search")
	export := metrics.NewInstrumented(exportTracker, "export")

	mux := http.NewServeMux()
	mux.Handle("/search", throttle.Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "results for %q\n", r.URL.Query().Get("q"))
		}),
		search,
		throttle.WithLogger(logger),
		throttle.WithOnLimitReached(throttle.JSONOnLimitReached),
	))
	mux.Handle("/export", throttle.Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, "export started")
		}),
		export,
		throttle.WithLogger(logger),
		throttle.WithSkipFunc(throttle.SkipMethods(http.MethodOptions)),
	))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           requestID(accessLog(logger, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Listen),
			zap.String("search_budget", searchTracker.String()),
			zap.String("export_budget", exportTracker.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
