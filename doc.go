// Package throttle provides fixed window call throttling with shared,
// registry-backed budgets and thin adapters for functions, net/http, Gin
// and gRPC.
//
// # Features
//
// - Fixed window admission with a hard reset, anchored at submit time
// - Execution slack: decisions charge the call to the window it will run in
// - Keyed registry so independent call sites share one budget per target
// - Function wrapping (the decorator form), plain and context-aware
// - HTTP, Gin and gRPC adapters
// - Prometheus metrics integration
// - Zero logging unless a logger is supplied
//
// # Quick Start
//
// Basic throttling:
//
//	tracker, err := throttle.NewTracker(2*time.Second, 10) // 10 calls per 2s
//	if err != nil {
//	    // invalid configuration
//	}
//	if tracker.Allow() {
//	    // proceed
//	}
//
// Wrapping a function:
//
//	fetch := throttle.Wrap(tracker, func() error {
//	    return client.Fetch()
//	})
//	if err := fetch(); errors.Is(err, throttle.ErrThrottled) {
//	    // denied, try again later
//	}
//
// # The Window Model
//
// A tracker admits at most Limit calls per window of Duration. The first
// admission decision after an idle period opens a window at the submit
// time of that very call; the window is not aligned to multiples of the
// duration. When a decision falls past the window end the tracker
// hard-resets: counter to zero, fresh window at the new submit time.
// Demand denied in an expired window is dropped, never replayed.
//
// The submit time is the clock reading plus a small execution slack
// (DefaultSlack, override with WithSlack). A call admitted at the very
// end of a window would otherwise execute just after it; the slack
// charges it to the window it will actually run in.
//
// Allow never blocks and a denial is final. There is no queueing and no
// retry-after contract; callers that want to wait do so on their own
// schedule.
//
// # Shared Budgets
//
// A Registry hands out one tracker per key, so every call site throttling
// the same target draws from the same budget:
//
//	reg := throttle.NewRegistry()
//	tr, err := reg.Tracker("search-api", time.Minute, 100)
//
// Calls with a key already registered return the existing tracker and
// ignore the configuration arguments. Keys are arbitrary comparable
// values; nil names the shared default tracker. A package-level registry
// is available through Shared and ClearAll.
//
// # Validation
//
// Configuration is checked at construction and never clamped. Errors wrap
// ErrInvalidDuration, ErrInvalidLimit and ErrInvalidSlack:
//
//	_, err := throttle.NewTracker(0, 10)
//	errors.Is(err, throttle.ErrInvalidDuration) // true
//
// A limit of zero is valid and admits nothing, which makes "closed for
// now" budgets expressible without special cases.
//
// # HTTP Middleware
//
// One admitter guards one handler; all requests through it share the
// budget:
//
//	tracker := throttle.MustTracker(time.Second, 50)
//	handler := throttle.Middleware(tracker,
//	    throttle.WithOnLimitReached(throttle.JSONOnLimitReached),
//	    throttle.WithSkipFunc(throttle.SkipHealthChecks),
//	)(yourHandler)
//	http.ListenAndServe(":8080", handler)
//
// When the admitter is a Tracker (possibly wrapped), denials and
// admissions carry advisory X-RateLimit-Limit, X-RateLimit-Remaining,
// X-RateLimit-Reset and Retry-After headers.
//
// # Composite Budgets
//
// Combine trackers with mutex-serialized AND logic, e.g. a per-second and
// a per-hour cap:
//
//	multi := throttle.NewMulti(perSecond, perHour)
//	if multi.Allow() {
//	    // within both budgets
//	}
//
// # Metrics
//
// Built-in metrics collection:
//
//	import "github.com/KARTIKrocks/go-throttle/metrics"
//
//	instrumented := metrics.NewInstrumented(tracker, "search-api")
//
//	stats := metrics.GetStats("search-api")
//	fmt.Printf("Admitted: %d, Denied: %d\n", stats.Admitted, stats.Denied)
//
// Prometheus integration:
//
//	metrics.RegisterPrometheus(prometheus.DefaultRegisterer)
//	// throttle_checks_total, throttle_admitted_total, throttle_denied_total
//
// # Other Adapters
//
// Gin (sub-package ginmw):
//
//	router.GET("/search", ginmw.Handler(tracker), searchHandler)
//
// gRPC (sub-package grpcmw):
//
//	server := grpc.NewServer(
//	    grpc.ChainUnaryInterceptor(grpcmw.UnaryServerInterceptor(tracker)),
//	)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Under contention at the window
// limit, exactly Limit callers are admitted per window.
//
// # Scope
//
// Budgets live in process memory. Nothing is persisted and nothing is
// coordinated across processes; replicas each enforce their own budget.
package throttle
