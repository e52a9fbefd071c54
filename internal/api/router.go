package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/middleware"
)

// RouterConfig collects the optional pieces of the HTTP surface.
type RouterConfig struct {
	// Stream serves GET /api/v1/stream when set, typically a
	// *sink.WebSocket that is also registered as a match sink.
	Stream  http.Handler
	Health  *health.Checker
	Metrics *metrics.Metrics
	// RequestTimeout bounds every route except the stream.
	RequestTimeout time.Duration
	// Limiter throttles the accept routes per client address when set.
	Limiter *middleware.Limiter
}

// NewRouter builds the HTTP handler.
//
//	POST /api/v1/documents        accept a document
//	POST /api/v1/queries          register a standing query
//	GET  /api/v1/documents/{id}   stored document
//	GET  /api/v1/queries/{id}     registered query
//	GET  /api/v1/search?terms=    documents containing every term
//	GET  /api/v1/related?terms=   terms co-occurring with every term
//	GET  /api/v1/terms            document vocabulary
//	GET  /api/v1/stats            index statistics
//	GET  /api/v1/stream           WebSocket match stream
//	GET  /health/live, /health/ready
//
// Middleware, outermost first: RequestID, CORS, Metrics. The two accept
// routes are also rate limited per client when cfg.Limiter is set.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	timeout := middleware.Timeout(cfg.RequestTimeout)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, timeout(fn))
	}

	limit := middleware.RateLimit(cfg.Limiter)
	mux.Handle("POST /api/v1/documents", limit(timeout(http.HandlerFunc(h.AcceptDocument))))
	mux.Handle("POST /api/v1/queries", limit(timeout(http.HandlerFunc(h.AcceptQuery))))
	handle("GET /api/v1/documents/{id}", h.GetDocument)
	handle("GET /api/v1/queries/{id}", h.GetQuery)
	handle("GET /api/v1/search", h.Search)
	handle("GET /api/v1/related", h.Related)
	handle("GET /api/v1/terms", h.Terms)
	handle("GET /api/v1/stats", h.Stats)

	if cfg.Stream != nil {
		mux.Handle("GET /api/v1/stream", cfg.Stream)
	}
	checker := cfg.Health
	if checker == nil {
		checker = health.NewChecker()
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	return middleware.Chain(chain,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig()),
	)
}
