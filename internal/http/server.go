package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kakebo/internal/cache"
	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/services"
)

// Resetter restores seed state; only the memory backend implements it.
type Resetter interface {
	Reset() error
}

type Server struct {
	http.Server
	svc         *services.BudgetService
	resetter    Resetter
	rateLimiter *rateLimiter

	// Read-side caches keyed by month label, dropped on every mutation.
	budgetCache  *cache.LRUCache[services.BudgetData]
	metricsCache *cache.LRUCache[[]core.CategoryMetrics]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, svc *services.BudgetService, resetter Resetter, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		resetter:         resetter,
		rateLimiter:      newRateLimiter(),
		budgetCache:      cache.NewLRUCache[services.BudgetData](24, cacheTTL),
		metricsCache:     cache.NewLRUCache[[]core.CategoryMetrics](24, cacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	// Start periodic cache cleanup
	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleListCategories))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withMiddleware(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/budget", s.withMiddleware(s.handleBudget))
	mux.HandleFunc("POST /api/budget/categories", s.withMiddleware(s.handleAddCategory))
	mux.HandleFunc("PUT /api/budget/categories/{id}", s.withMiddleware(s.handleUpdateAmount))
	mux.HandleFunc("DELETE /api/budget/categories/{id}", s.withMiddleware(s.handleRemoveAllocation))

	mux.HandleFunc("GET /api/metrics", s.withMiddleware(s.handleMetrics))
	mux.HandleFunc("GET /api/chart", s.withMiddleware(s.handleChart))
	mux.HandleFunc("GET /api/gauge", s.withMiddleware(s.handleGauge))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleCreateExpense))

	mux.HandleFunc("GET /api/purchase", s.withMiddleware(s.handlePurchaseView))
	mux.HandleFunc("POST /api/purchase", s.withMiddleware(s.handlePurchase))

	mux.HandleFunc("POST /api/reset", s.withMiddleware(s.handleReset))

	return s
}

// startCacheCleanup runs periodic cleanup for both caches
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			budgetCleaned := s.budgetCache.CleanExpired()
			metricsCleaned := s.metricsCache.CleanExpired()
			if budgetCleaned > 0 || metricsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"budget_entries_removed", budgetCleaned,
					"metrics_entries_removed", metricsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started", log.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
			WithClientIP(clientIP).
			ToSlice()...)

		// Rate-limit mutations only; reads are cache-backed anyway
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture the status code for the completion log
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed", log.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds(), rw.statusCode < 400).
			WithClientIP(clientIP).
			ToSlice()...)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// invalidate drops both read caches after any ledger mutation.
func (s *Server) invalidate() {
	s.budgetCache.Clear()
	s.metricsCache.Clear()
}

func (s *Server) getBudgetData(ctx context.Context, month core.Month) (services.BudgetData, error) {
	key := string(month)
	if data, found := s.budgetCache.Get(key); found {
		slog.DebugContext(ctx, "Budget cache hit", "month", month)
		return data, nil
	}

	data, err := s.svc.BudgetData(ctx, month)
	if err != nil {
		return services.BudgetData{}, err
	}
	s.budgetCache.Set(key, data)
	return data, nil
}

func (s *Server) getMetrics(ctx context.Context, month core.Month) ([]core.CategoryMetrics, error) {
	key := string(month)
	if metrics, found := s.metricsCache.Get(key); found {
		slog.DebugContext(ctx, "Metrics cache hit", "month", month)
		// Return a copy to prevent external mutation
		out := make([]core.CategoryMetrics, len(metrics))
		copy(out, metrics)
		return out, nil
	}

	metrics, err := s.svc.MonthMetrics(ctx, month)
	if err != nil {
		return nil, err
	}
	s.metricsCache.Set(key, metrics)
	return metrics, nil
}
