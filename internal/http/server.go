package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kharcha/internal/auth"
	"kharcha/internal/cache"
	applog "kharcha/internal/log"
	"kharcha/internal/services"
)

// Server is the JSON API server. It wraps http.Server with the services it
// exposes and the cleanup goroutines it owns.
type Server struct {
	http.Server
	ledger   *services.LedgerService
	splits   *services.SplitService
	planning *services.PlanningService
	tokens   *auth.TokenManager

	rateLimiter *rateLimiter
	httpLog     *applog.StructuredLogger

	// Aggregations rescan the whole ledger, so responses are cached
	// briefly and purged on every ledger write.
	analyticsCache *cache.LRUCache[[]byte]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, splits *services.SplitService, planning *services.PlanningService, tokens *auth.TokenManager) *Server {
	s := &Server{
		ledger:      ledger,
		splits:      splits,
		planning:    planning,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
		httpLog:     applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentHTTP})),

		analyticsCache: cache.NewLRUCache[[]byte](100, time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.analyticsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	r := mux.NewRouter()
	r.Use(prometheusMiddleware())
	r.Use(s.withObservability)

	r.HandleFunc("/healthz", handleHealth).Methods("GET")
	r.HandleFunc("/readyz", s.handleReady).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withAuth)

	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/auth/verify", s.handleVerifyToken).Methods("POST")

	api.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods("POST")
	api.HandleFunc("/transactions/export", s.handleExportTransactions).Methods("GET")
	api.HandleFunc("/transactions/import", s.handleImportTransactions).Methods("POST")
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods("PUT")
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods("DELETE")

	api.HandleFunc("/categories", s.handleListCategories).Methods("GET")
	api.HandleFunc("/categories", s.handleCreateCategory).Methods("POST")

	api.HandleFunc("/analytics/summary", s.handleAnalyticsSummary).Methods("GET")
	api.HandleFunc("/analytics/overview", s.handleAnalyticsOverview).Methods("GET")
	api.HandleFunc("/analytics/trends", s.handleAnalyticsTrends).Methods("GET")

	api.HandleFunc("/expense-splits", s.handleListSplits).Methods("GET")
	api.HandleFunc("/expense-splits", s.handleCreateSplit).Methods("POST")
	api.HandleFunc("/expense-splits/{id}", s.handleGetSplit).Methods("GET")
	api.HandleFunc("/expense-splits/{id}/settle", s.handleSettleSplit).Methods("PUT")

	api.HandleFunc("/recurring", s.handleListRecurring).Methods("GET")
	api.HandleFunc("/recurring", s.handleCreateRecurring).Methods("POST")
	api.HandleFunc("/recurring/{id}", s.handleDeleteRecurring).Methods("DELETE")

	api.HandleFunc("/savings-goals", s.handleListSavingsGoals).Methods("GET")
	api.HandleFunc("/savings-goals", s.handleCreateSavingsGoal).Methods("POST")
	api.HandleFunc("/savings-goals/{id}/contribute", s.handleContributeToSavingsGoal).Methods("PUT")
	api.HandleFunc("/savings-goals/{id}", s.handleDeleteSavingsGoal).Methods("DELETE")

	api.HandleFunc("/goals", s.handleListGoals).Methods("GET")
	api.HandleFunc("/goals", s.handleCreateGoal).Methods("POST")
	api.HandleFunc("/goals/{id}", s.handleUpdateGoal).Methods("PUT")
	api.HandleFunc("/goals/{id}", s.handleDeleteGoal).Methods("DELETE")

	api.HandleFunc("/bill-reminders", s.handleListBillReminders).Methods("GET")
	api.HandleFunc("/bill-reminders", s.handleCreateBillReminder).Methods("POST")
	api.HandleFunc("/bill-reminders/{id}", s.handleUpdateBillReminder).Methods("PUT")
	api.HandleFunc("/bill-reminders/{id}", s.handleDeleteBillReminder).Methods("DELETE")

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// withObservability adds security headers, rate limiting, and request logging.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limiting applies to writes only, reads are cheap local queries.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// withAuth rejects API requests without a valid bearer token. Login is the
// only unauthenticated API endpoint.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		if _, err := s.tokens.Verify(token); err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// extractClientIP considers proxy headers before falling back to the peer address.
func extractClientIP(r *http.Request) string {
	clientIP := r.Header.Get("X-Forwarded-For")
	if clientIP == "" {
		clientIP = r.Header.Get("X-Real-IP")
	}
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	return clientIP
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.ListCategories(r.Context(), ""); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
