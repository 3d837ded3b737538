package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"paygate/internal/app"
	"paygate/internal/ratelimit"
	"paygate/internal/usertoken"
	"paygate/internal/util"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier *usertoken.Verifier

	RedisAddr                  string
	RedisPassword              string
	PurchaseRateLimitPerMinute int

	TrustedProxyCIDRs []string
}

// Server exposes the HTTP API.
type Server struct {
	app             *app.App
	tokenVerifier   *usertoken.Verifier
	mux             *http.ServeMux
	purchaseLimiter *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
	now             func() time.Time
}

// New constructs the server with routes configured. A zero purchase rate
// limit disables purchase throttling; a nil token verifier disables bearer
// checks (local development).
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	var purchaseLimiter *ratelimit.FixedWindowLimiter
	if cfg.PurchaseRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "paygate:ratelimit:purchase",
			cfg.PurchaseRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			return nil, fmt.Errorf("init purchase limiter: %w", err)
		}
		purchaseLimiter = limiter
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:             cfg.App,
		tokenVerifier:   cfg.TokenVerifier,
		mux:             http.NewServeMux(),
		purchaseLimiter: purchaseLimiter,
		trustedProxies:  trusted,
		now:             func() time.Time { return time.Now().UTC() },
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog("paygate",
			util.WithSecurityHeaders(
				util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// users
	s.mux.HandleFunc("/api/users", s.handleUsers)
	s.mux.HandleFunc("/api/users/", s.handleUserByUID)

	// collections; exact matches win over the id prefix
	s.mux.HandleFunc("/api/collections", s.handleCollections)
	s.mux.HandleFunc("/api/collections/published", s.handlePublishedCollections)
	s.mux.HandleFunc("/api/collections/user/", s.handleCollectionsByUser)
	s.mux.HandleFunc("/api/collections/", s.handleCollectionByID)

	// contents
	s.mux.HandleFunc("/api/contents", s.handleContents)
	s.mux.HandleFunc("/api/contents/reorder", s.handleReorderContents)
	s.mux.HandleFunc("/api/contents/collection/", s.handleContentsByCollection)
	s.mux.HandleFunc("/api/contents/", s.handleContentByID)

	// purchases
	s.mux.HandleFunc("/api/purchases", s.handlePurchases)
	s.mux.HandleFunc("/api/purchases/user/", s.handlePurchasesByUser)
	s.mux.HandleFunc("/api/purchases/access", s.handleAccessCheck)
	s.mux.HandleFunc("/api/purchases/decrement-views", s.handleDecrementViews)
	s.mux.HandleFunc("/api/purchases/", s.handlePurchaseByID)
}

// handleHealth always answers 200; database reports connected or
// disconnected so the service stays probeable in degraded mode.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	database := "disconnected"
	if s.app.DatabaseConnected() {
		database = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"database":  database,
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// authorized gates mutating routes behind a bearer token when a verifier is
// configured. Without one every request passes.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.tokenVerifier == nil {
		return true
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if _, err := s.tokenVerifier.VerifySubject(token); err != nil {
		slog.Warn("token rejected", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func decodeJSON(r *http.Request, into any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(into)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// pathSuffix strips prefix from the request path and rejects nested paths.
func pathSuffix(r *http.Request, prefix string) (string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || rest == r.URL.Path || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors onto HTTP statuses. Unclassified
// errors are logged with detail but answered with a generic message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, app.ErrStoreUnavailable.Error())
	case errors.Is(err, app.ErrObjectStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, app.ErrObjectStoreUnavailable.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"request_id", util.RequestIDFromRequest(r),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
