package handlers

import (
	"context"
	"net/http"
	"time"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/security"
	"studycards/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRF
	limiter     *security.RateLimiter
	log         *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRF, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		log:         log,
	}
}

// currentUser validates the session cookie of the request
func (m *Middleware) currentUser(r *http.Request) (*models.User, string, bool) {
	cookie, err := r.Cookie(security.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, "", false
	}
	user, err := m.authService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, "", false
	}
	return user, cookie.Value, true
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, sessionID, ok := m.currentUser(r)
		if !ok {
			http.SetCookie(w, security.ExpiredCookie(r, security.SessionCookieName))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user, sessionID)))
	}
}

// RequireAPIAuth is RequireAuth for the JSON API: it answers 401 instead of redirecting.
// Authenticated responses carry the session's CSRF token in the X-CSRF-Token header.
func (m *Middleware) RequireAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, sessionID, ok := m.currentUser(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		r = r.WithContext(withUser(r.Context(), user, sessionID))
		if token := m.CSRFToken(r); token != "" {
			w.Header().Set(security.CSRFHeader, token)
		}
		next(w, r)
	}
}

// validCSRF checks the header or form token against the session in the context
func (m *Middleware) validCSRF(r *http.Request) bool {
	token := r.Header.Get(security.CSRFHeader)
	if token == "" {
		token = r.FormValue(security.CSRFFormField)
	}
	if m.csrf.Valid(GetSessionIDFromContext(r.Context()), token) {
		return true
	}
	m.log.Warn("csrf token rejected", "path", r.URL.Path, "ip", security.ClientIP(r))
	return false
}

// CSRFProtect checks the token of an authenticated form post.
// It must run inside RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.validCSRF(r) {
			http.Error(w, ErrForbiddenCSRF, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// APICSRFProtect is CSRFProtect for the JSON API. It must run inside RequireAPIAuth.
func (m *Middleware) APICSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.validCSRF(r) {
			writeJSONError(w, http.StatusForbidden, "csrf", ErrForbiddenCSRF)
			return
		}
		next(w, r)
	}
}

// RateLimit limits attempts per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.ClientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.Warn("rate limit exceeded", "path", r.URL.Path, "ip", ip)
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// CSRFToken returns the token for the session of an authenticated request
func (m *Middleware) CSRFToken(r *http.Request) string {
	token, err := m.csrf.Token(GetSessionIDFromContext(r.Context()))
	if err != nil {
		return ""
	}
	return token
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func withUser(ctx context.Context, user *models.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, SessionContextKey, sessionID)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionIDFromContext retrieves the login session id from the request context
func GetSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}

// authFromRequest builds the AuthContext handed to services
func authFromRequest(r *http.Request) (models.AuthContext, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		return models.AuthContext{}, false
	}
	return models.NewAuthContext(user), true
}
