package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// MiddlewareOption customises Middleware.
type MiddlewareOption func(*Middleware)

// WithSkipper lets requests matching fn through without a token.
func WithSkipper(fn func(*http.Request) bool) MiddlewareOption {
	return func(m *Middleware) {
		m.skip = fn
	}
}

// WithRealm sets the realm advertised in WWW-Authenticate.
func WithRealm(realm string) MiddlewareOption {
	return func(m *Middleware) {
		m.realm = realm
	}
}

// WithClaimsValidator runs fn on every verified token; a non-nil error rejects the request.
func WithClaimsValidator(fn func(*Claims) error) MiddlewareOption {
	return func(m *Middleware) {
		m.validate = fn
	}
}

// Middleware verifies bearer tokens and stores the claims on the request context.
type Middleware struct {
	cfg      Config
	realm    string
	skip     func(*http.Request) bool
	validate func(*Claims) error
}

// NewMiddleware builds a Middleware for tokens signed with cfg.
func NewMiddleware(cfg Config, opts ...MiddlewareOption) Middleware {
	m := Middleware{cfg: cfg, realm: "api"}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Wrap wraps an http.Handler with authentication.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip != nil && m.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := Parse(BearerToken(r), m.cfg)
		if err == nil && m.validate != nil {
			err = m.validate(claims)
		}
		if err != nil {
			m.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) reject(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+m.realm+`"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": err.Error()})
}

// BearerToken extracts the token from the Authorization header, or "" when absent or not a bearer credential.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
