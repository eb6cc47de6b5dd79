package auth

import (
	"net/http"

	authlib "example.com/ranking/internal/platform/auth"
)

// publicPaths are served without a token.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// NewMiddleware verifies tokens against cfg and admits only valid actors. Preflight
// requests and health probes pass through.
func NewMiddleware(cfg Config) authlib.Middleware {
	return authlib.NewMiddleware(cfg,
		authlib.WithRealm("ranking"),
		authlib.WithSkipper(func(r *http.Request) bool {
			return r.Method == http.MethodOptions || publicPaths[r.URL.Path]
		}),
		authlib.WithClaimsValidator(ValidateActor),
	)
}
