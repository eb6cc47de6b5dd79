// Package auth maps verified bearer tokens onto the ranking actor model.
package auth

import (
	"context"
	"errors"
	"fmt"

	authlib "example.com/ranking/internal/platform/auth"
)

type (
	// Claims is the verified identity of the caller.
	Claims = authlib.Claims
	// Config carries the token verification settings.
	Config = authlib.Config
)

// ErrUnknownProfile rejects tokens whose profile claim is not an actor profile.
var ErrUnknownProfile = errors.New("unknown actor profile")

// ErrMissingUnit rejects unit-affiliated profiles that carry no unit_id claim.
var ErrMissingUnit = errors.New("profile requires a unit affiliation")

// ValidateActor checks that claims describe a usable actor: a known profile and, for
// counselors and members, the unit they belong to.
func ValidateActor(c *Claims) error {
	if !KnownProfile(c.Profile) {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile)
	}
	if c.Profile != ProfileBoard && c.UnitID == "" {
		return ErrMissingUnit
	}
	return nil
}

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}
