package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// Gate validates bearer tokens presented on protected requests.
type Gate struct {
	secret   []byte
	now      func() time.Time
	denylist Denylist
}

func NewGate(secret []byte, opts ...Option) (*Gate, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	o := buildOptions(opts)
	return &Gate{secret: secret, now: o.now, denylist: o.denylist}, nil
}

// Authenticate resolves a raw Authorization header value to the claim set it carries.
//
// The result is ErrMissingToken when no Bearer credential is present,
// ErrTokenExpired when the signature checks out but the window has elapsed,
// and ErrTokenInvalid (or ErrTokenRevoked) for everything else.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Claims, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}

	claims, err := g.parse(raw)
	if err != nil {
		return nil, err
	}

	if g.denylist != nil && claims.ID != "" {
		revoked, err := g.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke adds the token behind claims to the denylist until it would expire anyway.
func (g *Gate) Revoke(ctx context.Context, claims *Claims) error {
	if g.denylist == nil {
		return errors.New("revocation is not configured")
	}
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}

	ttl := claims.ExpiresAt.Time.Sub(g.now())
	if ttl <= 0 {
		return nil
	}
	if err := g.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (g *Gate) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		// jwt/v5 checks the signature before the claims, so an expiry error
		// implies the signature was valid.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
