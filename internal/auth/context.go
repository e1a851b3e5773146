package auth

import "context"

// ContextKey is the gin context key under which the gate middleware stores the claims.
const ContextKey = "auth.claims"

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the authenticated claim set.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claim set attached by WithClaims, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
