package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"userhub/internal/domain"
)

// Claims is the session claim set carried inside every issued token.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Summary returns the identity part of the claims.
func (c *Claims) Summary() *domain.UserSummary {
	return &domain.UserSummary{
		ID:    c.UserID,
		Email: c.Email,
		Name:  c.Name,
	}
}
