package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"userhub/internal/domain"
)

// TokenTTL is the fixed validity window of every session token.
const TokenTTL = time.Hour

// Token is a freshly minted session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Issuer mints HS256-signed session tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	o := buildOptions(opts)
	return &Issuer{secret: secret, now: o.now}, nil
}

// Issue builds the claim set from the summary and signs it. Only identity
// fields are embedded; the stored credential never reaches the token.
func (i *Issuer) Issue(user *domain.UserSummary) (Token, error) {
	if user == nil {
		return Token{}, errors.New("issue token: nil user")
	}

	now := i.now()
	expiresAt := now.Add(TokenTTL)
	id := uuid.NewString()

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ID: id, ExpiresAt: expiresAt}, nil
}
