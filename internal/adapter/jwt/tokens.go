package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// Compile-time checks: Tokens implements both token ports.
var (
	_ domain.TokenIssuer   = (*Tokens)(nil)
	_ domain.TokenVerifier = (*Tokens)(nil)
)

const issuer = "vendorhub"

// Claims is the token payload: the admin id and role, plus registered claims.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	gojwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *gojwt.Parser
}

// New creates a token adapter. ttl is the lifetime of issued tokens.
func New(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		parser: gojwt.NewParser(
			gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
			gojwt.WithIssuer(issuer),
			gojwt.WithExpirationRequired(),
		),
	}, nil
}

// Issue signs a token for the given actor.
func (t *Tokens) Issue(_ context.Context, actor domain.Actor) (string, error) {
	now := t.now()
	claims := Claims{
		ID:   actor.ID,
		Role: string(actor.Role),
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer, and returns the actor the token
// was issued for. Every failure maps to domain.ErrUnauthenticated.
func (t *Tokens) Verify(_ context.Context, raw string) (domain.Actor, error) {
	var claims Claims
	token, err := t.parser.ParseWithClaims(raw, &claims, func(*gojwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	if claims.ID == "" {
		return domain.Actor{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	return domain.Actor{ID: claims.ID, Role: role}, nil
}
