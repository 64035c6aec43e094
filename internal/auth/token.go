// Package auth verifies the bearer tokens issued by the identity provider and
// resolves them to an owning identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/config"
)

const leeway = 30 * time.Second

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("token_expired")
	ErrMissingOwner = errors.New("missing_subject")
	ErrNoSecret     = errors.New("auth_jwt_secret_missing")
)

// Verifier resolves a raw bearer token to the identity that owns the request.
type Verifier interface {
	Verify(token string) (uuid.UUID, error)
}

// JWTVerifier checks HS256 tokens and reads the identity from "sub".
type JWTVerifier struct {
	secret []byte
	issuer string
	clock  clock.Clock
}

func NewJWTVerifier(cfg config.Config, clk clock.Clock) (*JWTVerifier, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.AuthJWTIssuer),
		clock:  clk,
	}, nil
}

func (v *JWTVerifier) Verify(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return uuid.Nil, ErrMissingOwner
	}
	userID, err := uuid.Parse(subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	return userID, nil
}

// Sign issues a token for userID. It exists for local tooling and tests; the
// production identity provider signs its own tokens.
func (v *JWTVerifier) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
