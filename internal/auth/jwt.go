package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrSecretTooShort = errors.New("JWT secret must be at least 32 bytes")
	ErrWrongTokenType = errors.New("wrong token type")
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Type     TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer signs and validates access and refresh tokens
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// IssuerOption configures an Issuer
type IssuerOption func(*Issuer)

// WithClock overrides the time source, used by tests to expire tokens
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer with the given secret and lifetimes
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	i := &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Now returns the issuer's current time
func (i *Issuer) Now() time.Time {
	return i.now()
}

// TTL returns the lifetime of the given token type
func (i *Issuer) TTL(typ TokenType) time.Duration {
	if typ == RefreshToken {
		return i.refreshTTL
	}
	return i.accessTTL
}

// GenerateToken creates a signed token of the given type for a user
func (i *Issuer) GenerateToken(userID, username string, typ TokenType) (string, *JWTClaims, error) {
	now := i.now()
	claims := &JWTClaims{
		UserID:   userID,
		Username: username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL(typ))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken validates a token of the expected type and returns the claims
func (i *Issuer) ValidateToken(tokenString string, typ TokenType) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, typ)
	}
	return claims, nil
}
