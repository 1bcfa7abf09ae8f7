// Package auth issues and checks the credentials that identify an athlete
// to the API.
//
// SIGN-IN FLOW:
//  1. The athlete registers or logs in with email + password, or goes
//     through GitHub at /auth/github/login.
//  2. The server resolves that to an account and issues a JWT whose subject
//     is the account ID. The same ID is the athlete's user ID in the social
//     state, so nothing else needs to be looked up per request.
//  3. The token is set as an HttpOnly cookie and also returned in the body
//     for clients that prefer an Authorization header.
//  4. RequireAuth validates the token and puts the user ID in the request
//     context for the handlers.
//
// The token is signed with HS256 and verified with the same secret, so no
// database lookup is needed to authenticate a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is written to and required in the "iss" claim.
	Issuer = "common-ground"

	// DefaultTokenTTL is how long an access token stays valid.
	DefaultTokenTTL = 24 * time.Hour

	minSecretLength = 16
)

// ErrTokenExpired is returned by Validate for a well-formed but stale token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService creates and validates signed access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. ttl <= 0 selects DefaultTokenTTL.
//
// The secret should be random in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long tokens from Generate live. Handlers use it for the
// cookie's Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for userID with the service's TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token that expires after d. Tests use a
// negative d to get an already expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}

	issued := s.now()
	c := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns its subject.
//
// Only HS256 is accepted. Restricting the method list is what stops a token
// with "alg":"none" or an RS256 header from being checked against the HMAC
// secret.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
