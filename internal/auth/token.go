// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelist/reelist/internal/config"
)

// ErrTokenInvalid is returned for every bearer token verification failure:
// malformed input, undecodable segments, bad signature, or expiry. The
// single outcome is an anti-enumeration measure; callers must not be able
// to distinguish which check failed.
var ErrTokenInvalid = errors.New("invalid or expired token")

// Claims are the identity claims carried by a Reelist bearer token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC-SHA256 signed bearer tokens.
//
// Tokens are stateless: there is no revocation list, and expiry is the only
// termination mechanism. Compromise of a token before expiry can only be
// remediated by rotating the signing secret, which invalidates all
// outstanding tokens at once.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	// now is the clock, injectable for expiry tests.
	now func() time.Time
}

// NewTokenService creates a token service from the security configuration.
// The secret must be at least 32 characters.
func NewTokenService(cfg *config.SecurityConfig) (*TokenService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}

	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for an authenticated principal.
// The payload carries user_id, username, email, iat = now and
// exp = now + TTL. Issue has no side effects.
func (s *TokenService) Issue(userID int64, username, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify validates a token string and returns its claims.
//
// The signature is recomputed over the header and payload segments and
// compared in constant time (the HMAC verification inside the jwt library
// uses hmac.Equal). Expiry must be strictly in the future. Any failure,
// including wrong segment count or undecodable base64, returns
// ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// keyFunc pins the signing algorithm to HMAC before releasing the secret.
func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
