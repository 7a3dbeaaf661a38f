package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ssorath/centsible/internal/models"
)

// TokenManager mints and verifies the signed token pair representing a
// session. Tokens are stateless: there is no server-side revocation list, so
// logout is client-side token discard and a token stays valid until its
// natural expiry.
type TokenManager struct {
	accessSecret  string
	refreshSecret string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Issue creates an access/refresh pair carrying the user's identity claims.
func (tm *TokenManager) Issue(user *models.User) (*models.TokenPair, error) {
	accessToken, err := tm.sign(user, models.TokenTypeAccess, tm.accessSecret, tm.accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := tm.sign(user, models.TokenTypeRefresh, tm.refreshSecret, tm.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (tm *TokenManager) sign(user *models.User, tokenType, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:    tokenType,
		UserID:  user.ID,
		Email:   user.Email,
		IsGuest: user.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify checks a token of the given type and returns its claims. Expired
// tokens fail with ErrTokenExpired, anything else (bad signature, malformed,
// wrong type) with ErrTokenInvalid; callers rely on the distinction to choose
// between a silent refresh and a forced re-login.
func (tm *TokenManager) Verify(tokenString, tokenType string) (*models.TokenClaims, error) {
	secret := tm.accessSecret
	if tokenType == models.TokenTypeRefresh {
		secret = tm.refreshSecret
	}

	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}

	if !token.Valid || claims.Type != tokenType {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
