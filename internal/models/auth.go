package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the Type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// OAuth providers supported by the callback flow.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// TokenClaims are the identity claims carried by access and refresh tokens.
type TokenClaims struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	IsGuest bool   `json:"is_guest,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair issued together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ExternalIdentity is the provider-neutral shape of an OAuth profile. Provider
// payloads (Google ID token claims, Facebook Graph responses) are normalized
// into this before they reach the authentication service.
type ExternalIdentity struct {
	Provider      string
	ProviderID    string
	Email         string
	DisplayName   string
	AvatarURL     string
	EmailVerified bool
}
