package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/ssorath/centsible/internal/config"
	"github.com/ssorath/centsible/internal/models"
)

const facebookUserInfoURL = "https://graph.facebook.com/v19.0/me?fields=id,name,email,picture"

// upstreamTimeout bounds calls to OAuth providers so a slow provider fails
// fast with a retryable error instead of hanging the request.
const upstreamTimeout = 10 * time.Second

// Provider exchanges an authorization code for a normalized identity.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

// ProviderSet holds the configured OAuth providers keyed by name.
type ProviderSet struct {
	providers map[string]Provider
}

func NewProviderSet(cfg *config.OAuthConfig) *ProviderSet {
	set := &ProviderSet{providers: make(map[string]Provider)}

	if cfg.Google.ClientID != "" {
		set.providers[models.ProviderGoogle] = &googleProvider{
			clientID: cfg.Google.ClientID,
			oauth: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
		}
	}

	if cfg.Facebook.ClientID != "" {
		set.providers[models.ProviderFacebook] = &facebookProvider{
			oauth: &oauth2.Config{
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
				RedirectURL:  cfg.Facebook.RedirectURL,
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
		}
	}

	return set
}

// Get returns the provider by name, or ErrNotFound for unknown/unconfigured providers.
func (s *ProviderSet) Get(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

// googleProvider validates Google's ID token rather than calling the userinfo
// endpoint; the token already carries verified email and profile claims.
type googleProvider struct {
	oauth    *oauth2.Config
	clientID string
}

func (p *googleProvider) Name() string { return models.ProviderGoogle }

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *googleProvider) FetchIdentity(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google code exchange: %s", models.ErrUpstream, err)
	}

	idTokenString, ok := token.Extra("id_token").(string)
	if !ok || idTokenString == "" {
		return nil, fmt.Errorf("%w: google token response missing id_token", models.ErrUpstream)
	}

	payload, err := idtoken.Validate(ctx, idTokenString, p.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: google ID token validation: %s", models.ErrUpstream, err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	emailVerified, _ := payload.Claims["email_verified"].(bool)

	if payload.Subject == "" || email == "" {
		return nil, fmt.Errorf("%w: essential claims missing from google ID token", models.ErrUpstream)
	}

	return &models.ExternalIdentity{
		Provider:      models.ProviderGoogle,
		ProviderID:    payload.Subject,
		Email:         email,
		DisplayName:   name,
		AvatarURL:     picture,
		EmailVerified: emailVerified,
	}, nil
}

type facebookProvider struct {
	oauth *oauth2.Config
}

func (p *facebookProvider) Name() string { return models.ProviderFacebook }

func (p *facebookProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *facebookProvider) FetchIdentity(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook code exchange: %s", models.ErrUpstream, err)
	}

	client := p.oauth.Client(ctx, token)
	resp, err := client.Get(facebookUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook userinfo fetch: %s", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facebook userinfo returned %s", models.ErrUpstream, resp.Status)
	}

	var profile struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: failed to decode facebook profile: %s", models.ErrUpstream, err)
	}

	if profile.ID == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: essential fields missing from facebook profile", models.ErrUpstream)
	}

	// Facebook only returns emails it has confirmed, so the address is
	// treated as verified.
	return &models.ExternalIdentity{
		Provider:      models.ProviderFacebook,
		ProviderID:    profile.ID,
		Email:         profile.Email,
		DisplayName:   profile.Name,
		AvatarURL:     profile.Picture.Data.URL,
		EmailVerified: true,
	}, nil
}

// GenerateState creates the CSRF state parameter for the OAuth redirect flow.
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
