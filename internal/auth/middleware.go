package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ssorath/centsible/internal/models"
	pkghttp "github.com/ssorath/centsible/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	userContextKey   contextKey = "user"
	claimsContextKey contextKey = "claims"
)

// UserResolver loads the live user record for validated claims, so handlers
// observe current lockout and active state rather than stale token claims.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth validates the bearer token on protected routes and injects the
// resolved user into the request context. Missing, expired and invalid tokens
// all map to 401, with distinct error kinds so clients know whether to
// attempt a refresh (expired) or force re-login (invalid).
func RequireAuth(tm *TokenManager, users UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, claims, kind := resolveIdentity(r, tm, users)
			if user == nil {
				pkghttp.WriteUnauthorized(w, kind, "authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), user, claims)))
		})
	}
}

// OptionalAuth resolves the identity when a valid token is present and leaves
// it unset otherwise. It never rejects the request.
func OptionalAuth(tm *TokenManager, users UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, claims, _ := resolveIdentity(r, tm, users)
			if user != nil {
				r = r.WithContext(withIdentity(r.Context(), user, claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveIdentity extracts and validates the bearer token and loads the user.
// Returns a nil user plus the error kind to surface when resolution fails.
func resolveIdentity(r *http.Request, tm *TokenManager, users UserResolver) (*models.User, *models.TokenClaims, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil, pkghttp.KindUnauthorized
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, nil, pkghttp.KindTokenInvalid
	}

	claims, err := tm.Verify(parts[1], models.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, models.ErrTokenExpired) {
			return nil, nil, pkghttp.KindTokenExpired
		}
		return nil, nil, pkghttp.KindTokenInvalid
	}

	user, err := users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return nil, nil, pkghttp.KindUnauthorized
	}
	if !user.IsActive {
		return nil, nil, pkghttp.KindUnauthorized
	}

	return user, claims, ""
}

// RequireFullAccount rejects guest accounts. Composed after RequireAuth.
func RequireFullAccount() func(next http.Handler) http.Handler {
	return requireGuestFlag(false, "a full account is required for this operation")
}

// RequireGuest rejects full accounts; used for guest-only operations such as
// account upgrade. Composed after RequireAuth.
func RequireGuest() func(next http.Handler) http.Handler {
	return requireGuestFlag(true, "this operation is only available to guest accounts")
}

func requireGuestFlag(wantGuest bool, message string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "authentication required")
				return
			}
			if user.IsGuest != wantGuest {
				pkghttp.WriteForbidden(w, pkghttp.KindForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withIdentity(ctx context.Context, user *models.User, claims *models.TokenClaims) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ContextWithUser returns a context carrying the given identity, as RequireAuth
// would produce. Intended for handler tests and internal composition.
func ContextWithUser(ctx context.Context, user *models.User, claims *models.TokenClaims) context.Context {
	return withIdentity(ctx, user, claims)
}

// GetUserFromContext extracts the resolved user from the request context.
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetClaimsFromContext extracts the validated token claims from the request context.
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(claimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
