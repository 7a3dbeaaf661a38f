package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ssorath/centsible/internal/auth"
	"github.com/ssorath/centsible/internal/models"
	"github.com/ssorath/centsible/internal/services"
	pkgauth "github.com/ssorath/centsible/pkg/auth"
	pkghttp "github.com/ssorath/centsible/pkg/http"
)

// AuthServiceInterface defines the auth business logic surface.
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	GuestAccess(ctx context.Context, prefs *models.Preferences) (*services.AuthResponse, error)
	OAuthCallback(ctx context.Context, identity *models.ExternalIdentity) (*services.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*services.AuthResponse, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	UpgradeGuest(ctx context.Context, userID, name, email, password string) (*services.AuthResponse, error)
}

// AuthHandler handles authentication and account lifecycle requests.
type AuthHandler struct {
	service       AuthServiceInterface
	providers     *auth.ProviderSet
	ipConfig      *pkghttp.IPConfig
	secureCookies bool
}

func NewAuthHandler(service AuthServiceInterface, providers *auth.ProviderSet, ipConfig *pkghttp.IPConfig, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		service:       service,
		providers:     providers,
		ipConfig:      ipConfig,
		secureCookies: secureCookies,
	}
}

// Request DTOs

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GuestRequest struct {
	Preferences *services.PreferencesUpdate `json:"preferences"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type UpgradeRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Guest handles POST /auth/guest. Every call mints a fresh guest account.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
			return
		}
		if req.Preferences != nil {
			if err := ValidateRequest(req.Preferences); err != nil {
				pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
				return
			}
		}
	}

	var prefs *models.Preferences
	if req.Preferences != nil {
		merged := models.DefaultPreferences()
		if req.Preferences.Currency != nil {
			merged.Currency = strings.ToUpper(*req.Preferences.Currency)
		}
		if req.Preferences.Theme != nil {
			merged.Theme = *req.Preferences.Theme
		}
		if req.Preferences.Language != nil {
			merged.Language = *req.Preferences.Language
		}
		if req.Preferences.NotificationsEnabled != nil {
			merged.NotificationsEnabled = *req.Preferences.NotificationsEnabled
		}
		prefs = &merged
	}

	resp, err := h.service.GuestAccess(r.Context(), prefs)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]*models.TokenPair{"tokens": pair})
}

// ForgotPassword handles POST /auth/forgot-password. The response never
// discloses whether the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, models.ErrUpstream) {
			pkghttp.WriteBadGateway(w, "Unable to send email. Please try again later.")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists with this email, a password reset link will be sent.",
	})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyEmail handles GET /auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Missing verification token")
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully.",
		"user":    services.UserToResponse(user),
	})
}

// Me handles GET /auth/me for the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]*services.UserResponse{
		"user": services.UserToResponse(user),
	})
}

// Logout handles POST /auth/logout. Sessions are stateless, so logout is an
// acknowledgment; the client discards its tokens and they expire naturally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if auth.GetUserFromContext(r) == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	// No server-side token state to revoke; the client discards its pair.
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully.",
	})
}

// Upgrade handles POST /auth/upgrade, converting the calling guest into a
// full account.
func (h *AuthHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	var req UpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.UpgradeGuest(r.Context(), user.ID, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// OAuthRedirect handles GET /auth/oauth/{provider}, sending the browser to
// the provider's consent page with a state cookie for CSRF protection.
func (h *AuthHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		pkghttp.WriteNotFound(w, "Unknown authentication provider")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetOAuthStateCookie(w, state, h.secureCookies)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/{provider}/callback.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		pkghttp.WriteNotFound(w, "Unknown authentication provider")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != auth.ReadOAuthStateCookie(r) {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid OAuth state")
		return
	}
	auth.ClearOAuthStateCookie(w, h.secureCookies)

	code := r.URL.Query().Get("code")
	if code == "" {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Missing authorization code")
		return
	}

	identity, err := provider.FetchIdentity(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrUpstream) {
			pkghttp.WriteBadGateway(w, "Authentication provider is unavailable")
			return
		}
		pkghttp.WriteUnauthorized(w, pkghttp.KindInvalidCreds, "Authentication failed")
		return
	}

	resp, err := h.service.OAuthCallback(r.Context(), identity)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// writeAuthError maps service errors onto the response contract.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var pwErr *pkgauth.PasswordValidationError
	switch {
	case errors.As(err, &pwErr):
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
	case errors.Is(err, models.ErrDuplicateEmail):
		pkghttp.WriteBadRequest(w, pkghttp.KindDuplicateEmail, "An account with this email already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, pkghttp.KindInvalidCreds, "Invalid email or password")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteForbidden(w, pkghttp.KindAccountLocked, "Account temporarily locked due to repeated failed logins. Try again later.")
	case errors.Is(err, models.ErrAccountDeactivated):
		pkghttp.WriteForbidden(w, pkghttp.KindDeactivated, "This account has been deactivated")
	case errors.Is(err, models.ErrInvalidResetToken):
		pkghttp.WriteBadRequest(w, pkghttp.KindInvalidToken, "Invalid or expired token")
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteUnauthorized(w, pkghttp.KindTokenInvalid, "Invalid or expired token")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, pkghttp.KindForbidden, "Not allowed for this account")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request")
	case errors.Is(err, models.ErrUpstream):
		pkghttp.WriteBadGateway(w, "Upstream service is unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
