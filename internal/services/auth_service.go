package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssorath/centsible/internal/models"
	pkgauth "github.com/ssorath/centsible/pkg/auth"
	pkglogger "github.com/ssorath/centsible/pkg/logger"
)

// guestEmailDomain is reserved for synthesized guest addresses; real
// registrations never produce it because the local part is a fresh UUID.
const guestEmailDomain = "guests.centsible.app"

// UserRepository is the credential store contract the auth service depends on.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOAuthID(ctx context.Context, provider, providerID string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	GetByVerificationTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.User, error)
	RecordLoginSuccess(ctx context.Context, id string) (*models.User, error)
	ClearExpiredLock(ctx context.Context, id string) (*models.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) (*models.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string) (*models.User, error)
	LinkOAuthID(ctx context.Context, id, provider, providerID string) (*models.User, error)
	UpgradeGuest(ctx context.Context, id, name, email, passwordHash string) (*models.User, error)
}

// TokenIssuer mints and verifies session token pairs.
type TokenIssuer interface {
	Issue(user *models.User) (*models.TokenPair, error)
	Verify(tokenString, tokenType string) (*models.TokenClaims, error)
}

// CategorySeeder creates the default category set for new accounts.
type CategorySeeder interface {
	SeedDefaults(ctx context.Context, userID string) error
}

// FailureDelayer pads failed authentication checks to equalize response times.
type FailureDelayer interface {
	WaitFrom(startTime time.Time, success bool)
}

// AuthConfig carries the tunable policy knobs, injected at construction so
// the service never reads process-wide state.
type AuthConfig struct {
	MaxFailedLogins         int
	LockoutDuration         time.Duration
	ResetTokenExpiry        time.Duration
	VerificationTokenExpiry time.Duration
}

// AuthService implements the account lifecycle rules: registration,
// credential verification, lockout, guest issuance, OAuth resolution,
// password reset and email verification.
type AuthService struct {
	repo       UserRepository
	categories CategorySeeder
	tokens     TokenIssuer
	email      EmailSender
	timing     FailureDelayer
	cfg        AuthConfig
	logger     *slog.Logger
	audit      *pkglogger.AuditLogger
}

func NewAuthService(
	repo UserRepository,
	categories CategorySeeder,
	tokens TokenIssuer,
	email EmailSender,
	timing FailureDelayer,
	cfg AuthConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:       repo,
		categories: categories,
		tokens:     tokens,
		email:      email,
		timing:     timing,
		cfg:        cfg,
		logger:     logger,
		audit:      audit,
	}
}

// UserResponse is the sanitized user shape for HTTP responses. Password and
// token hashes never appear here.
type UserResponse struct {
	ID            string             `json:"id"`
	Email         string             `json:"email"`
	Name          string             `json:"name"`
	IsGuest       bool               `json:"isGuest"`
	EmailVerified bool               `json:"emailVerified"`
	Preferences   models.Preferences `json:"preferences"`
	CreatedAt     string             `json:"createdAt"`
	LastLoginAt   *string            `json:"lastLoginAt,omitempty"`
}

// AuthResponse is the success shape of every session-issuing operation.
type AuthResponse struct {
	User   *UserResponse     `json:"user"`
	Tokens *models.TokenPair `json:"tokens"`
}

// Register creates a password account, opens an email verification window and
// returns a usable session. Verification is advisory: it does not gate login.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		s.logger.Info("registration failed: email already registered")
		return nil, models.ErrDuplicateEmail
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	plainToken, tokenHash, err := generateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	verificationExpiry := time.Now().Add(s.cfg.VerificationTokenExpiry)

	user := &models.User{
		Email:                      email,
		Name:                       name,
		PasswordHash:               passwordHash,
		VerificationTokenHash:      &tokenHash,
		VerificationTokenExpiresAt: &verificationExpiry,
		Preferences:                models.DefaultPreferences(),
		IsActive:                   true,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.seedCategories(ctx, created.ID)

	// The account is committed at this point; a failed dispatch is tolerated
	// and the user can request a resend via the reset flow later.
	if err := s.email.SendVerificationEmail(ctx, created.Email, plainToken, verificationExpiry); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", created.ID), slog.Any("error", err))
	}

	s.audit.LogAccountAction("user_registered", created.ID, nil)

	return s.respond(created)
}

// Login verifies password credentials and enforces the lockout policy.
// Unknown email and wrong password are deliberately indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	start := time.Now()
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.failAuth(start, "", ipAddress, "invalid_credentials")
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		s.failAuth(start, user.ID, ipAddress, "account_deactivated")
		return nil, models.ErrAccountDeactivated
	}

	// An elapsed lock is cleared as part of evaluating this attempt.
	if user.LockedUntil != nil {
		if user.IsLocked(time.Now()) {
			s.failAuth(start, user.ID, ipAddress, "account_locked")
			return nil, models.ErrAccountLocked
		}
		user, err = s.repo.ClearExpiredLock(ctx, user.ID)
		if err != nil {
			s.logger.Error("failed to clear expired lock", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	// Guests and OAuth-only accounts are excluded from password login.
	if !user.HasPassword() || user.IsGuest {
		s.failAuth(start, user.ID, ipAddress, "invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		updated, recErr := s.repo.RecordLoginFailure(ctx, user.ID, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration)
		if recErr != nil {
			s.logger.Error("failed to record login failure", slog.String("user_id", user.ID), slog.Any("error", recErr))
		} else if updated.IsLocked(time.Now()) {
			s.audit.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "account_locked",
				UserID:        user.ID,
				IPAddress:     ipAddress,
				FailureReason: "failed_login_threshold",
			})
		}
		s.failAuth(start, user.ID, ipAddress, "invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	user, err = s.repo.RecordLoginSuccess(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to record login success", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return s.respond(user)
}

// GuestAccess creates a fresh guest account with a synthetic email. Guests
// are never deduplicated; every call yields a new account.
func (s *AuthService) GuestAccess(ctx context.Context, prefs *models.Preferences) (*AuthResponse, error) {
	preferences := models.DefaultPreferences()
	if prefs != nil {
		preferences = *prefs
	}

	user := &models.User{
		Email:         fmt.Sprintf("guest-%s@%s", uuid.New().String(), guestEmailDomain),
		Name:          "Guest",
		IsGuest:       true,
		EmailVerified: true, // nothing to verify on a synthetic address
		Preferences:   preferences,
		IsActive:      true,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create guest user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.seedCategories(ctx, created.ID)
	s.audit.LogAccountAction("guest_created", created.ID, nil)

	return s.respond(created)
}

// OAuthCallback resolves a normalized external identity to an account. The
// resolution order is load-bearing: provider id first, then email linking,
// then account creation; changing it changes which account a returning user
// lands in.
func (s *AuthService) OAuthCallback(ctx context.Context, identity *models.ExternalIdentity) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	user, err := s.repo.GetByOAuthID(ctx, identity.Provider, identity.ProviderID)
	switch {
	case err == nil:
		// Returning OAuth user.
	case errors.Is(err, models.ErrNotFound):
		user, err = s.linkOrCreateOAuthUser(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	default:
		s.logger.Error("failed to look up oauth identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		return nil, models.ErrAccountDeactivated
	}

	user, err = s.repo.RecordLoginSuccess(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to record oauth login", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "oauth_login_success",
		UserID:    user.ID,
		Success:   true,
		Metadata:  map[string]string{"provider": identity.Provider},
	})

	return s.respond(user)
}

func (s *AuthService) linkOrCreateOAuthUser(ctx context.Context, identity *models.ExternalIdentity, email string) (*models.User, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		// Known email: attach the provider to the existing account. The
		// provider vouches for the address, so it becomes verified.
		linked, linkErr := s.repo.LinkOAuthID(ctx, existing.ID, identity.Provider, identity.ProviderID)
		if linkErr != nil {
			s.logger.Error("failed to link oauth identity",
				slog.String("user_id", existing.ID), slog.Any("error", linkErr))
			return nil, models.ErrInternalServer
		}
		s.audit.LogAccountAction("oauth_linked", linked.ID, map[string]string{"provider": identity.Provider})
		return linked, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up email for oauth linking", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:         email,
		Name:          identity.DisplayName,
		EmailVerified: true,
		Preferences:   models.DefaultPreferences(),
		IsActive:      true,
	}
	switch identity.Provider {
	case models.ProviderGoogle:
		user.GoogleID = &identity.ProviderID
	case models.ProviderFacebook:
		user.FacebookID = &identity.ProviderID
	default:
		return nil, fmt.Errorf("unknown oauth provider: %s", identity.Provider)
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create oauth user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.seedCategories(ctx, created.ID)
	s.audit.LogAccountAction("oauth_user_created", created.ID, map[string]string{"provider": identity.Provider})

	return created, nil
}

// RequestPasswordReset opens a reset window and dispatches the token by
// email. The nil return for unknown emails is deliberate: the response must
// not reveal whether an account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	start := time.Now()
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.timing.WaitFrom(start, false)
			return nil
		}
		s.logger.Error("failed to look up email for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Guests have unreachable synthetic addresses and deactivated accounts
	// cannot log in; both get the same silent success.
	if user.IsGuest || !user.IsActive {
		s.timing.WaitFrom(start, false)
		return nil
	}

	plainToken, tokenHash, err := generateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	expiresAt := time.Now().Add(s.cfg.ResetTokenExpiry)

	if err := s.repo.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		s.logger.Error("failed to persist reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, plainToken, expiresAt); err != nil {
		// Roll the window back so no unusable token is left dangling.
		if clearErr := s.repo.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token", slog.String("user_id", user.ID), slog.Any("error", clearErr))
		}
		s.logger.Error("failed to send reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrUpstream
	}

	s.audit.LogAccountAction("password_reset_requested", user.ID, nil)
	return nil
}

// ResetPassword consumes a reset token exactly once, sets the new password
// and issues a fresh session.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*AuthResponse, error) {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	tokenHash := hashOpaqueToken(token)
	user, err := s.repo.GetByResetTokenHash(ctx, tokenHash, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidResetToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		return nil, models.ErrInvalidResetToken
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// SetPassword clears the reset window, making the token single-use, and
	// drops any lockout state along with the old credentials.
	user, err = s.repo.SetPassword(ctx, user.ID, passwordHash)
	if err != nil {
		s.logger.Error("failed to set new password", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAccountAction("password_reset_completed", user.ID, nil)

	return s.respond(user)
}

// VerifyEmail consumes an email verification token exactly once.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.ErrInvalidResetToken
	}

	tokenHash := hashOpaqueToken(token)
	user, err := s.repo.GetByVerificationTokenHash(ctx, tokenHash, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidResetToken
		}
		s.logger.Error("failed to look up verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	verified, err := s.repo.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAccountAction("email_verified", verified.ID, nil)
	return verified, nil
}

// Refresh rotates a token pair. The referenced account must still be active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.Verify(strings.TrimSpace(refreshToken), models.TokenTypeRefresh)
	if err != nil {
		return nil, models.ErrTokenInvalid
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to get user for refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		return nil, models.ErrTokenInvalid
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue rotated tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return pair, nil
}

// UpgradeGuest converts the calling guest into a full password account. The
// account transitions to unverified and a verification email goes out.
func (s *AuthService) UpgradeGuest(ctx context.Context, userID, name, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrDuplicateEmail
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing email for upgrade", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password for upgrade", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.UpgradeGuest(ctx, userID, name, email, passwordHash)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrForbidden
		}
		s.logger.Error("failed to upgrade guest", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	plainToken, tokenHash, err := generateOpaqueToken()
	if err == nil {
		expiresAt := time.Now().Add(s.cfg.VerificationTokenExpiry)
		if err := s.repo.SetVerificationToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
			s.logger.Error("failed to persist verification token", slog.String("user_id", user.ID), slog.Any("error", err))
		} else if err := s.email.SendVerificationEmail(ctx, user.Email, plainToken, expiresAt); err != nil {
			s.logger.Error("failed to send verification email", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	s.audit.LogAccountAction("guest_upgraded", user.ID, nil)

	return s.respond(user)
}

// respond issues a token pair and builds the sanitized response.
func (s *AuthService) respond(user *models.User) (*AuthResponse, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		User:   UserToResponse(user),
		Tokens: pair,
	}, nil
}

func (s *AuthService) seedCategories(ctx context.Context, userID string) {
	if s.categories == nil {
		return
	}
	if err := s.categories.SeedDefaults(ctx, userID); err != nil {
		// Categories can be created on demand later; account creation wins.
		s.logger.Error("failed to seed default categories", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func (s *AuthService) failAuth(start time.Time, userID, ipAddress, reason string) {
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        userID,
		IPAddress:     ipAddress,
		FailureReason: reason,
	})
	s.timing.WaitFrom(start, false)
}

// UserToResponse converts a user model to the sanitized response shape.
func UserToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		IsGuest:       user.IsGuest,
		EmailVerified: user.EmailVerified,
		Preferences:   user.Preferences,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}

// generateOpaqueToken returns a random token in plain and hashed form. Only
// the SHA-256 hash is ever persisted.
func generateOpaqueToken() (plain, hash string, err error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	plain = base64.URLEncoding.EncodeToString(tokenBytes)
	return plain, hashOpaqueToken(plain), nil
}

func hashOpaqueToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
