package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorath/centsible/internal/models"
	pkgauth "github.com/ssorath/centsible/pkg/auth"
	pkglogger "github.com/ssorath/centsible/pkg/logger"
)

func newTestAuthService(repo UserRepository, seeder CategorySeeder, tokens TokenIssuer, email EmailSender) *AuthService {
	logger := slog.Default()
	if tokens == nil {
		tokens = &MockTokenIssuer{}
	}
	if email == nil {
		email = &MockEmailSender{}
	}
	if seeder == nil {
		seeder = &MockCategorySeeder{}
	}
	return NewAuthService(
		repo,
		seeder,
		tokens,
		email,
		noopDelay{},
		AuthConfig{
			MaxFailedLogins:         5,
			LockoutDuration:         2 * time.Hour,
			ResetTokenExpiry:        10 * time.Minute,
			VerificationTokenExpiry: 24 * time.Hour,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

// Register

func TestAuthService_Register_Success(t *testing.T) {
	var createdUser *models.User
	var sentTo string
	seededFor := ""

	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			createdUser = user
			return user, nil
		},
	}
	mockSeeder := &MockCategorySeeder{
		SeedDefaultsFunc: func(ctx context.Context, userID string) error {
			seededFor = userID
			return nil
		},
	}
	mockEmail := &MockEmailSender{
		SendVerificationEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			sentTo = to
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, mockSeeder, nil, mockEmail)

	resp, err := svc.Register(context.Background(), "Jane Doe", "Jane@Example.com", "password123")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.False(t, resp.User.IsGuest)
	assert.False(t, resp.User.EmailVerified)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.Equal(t, "user123", seededFor)
	assert.Equal(t, "jane@example.com", sentTo)

	require.NotNil(t, createdUser)
	assert.NotEmpty(t, createdUser.PasswordHash)
	assert.NotEqual(t, "password123", createdUser.PasswordHash)
	require.NotNil(t, createdUser.VerificationTokenHash)
	assert.NotNil(t, createdUser.VerificationTokenExpiresAt)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return NewTestUser("existing", email, "Existing"), nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.Register(context.Background(), "Jane", "jane@example.com", "password123")

	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
	assert.Nil(t, resp)
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, nil, nil, nil)

	resp, err := svc.Register(context.Background(), "Jane", "jane@example.com", "short")

	var pwErr *pkgauth.PasswordValidationError
	assert.ErrorAs(t, err, &pwErr)
	assert.Nil(t, resp)
}

func TestAuthService_Register_AnyLengthValidPasswordAccepted(t *testing.T) {
	// Length is the only password rule; no complexity classes are required.
	passwords := []string{"aaaaaaaa", "12345678", "        ", "pässwörd"}

	for _, password := range passwords {
		mockRepo := &MockUserRepository{
			GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				user.ID = "user123"
				return user, nil
			},
		}
		svc := newTestAuthService(mockRepo, nil, nil, nil)

		_, err := svc.Register(context.Background(), "Jane", "jane@example.com", password)
		assert.NoError(t, err, "password %q should be accepted", password)
	}
}

func TestAuthService_Register_EmailDispatchFailureTolerated(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			return user, nil
		},
	}
	mockEmail := &MockEmailSender{
		SendVerificationEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, mockEmail)

	resp, err := svc.Register(context.Background(), "Jane", "jane@example.com", "password123")

	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestAuthService_Register_ResponseOmitsSensitiveFields(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			return user, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.Register(context.Background(), "Jane", "jane@example.com", "password123")
	require.NoError(t, err)

	body, err := json.Marshal(resp.User)
	require.NoError(t, err)

	serialized := strings.ToLower(string(body))
	assert.NotContains(t, serialized, "password")
	assert.NotContains(t, serialized, "hash")
	assert.NotContains(t, serialized, "locked")
	assert.NotContains(t, serialized, "failed")
}

// Login

func TestAuthService_Login_Success(t *testing.T) {
	hash, err := pkgauth.HashPassword("password123")
	require.NoError(t, err)

	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = hash
	user.FailedLoginCount = 3

	successRecorded := false
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.User, error) {
			successRecorded = true
			fresh := *user
			fresh.FailedLoginCount = 0
			now := time.Now()
			fresh.LastLoginAt = &now
			return &fresh, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.Login(context.Background(), "jane@example.com", "password123", "203.0.113.9")

	require.NoError(t, err)
	assert.True(t, successRecorded)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotNil(t, resp.User.LastLoginAt)
}

func TestAuthService_Login_UnknownEmailConflated(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	_, err := svc.Login(context.Background(), "nobody@example.com", "password123", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Login_WrongPasswordRecordsFailure(t *testing.T) {
	hash, err := pkgauth.HashPassword("correct-password")
	require.NoError(t, err)

	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = hash

	failureRecorded := false
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.User, error) {
			failureRecorded = true
			assert.Equal(t, 5, threshold)
			assert.Equal(t, 2*time.Hour, lockout)
			updated := *user
			updated.FailedLoginCount = 1
			return &updated, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	_, err = svc.Login(context.Background(), "jane@example.com", "wrong-password", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, failureRecorded)
}

func TestAuthService_Login_LockedAccountRejectedWithoutPasswordCheck(t *testing.T) {
	hash, err := pkgauth.HashPassword("password123")
	require.NoError(t, err)

	lockedUntil := time.Now().Add(1 * time.Hour)
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = hash
	user.FailedLoginCount = 5
	user.LockedUntil = &lockedUntil

	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}, nil, nil, nil)

	// Even the correct password is rejected while the lock holds.
	_, err = svc.Login(context.Background(), "jane@example.com", "password123", "")

	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_Login_ExpiredLockClearedOnNextAttempt(t *testing.T) {
	hash, err := pkgauth.HashPassword("password123")
	require.NoError(t, err)

	lockedUntil := time.Now().Add(-1 * time.Minute)
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = hash
	user.FailedLoginCount = 5
	user.LockedUntil = &lockedUntil

	lockCleared := false
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		ClearExpiredLockFunc: func(ctx context.Context, id string) (*models.User, error) {
			lockCleared = true
			fresh := *user
			fresh.FailedLoginCount = 0
			fresh.LockedUntil = nil
			return &fresh, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.User, error) {
			fresh := *user
			fresh.LockedUntil = nil
			return &fresh, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.Login(context.Background(), "jane@example.com", "password123", "")

	require.NoError(t, err)
	assert.True(t, lockCleared)
	assert.NotNil(t, resp)
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = "some-hash"
	user.IsActive = false

	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}, nil, nil, nil)

	_, err := svc.Login(context.Background(), "jane@example.com", "password123", "")

	assert.ErrorIs(t, err, models.ErrAccountDeactivated)
}

func TestAuthService_Login_OAuthOnlyAccountRejected(t *testing.T) {
	googleID := "google-sub-1"
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.GoogleID = &googleID

	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}, nil, nil, nil)

	_, err := svc.Login(context.Background(), "jane@example.com", "anything123", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

// Guest access

func TestAuthService_GuestAccess_CreatesUniqueVerifiedGuest(t *testing.T) {
	seen := map[string]bool{}
	mockRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			assert.True(t, user.IsGuest)
			assert.True(t, user.EmailVerified)
			assert.False(t, seen[user.Email], "guest emails must be unique")
			seen[user.Email] = true
			user.ID = "guest-" + user.Email
			return user, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	first, err := svc.GuestAccess(context.Background(), nil)
	require.NoError(t, err)
	second, err := svc.GuestAccess(context.Background(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.User.Email, second.User.Email)
	assert.True(t, first.User.IsGuest)
	assert.NotEmpty(t, first.Tokens.AccessToken)
}

func TestAuthService_GuestAccess_HonorsPreferences(t *testing.T) {
	mockRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "guest123"
			return user, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	prefs := models.DefaultPreferences()
	prefs.Currency = "EUR"
	prefs.Theme = models.ThemeDark

	resp, err := svc.GuestAccess(context.Background(), &prefs)

	require.NoError(t, err)
	assert.Equal(t, "EUR", resp.User.Preferences.Currency)
	assert.Equal(t, models.ThemeDark, resp.User.Preferences.Theme)
}

// OAuth resolution

func TestAuthService_OAuthCallback_ExistingProviderID(t *testing.T) {
	googleID := "google-sub-1"
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.GoogleID = &googleID
	user.EmailVerified = true

	created := false
	mockRepo := &MockUserRepository{
		GetByOAuthIDFunc: func(ctx context.Context, provider, providerID string) (*models.User, error) {
			assert.Equal(t, models.ProviderGoogle, provider)
			assert.Equal(t, googleID, providerID)
			return user, nil
		},
		CreateFunc: func(ctx context.Context, u *models.User) (*models.User, error) {
			created = true
			return u, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.OAuthCallback(context.Background(), &models.ExternalIdentity{
		Provider:   models.ProviderGoogle,
		ProviderID: googleID,
		Email:      "jane@example.com",
	})

	require.NoError(t, err)
	assert.False(t, created, "existing oauth user must not be recreated")
	assert.Equal(t, "user123", resp.User.ID)
}

func TestAuthService_OAuthCallback_LinksByEmail(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = "existing-hash"

	linked := false
	mockRepo := &MockUserRepository{
		GetByOAuthIDFunc: func(ctx context.Context, provider, providerID string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		LinkOAuthIDFunc: func(ctx context.Context, id, provider, providerID string) (*models.User, error) {
			linked = true
			updated := *user
			updated.GoogleID = &providerID
			updated.EmailVerified = true
			return &updated, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.User, error) {
			updated := *user
			updated.EmailVerified = true
			return &updated, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.OAuthCallback(context.Background(), &models.ExternalIdentity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-sub-1",
		Email:      "Jane@Example.com",
	})

	require.NoError(t, err)
	assert.True(t, linked)
	assert.True(t, resp.User.EmailVerified)
}

func TestAuthService_OAuthCallback_CreatesNewUser(t *testing.T) {
	var createdUser *models.User
	mockRepo := &MockUserRepository{
		GetByOAuthIDFunc: func(ctx context.Context, provider, providerID string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user456"
			createdUser = user
			return user, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.User, error) {
			return createdUser, nil
		},
	}

	seeded := false
	mockSeeder := &MockCategorySeeder{
		SeedDefaultsFunc: func(ctx context.Context, userID string) error {
			seeded = true
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, mockSeeder, nil, nil)

	resp, err := svc.OAuthCallback(context.Background(), &models.ExternalIdentity{
		Provider:    models.ProviderFacebook,
		ProviderID:  "fb-id-9",
		Email:       "new@example.com",
		DisplayName: "New Person",
	})

	require.NoError(t, err)
	assert.True(t, seeded)
	require.NotNil(t, createdUser)
	assert.True(t, createdUser.EmailVerified)
	require.NotNil(t, createdUser.FacebookID)
	assert.Equal(t, "fb-id-9", *createdUser.FacebookID)
	assert.Equal(t, "New Person", resp.User.Name)
}

func TestAuthService_OAuthCallback_DeactivatedAccount(t *testing.T) {
	googleID := "google-sub-1"
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.GoogleID = &googleID
	user.IsActive = false

	svc := newTestAuthService(&MockUserRepository{
		GetByOAuthIDFunc: func(ctx context.Context, provider, providerID string) (*models.User, error) {
			return user, nil
		},
	}, nil, nil, nil)

	_, err := svc.OAuthCallback(context.Background(), &models.ExternalIdentity{
		Provider:   models.ProviderGoogle,
		ProviderID: googleID,
		Email:      "jane@example.com",
	})

	assert.ErrorIs(t, err, models.ErrAccountDeactivated)
}

// Password reset

func TestAuthService_RequestPasswordReset_UnknownEmailSilentSuccess(t *testing.T) {
	emailSent := false
	mockEmail := &MockEmailSender{
		SendPasswordResetEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			emailSent = true
			return nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}, nil, nil, mockEmail)

	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")

	assert.NoError(t, err)
	assert.False(t, emailSent)
}

func TestAuthService_RequestPasswordReset_StoresHashSendsPlainToken(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = "hash"

	var storedHash, sentToken string
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		SetResetTokenFunc: func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
			storedHash = tokenHash
			assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)
			return nil
		},
	}
	mockEmail := &MockEmailSender{
		SendPasswordResetEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			sentToken = token
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, mockEmail)

	err := svc.RequestPasswordReset(context.Background(), "jane@example.com")

	require.NoError(t, err)
	require.NotEmpty(t, sentToken)
	assert.NotEqual(t, sentToken, storedHash, "only the hash may be persisted")
	assert.Equal(t, hashOpaqueToken(sentToken), storedHash)
}

func TestAuthService_RequestPasswordReset_RollsBackOnDispatchFailure(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = "hash"

	rolledBack := false
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		ClearResetTokenFunc: func(ctx context.Context, id string) error {
			rolledBack = true
			return nil
		},
	}
	mockEmail := &MockEmailSender{
		SendPasswordResetEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, mockEmail)

	err := svc.RequestPasswordReset(context.Background(), "jane@example.com")

	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.True(t, rolledBack)
}

func TestAuthService_RequestPasswordReset_GuestSilentSuccess(t *testing.T) {
	guest := NewTestGuest("guest123")

	tokenSet := false
	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return guest, nil
		},
		SetResetTokenFunc: func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
			tokenSet = true
			return nil
		},
	}, nil, nil, nil)

	err := svc.RequestPasswordReset(context.Background(), guest.Email)

	assert.NoError(t, err)
	assert.False(t, tokenSet)
}

func TestAuthService_ResetPassword_Success(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.PasswordHash = "old-hash"

	var newHash string
	mockRepo := &MockUserRepository{
		GetByResetTokenHashFunc: func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
			return user, nil
		},
		SetPasswordFunc: func(ctx context.Context, id, passwordHash string) (*models.User, error) {
			newHash = passwordHash
			updated := *user
			updated.PasswordHash = passwordHash
			return &updated, nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, nil)

	resp, err := svc.ResetPassword(context.Background(), "some-plain-token", "new-password-1")

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	require.NotEmpty(t, newHash)
	assert.NoError(t, pkgauth.ComparePassword(newHash, "new-password-1"))
}

func TestAuthService_ResetPassword_InvalidToken(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{
		GetByResetTokenHashFunc: func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}, nil, nil, nil)

	_, err := svc.ResetPassword(context.Background(), "bogus", "new-password-1")

	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

// Email verification

func TestAuthService_VerifyEmail_Success(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")

	svc := newTestAuthService(&MockUserRepository{
		GetByVerificationTokenHashFunc: func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
			return user, nil
		},
		MarkEmailVerifiedFunc: func(ctx context.Context, id string) (*models.User, error) {
			verified := *user
			verified.EmailVerified = true
			return &verified, nil
		},
	}, nil, nil, nil)

	verified, err := svc.VerifyEmail(context.Background(), "plain-token")

	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
}

func TestAuthService_VerifyEmail_InvalidOrExpiredToken(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{
		GetByVerificationTokenHashFunc: func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}, nil, nil, nil)

	_, err := svc.VerifyEmail(context.Background(), "expired-token")

	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

// Refresh

func TestAuthService_Refresh_RotatesPair(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")

	mockTokens := &MockTokenIssuer{
		VerifyFunc: func(tokenString, tokenType string) (*models.TokenClaims, error) {
			assert.Equal(t, models.TokenTypeRefresh, tokenType)
			return &models.TokenClaims{Type: tokenType, UserID: "user123"}, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}, nil, mockTokens, nil)

	pair, err := svc.Refresh(context.Background(), "valid-refresh-token")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, nil, &MockTokenIssuer{
		VerifyFunc: func(tokenString, tokenType string) (*models.TokenClaims, error) {
			return nil, models.ErrTokenInvalid
		},
	}, nil)

	_, err := svc.Refresh(context.Background(), "garbage")

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestAuthService_Refresh_DeactivatedUser(t *testing.T) {
	user := NewTestUser("user123", "jane@example.com", "Jane")
	user.IsActive = false

	mockTokens := &MockTokenIssuer{
		VerifyFunc: func(tokenString, tokenType string) (*models.TokenClaims, error) {
			return &models.TokenClaims{Type: tokenType, UserID: "user123"}, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}, nil, mockTokens, nil)

	_, err := svc.Refresh(context.Background(), "refresh-token")

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

// Guest upgrade

func TestAuthService_UpgradeGuest_Success(t *testing.T) {
	var upgradeHash string
	mockRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		UpgradeGuestFunc: func(ctx context.Context, id, name, email, passwordHash string) (*models.User, error) {
			upgradeHash = passwordHash
			user := NewTestUser(id, email, name)
			user.PasswordHash = passwordHash
			return user, nil
		},
	}

	verificationSent := false
	mockEmail := &MockEmailSender{
		SendVerificationEmailFunc: func(ctx context.Context, to, token string, expiresAt time.Time) error {
			verificationSent = true
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, nil, nil, mockEmail)

	resp, err := svc.UpgradeGuest(context.Background(), "guest123", "Jane", "jane@example.com", "password123")

	require.NoError(t, err)
	assert.False(t, resp.User.IsGuest)
	assert.False(t, resp.User.EmailVerified, "upgraded account starts unverified")
	assert.True(t, verificationSent)
	assert.NoError(t, pkgauth.ComparePassword(upgradeHash, "password123"))
}

func TestAuthService_UpgradeGuest_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return NewTestUser("other", email, "Other"), nil
		},
	}, nil, nil, nil)

	_, err := svc.UpgradeGuest(context.Background(), "guest123", "Jane", "jane@example.com", "password123")

	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}
