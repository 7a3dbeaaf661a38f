package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssorath/centsible/internal/database"
	"github.com/ssorath/centsible/internal/models"
)

// userColumns is the canonical column list; every scan goes through scanUserRow.
const userColumns = `id, email, name, password_hash, google_id, facebook_id, is_guest,
	email_verified, verification_token_hash, verification_token_expires_at,
	reset_token_hash, reset_token_expires_at, failed_login_count, locked_until,
	currency, theme, language, notifications_enabled, is_active, last_login_at,
	created_at, updated_at`

// UserRepository is the credential store: durable storage and lookup of user
// records with uniqueness enforced on email and OAuth identifiers. Hashing
// and token generation happen in the service layer; nothing plaintext is ever
// handed to this type.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &passwordHash,
		&user.GoogleID, &user.FacebookID, &user.IsGuest,
		&user.EmailVerified, &user.VerificationTokenHash, &user.VerificationTokenExpiresAt,
		&user.ResetTokenHash, &user.ResetTokenExpiresAt,
		&user.FailedLoginCount, &user.LockedUntil,
		&user.Preferences.Currency, &user.Preferences.Theme, &user.Preferences.Language,
		&user.Preferences.NotificationsEnabled,
		&user.IsActive, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

// GetByOAuthID looks up a user by provider identifier.
func (r *UserRepository) GetByOAuthID(ctx context.Context, provider, providerID string) (*models.User, error) {
	var column string
	switch provider {
	case models.ProviderGoogle:
		column = "google_id"
	case models.ProviderFacebook:
		column = "facebook_id"
	default:
		return nil, fmt.Errorf("unknown oauth provider: %s", provider)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, providerID))
}

// GetByResetTokenHash returns the user holding an unexpired reset token.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, tokenHash, now))
}

// GetByVerificationTokenHash returns the user holding an unexpired verification token.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE verification_token_hash = $1 AND verification_token_expires_at > $2`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, tokenHash, now))
}

// Create inserts a new user. Email and OAuth id collisions surface as ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, google_id, facebook_id, is_guest,
			email_verified, verification_token_hash, verification_token_expires_at,
			currency, theme, language, notifications_enabled, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, passwordHash, user.GoogleID, user.FacebookID, user.IsGuest,
		user.EmailVerified, user.VerificationTokenHash, user.VerificationTokenExpiresAt,
		user.Preferences.Currency, user.Preferences.Theme, user.Preferences.Language,
		user.Preferences.NotificationsEnabled, user.IsActive, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateProfile sets the mutable profile fields (name, preferences).
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name string, prefs models.Preferences) (*models.User, error) {
	query := `
		UPDATE users SET name = $1, currency = $2, theme = $3, language = $4,
			notifications_enabled = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		name, prefs.Currency, prefs.Theme, prefs.Language, prefs.NotificationsEnabled,
		time.Now(), id,
	))
}

// RecordLoginFailure increments the failure counter and, once the threshold is
// reached, opens the lockout window. The whole transition is one statement so
// concurrent failures never observe a half-applied state.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.User, error) {
	query := `
		UPDATE users SET
			failed_login_count = failed_login_count + 1,
			locked_until = CASE WHEN failed_login_count + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	now := time.Now()
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id, threshold, now.Add(lockout), now))
}

// RecordLoginSuccess resets the lockout state and stamps last_login_at.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users SET failed_login_count = 0, locked_until = NULL,
			last_login_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id, time.Now()))
}

// ClearExpiredLock drops an elapsed lockout window before the attempt is
// evaluated, so stale locks never influence the outcome.
func (r *UserRepository) ClearExpiredLock(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users SET failed_login_count = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1 AND locked_until IS NOT NULL AND locked_until <= $2
		RETURNING ` + userColumns

	user, err := scanUserRow(r.db.Pool.QueryRow(ctx, query, id, time.Now()))
	if errors.Is(err, models.ErrNotFound) {
		// Lock still active or already clear; return the current row.
		return r.GetByID(ctx, id)
	}
	return user, err
}

// SetPassword stores a new password hash and closes any open reset window.
// Fresh credentials also clear the lockout state.
func (r *UserRepository) SetPassword(ctx context.Context, id, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users SET password_hash = $1, reset_token_hash = NULL,
			reset_token_expires_at = NULL, failed_login_count = 0,
			locked_until = NULL, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, passwordHash, time.Now(), id))
}

// SetResetToken opens a password reset window.
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearResetToken rolls back an open reset window, used when email dispatch fails.
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $1
		WHERE id = $2`

	_, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	return database.MapPostgresError(err)
}

// SetVerificationToken opens an email verification window.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users SET verification_token_hash = $1, verification_token_expires_at = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkEmailVerified consumes the verification token; single-use by clearing
// the token fields in the same statement.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users SET email_verified = TRUE, verification_token_hash = NULL,
			verification_token_expires_at = NULL, updated_at = $1
		WHERE id = $2
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, time.Now(), id))
}

// LinkOAuthID attaches a provider identity to an existing account. The
// provider vouches for the email, so the account becomes verified.
func (r *UserRepository) LinkOAuthID(ctx context.Context, id, provider, providerID string) (*models.User, error) {
	var column string
	switch provider {
	case models.ProviderGoogle:
		column = "google_id"
	case models.ProviderFacebook:
		column = "facebook_id"
	default:
		return nil, fmt.Errorf("unknown oauth provider: %s", provider)
	}

	query := `
		UPDATE users SET ` + column + ` = $1, email_verified = TRUE, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, providerID, time.Now(), id))
}

// UpgradeGuest converts a guest into a full password account. The new account
// starts unverified.
func (r *UserRepository) UpgradeGuest(ctx context.Context, id, name, email, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users SET name = $1, email = $2, password_hash = $3, is_guest = FALSE,
			email_verified = FALSE, updated_at = $4
		WHERE id = $5 AND is_guest = TRUE
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, name, email, passwordHash, time.Now(), id))
}

// Deactivate soft-deletes an account; the record is kept but authentication
// is rejected from then on.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredTokenWindows nulls out reset/verification token columns whose
// expiry has passed. Called by the background sweep.
func (r *UserRepository) ClearExpiredTokenWindows(ctx context.Context) (int64, error) {
	query := `
		UPDATE users SET
			reset_token_hash = CASE WHEN reset_token_expires_at <= $1 THEN NULL ELSE reset_token_hash END,
			reset_token_expires_at = CASE WHEN reset_token_expires_at <= $1 THEN NULL ELSE reset_token_expires_at END,
			verification_token_hash = CASE WHEN verification_token_expires_at <= $1 THEN NULL ELSE verification_token_hash END,
			verification_token_expires_at = CASE WHEN verification_token_expires_at <= $1 THEN NULL ELSE verification_token_expires_at END
		WHERE reset_token_expires_at <= $1 OR verification_token_expires_at <= $1`

	result, err := r.db.Pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
