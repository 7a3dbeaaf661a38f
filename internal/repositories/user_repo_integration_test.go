package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ssorath/centsible/internal/database"
	"github.com/ssorath/centsible/internal/models"
)

// setupTestDB starts a throwaway PostgreSQL container and applies the
// embedded migrations.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("centsible"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, slog.Default())
	require.NoError(t, db.Migrate())

	return db
}

func newPersistedUser(t *testing.T, repo *UserRepository, email string) *models.User {
	t.Helper()
	created, err := repo.Create(context.Background(), &models.User{
		Email:        email,
		Name:         "Integration User",
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
		Preferences:  models.DefaultPreferences(),
		IsActive:     true,
	})
	require.NoError(t, err)
	return created
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := newPersistedUser(t, repo, "jane@example.com")
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_DuplicateEmailConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	newPersistedUser(t, repo, "dup@example.com")

	_, err := repo.Create(context.Background(), &models.User{
		Email:        "dup@example.com",
		Name:         "Second",
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
		Preferences:  models.DefaultPreferences(),
		IsActive:     true,
	})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserRepository_LockoutCounterAndThreshold(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newPersistedUser(t, repo, "lockme@example.com")

	var updated *models.User
	var err error
	for i := 1; i <= 4; i++ {
		updated, err = repo.RecordLoginFailure(ctx, user.ID, 5, 2*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, updated.FailedLoginCount)
		assert.Nil(t, updated.LockedUntil, "lock must not engage below the threshold")
	}

	// The fifth failure crosses the threshold and sets the lock.
	updated, err = repo.RecordLoginFailure(ctx, user.ID, 5, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.FailedLoginCount)
	require.NotNil(t, updated.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *updated.LockedUntil, time.Minute)

	// Success resets both counter and lock.
	updated, err = repo.RecordLoginSuccess(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.FailedLoginCount)
	assert.Nil(t, updated.LockedUntil)
	assert.NotNil(t, updated.LastLoginAt)
}

func TestUserRepository_ResetTokenWindowSingleUse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newPersistedUser(t, repo, "reset@example.com")
	tokenHash := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	require.NoError(t, repo.SetResetToken(ctx, user.ID, tokenHash, time.Now().Add(10*time.Minute)))

	found, err := repo.GetByResetTokenHash(ctx, tokenHash, time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// Expired windows are invisible to the lookup.
	_, err = repo.GetByResetTokenHash(ctx, tokenHash, time.Now().Add(11*time.Minute))
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Consuming the token clears the window.
	_, err = repo.SetPassword(ctx, user.ID, "$2a$12$newhashnewhashnewhashn")
	require.NoError(t, err)

	_, err = repo.GetByResetTokenHash(ctx, tokenHash, time.Now())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_UpgradeGuest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	guest, err := repo.Create(ctx, &models.User{
		Email:         "guest-integration@guests.centsible.app",
		Name:          "Guest",
		IsGuest:       true,
		EmailVerified: true,
		Preferences:   models.DefaultPreferences(),
		IsActive:      true,
	})
	require.NoError(t, err)

	upgraded, err := repo.UpgradeGuest(ctx, guest.ID, "Jane", "upgraded@example.com", "$2a$12$abcdefghijklmnopqrstuv")
	require.NoError(t, err)
	assert.False(t, upgraded.IsGuest)
	assert.False(t, upgraded.EmailVerified, "upgrade resets verification")
	assert.Equal(t, "upgraded@example.com", upgraded.Email)

	// A full account cannot be upgraded again.
	_, err = repo.UpgradeGuest(ctx, guest.ID, "Jane", "again@example.com", "$2a$12$abcdefghijklmnopqrstuv")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_ClearExpiredTokenWindows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newPersistedUser(t, repo, "sweep@example.com")
	staleHash := "aaaa0000aaaa0000aaaa0000aaaa0000aaaa0000aaaa0000aaaa0000aaaa0000"
	require.NoError(t, repo.SetResetToken(ctx, user.ID, staleHash, time.Now().Add(-1*time.Hour)))

	cleared, err := repo.ClearExpiredTokenWindows(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cleared, int64(1))

	fresh, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.ResetTokenHash)
}
