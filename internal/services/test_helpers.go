package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ssorath/centsible/internal/models"
)

// MockUserRepository implements UserRepository and ProfileRepository for testing.
type MockUserRepository struct {
	GetByIDFunc                    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc                 func(ctx context.Context, email string) (*models.User, error)
	GetByOAuthIDFunc               func(ctx context.Context, provider, providerID string) (*models.User, error)
	GetByResetTokenHashFunc        func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	GetByVerificationTokenHashFunc func(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	CreateFunc                     func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc              func(ctx context.Context, id, name string, prefs models.Preferences) (*models.User, error)
	RecordLoginFailureFunc         func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.User, error)
	RecordLoginSuccessFunc         func(ctx context.Context, id string) (*models.User, error)
	ClearExpiredLockFunc           func(ctx context.Context, id string) (*models.User, error)
	SetPasswordFunc                func(ctx context.Context, id, passwordHash string) (*models.User, error)
	SetResetTokenFunc              func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetTokenFunc            func(ctx context.Context, id string) error
	SetVerificationTokenFunc       func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	MarkEmailVerifiedFunc          func(ctx context.Context, id string) (*models.User, error)
	LinkOAuthIDFunc                func(ctx context.Context, id, provider, providerID string) (*models.User, error)
	UpgradeGuestFunc               func(ctx context.Context, id, name, email, passwordHash string) (*models.User, error)
	DeactivateFunc                 func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByOAuthID(ctx context.Context, provider, providerID string) (*models.User, error) {
	if m.GetByOAuthIDFunc != nil {
		return m.GetByOAuthIDFunc(ctx, provider, providerID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if m.GetByResetTokenHashFunc != nil {
		return m.GetByResetTokenHashFunc(ctx, tokenHash, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if m.GetByVerificationTokenHashFunc != nil {
		return m.GetByVerificationTokenHashFunc(ctx, tokenHash, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, name string, prefs models.Preferences) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name, prefs)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.User, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, threshold, lockout)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) RecordLoginSuccess(ctx context.Context, id string) (*models.User, error) {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) ClearExpiredLock(ctx context.Context, id string) (*models.User, error) {
	if m.ClearExpiredLockFunc != nil {
		return m.ClearExpiredLockFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetPassword(ctx context.Context, id, passwordHash string) (*models.User, error) {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, id, passwordHash)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) ClearResetToken(ctx context.Context, id string) error {
	if m.ClearResetTokenFunc != nil {
		return m.ClearResetTokenFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetVerificationToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string) (*models.User, error) {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) LinkOAuthID(ctx context.Context, id, provider, providerID string) (*models.User, error) {
	if m.LinkOAuthIDFunc != nil {
		return m.LinkOAuthIDFunc(ctx, id, provider, providerID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpgradeGuest(ctx context.Context, id, name, email, passwordHash string) (*models.User, error) {
	if m.UpgradeGuestFunc != nil {
		return m.UpgradeGuestFunc(ctx, id, name, email, passwordHash)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

// MockTokenIssuer implements TokenIssuer for testing.
type MockTokenIssuer struct {
	IssueFunc  func(user *models.User) (*models.TokenPair, error)
	VerifyFunc func(tokenString, tokenType string) (*models.TokenClaims, error)
}

func (m *MockTokenIssuer) Issue(user *models.User) (*models.TokenPair, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(user)
	}
	return &models.TokenPair{AccessToken: "access-" + user.ID, RefreshToken: "refresh-" + user.ID}, nil
}

func (m *MockTokenIssuer) Verify(tokenString, tokenType string) (*models.TokenClaims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(tokenString, tokenType)
	}
	return nil, models.ErrTokenInvalid
}

// MockEmailSender implements EmailSender for testing.
type MockEmailSender struct {
	SendVerificationEmailFunc  func(ctx context.Context, to, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, to, token string, expiresAt time.Time) error
}

func (m *MockEmailSender) SendVerificationEmail(ctx context.Context, to, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, to, token, expiresAt)
	}
	return nil
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, to, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, to, token, expiresAt)
	}
	return nil
}

// MockCategorySeeder implements CategorySeeder for testing.
type MockCategorySeeder struct {
	SeedDefaultsFunc func(ctx context.Context, userID string) error
}

func (m *MockCategorySeeder) SeedDefaults(ctx context.Context, userID string) error {
	if m.SeedDefaultsFunc != nil {
		return m.SeedDefaultsFunc(ctx, userID)
	}
	return nil
}

// noopDelay implements FailureDelayer without sleeping, keeping tests fast.
type noopDelay struct{}

func (noopDelay) WaitFrom(startTime time.Time, success bool) {}

// MockTransactionRepository implements TransactionRepository for testing.
type MockTransactionRepository struct {
	CreateFunc    func(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	GetByIDFunc   func(ctx context.Context, userID, id string) (*models.Transaction, error)
	ListFunc      func(ctx context.Context, userID string, filter models.TransactionFilter) ([]*models.Transaction, error)
	UpdateFunc    func(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	DeleteFunc    func(ctx context.Context, userID, id string) error
	SummarizeFunc func(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error)
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, txn)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTransactionRepository) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, filter)
	}
	return []*models.Transaction{}, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, txn)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTransactionRepository) Delete(ctx context.Context, userID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, id)
	}
	return nil
}

func (m *MockTransactionRepository) Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, userID, from, to)
	}
	return &models.Summary{}, nil
}

// MockCategoryRepository implements CategoryRepository for testing.
type MockCategoryRepository struct {
	CreateFunc  func(ctx context.Context, category *models.Category) (*models.Category, error)
	ListFunc    func(ctx context.Context, userID string) ([]*models.Category, error)
	GetByIDFunc func(ctx context.Context, userID, id string) (*models.Category, error)
	DeleteFunc  func(ctx context.Context, userID, id string) error
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, category)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCategoryRepository) List(ctx context.Context, userID string) ([]*models.Category, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []*models.Category{}, nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, userID, id string) (*models.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCategoryRepository) Delete(ctx context.Context, userID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, id)
	}
	return nil
}

// NewTestUser builds an active full account with sensible defaults.
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:          id,
		Email:       email,
		Name:        name,
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestGuest builds an active guest account.
func NewTestGuest(id string) *models.User {
	user := NewTestUser(id, "guest-"+uuid.New().String()+"@"+guestEmailDomain, "Guest")
	user.IsGuest = true
	user.EmailVerified = true
	return user
}
