package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorath/centsible/internal/auth"
	"github.com/ssorath/centsible/internal/models"
	"github.com/ssorath/centsible/internal/services"
	pkghttp "github.com/ssorath/centsible/pkg/http"
)

// NewTestRequest creates an HTTP request with a JSON body.
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext injects a resolved user, as RequireAuth would.
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	claims := &models.TokenClaims{
		Type:    models.TokenTypeAccess,
		UserID:  user.ID,
		Email:   user.Email,
		IsGuest: user.IsGuest,
	}
	return req.WithContext(auth.ContextWithUser(req.Context(), user, claims))
}

// AssertErrorResponse checks status code and error kind of an error response.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedKind string) {
	assert.Equal(t, expectedStatus, w.Code, "response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expectedKind, resp.Error, "error kind mismatch")
	assert.NotEmpty(t, resp.Message)
}

// NewTestAccountUser builds an active full account.
func NewTestAccountUser(id, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:          id,
		Email:       email,
		Name:        "Test User",
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testAuthResponse(user *models.User) *services.AuthResponse {
	return &services.AuthResponse{
		User:   services.UserToResponse(user),
		Tokens: &models.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"},
	}
}

// MockAuthService implements AuthServiceInterface for testing.
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, name, email, password string) (*services.AuthResponse, error)
	LoginFunc                func(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	GuestAccessFunc          func(ctx context.Context, prefs *models.Preferences) (*services.AuthResponse, error)
	OAuthCallbackFunc        func(ctx context.Context, identity *models.ExternalIdentity) (*services.AuthResponse, error)
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ResetPasswordFunc        func(ctx context.Context, token, newPassword string) (*services.AuthResponse, error)
	VerifyEmailFunc          func(ctx context.Context, token string) (*models.User, error)
	RefreshFunc              func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	UpgradeGuestFunc         func(ctx context.Context, userID, name, email, password string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, name, email, password string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, name, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) GuestAccess(ctx context.Context, prefs *models.Preferences) (*services.AuthResponse, error) {
	if m.GuestAccessFunc != nil {
		return m.GuestAccessFunc(ctx, prefs)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) OAuthCallback(ctx context.Context, identity *models.ExternalIdentity) (*services.AuthResponse, error) {
	if m.OAuthCallbackFunc != nil {
		return m.OAuthCallbackFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) (*services.AuthResponse, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil, models.ErrInvalidResetToken
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return nil, models.ErrInvalidResetToken
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrTokenInvalid
}

func (m *MockAuthService) UpgradeGuest(ctx context.Context, userID, name, email, password string) (*services.AuthResponse, error) {
	if m.UpgradeGuestFunc != nil {
		return m.UpgradeGuestFunc(ctx, userID, name, email, password)
	}
	return nil, models.ErrInternalServer
}

// MockUserService implements UserServiceInterface for testing.
type MockUserService struct {
	GetProfileFunc        func(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfileFunc     func(ctx context.Context, userID string, update *services.ProfileUpdate) (*services.UserResponse, error)
	DeactivateAccountFunc func(ctx context.Context, userID string) error
}

func (m *MockUserService) GetProfile(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID string, update *services.ProfileUpdate) (*services.UserResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) DeactivateAccount(ctx context.Context, userID string) error {
	if m.DeactivateAccountFunc != nil {
		return m.DeactivateAccountFunc(ctx, userID)
	}
	return nil
}

// MockTransactionService implements TransactionServiceInterface for testing.
type MockTransactionService struct {
	CreateFunc         func(ctx context.Context, userID string, input *services.TransactionInput) (*services.TransactionResponse, error)
	GetFunc            func(ctx context.Context, userID, id string) (*services.TransactionResponse, error)
	ListFunc           func(ctx context.Context, userID string, filter models.TransactionFilter) ([]*services.TransactionResponse, error)
	UpdateFunc         func(ctx context.Context, userID, id string, input *services.TransactionInput) (*services.TransactionResponse, error)
	DeleteFunc         func(ctx context.Context, userID, id string) error
	SummarizeFunc      func(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error)
	ListCategoriesFunc func(ctx context.Context, userID string) ([]*models.Category, error)
	CreateCategoryFunc func(ctx context.Context, userID string, input *services.CategoryInput) (*models.Category, error)
	DeleteCategoryFunc func(ctx context.Context, userID, id string) error
}

func (m *MockTransactionService) Create(ctx context.Context, userID string, input *services.TransactionInput) (*services.TransactionResponse, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTransactionService) Get(ctx context.Context, userID, id string) (*services.TransactionResponse, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTransactionService) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*services.TransactionResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, filter)
	}
	return []*services.TransactionResponse{}, nil
}

func (m *MockTransactionService) Update(ctx context.Context, userID, id string, input *services.TransactionInput) (*services.TransactionResponse, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, id, input)
	}
	return nil, models.ErrNotFound
}

func (m *MockTransactionService) Delete(ctx context.Context, userID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, id)
	}
	return nil
}

func (m *MockTransactionService) Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, userID, from, to)
	}
	return &models.Summary{}, nil
}

func (m *MockTransactionService) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, userID)
	}
	return []*models.Category{}, nil
}

func (m *MockTransactionService) CreateCategory(ctx context.Context, userID string, input *services.CategoryInput) (*models.Category, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, userID, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTransactionService) DeleteCategory(ctx context.Context, userID, id string) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, userID, id)
	}
	return nil
}
