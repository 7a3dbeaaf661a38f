package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ssorath/centsible/internal/models"
	pkglogger "github.com/ssorath/centsible/pkg/logger"
)

// ProfileRepository is the subset of user storage the profile service needs.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name string, prefs models.Preferences) (*models.User, error)
	Deactivate(ctx context.Context, id string) error
}

// ProfileUpdate carries a partial profile change; nil fields are untouched.
type ProfileUpdate struct {
	Name        *string            `json:"name" validate:"omitempty,min=1,max=100"`
	Preferences *PreferencesUpdate `json:"preferences"`
}

type PreferencesUpdate struct {
	Currency             *string `json:"currency" validate:"omitempty,len=3,alpha"`
	Theme                *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language             *string `json:"language" validate:"omitempty,min=2,max=10"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
}

// UserService handles profile reads, partial updates and soft deactivation.
type UserService struct {
	repo   ProfileRepository
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

func NewUserService(repo ProfileRepository, logger *slog.Logger, audit *pkglogger.AuditLogger) *UserService {
	return &UserService{repo: repo, logger: logger, audit: audit}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return UserToResponse(user), nil
}

// UpdateProfile merges the requested changes over the stored profile and
// writes the result back in one statement.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update *ProfileUpdate) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load user for update", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	name := user.Name
	if update.Name != nil {
		name = strings.TrimSpace(*update.Name)
	}

	prefs := user.Preferences
	if update.Preferences != nil {
		if update.Preferences.Currency != nil {
			prefs.Currency = strings.ToUpper(*update.Preferences.Currency)
		}
		if update.Preferences.Theme != nil {
			prefs.Theme = *update.Preferences.Theme
		}
		if update.Preferences.Language != nil {
			prefs.Language = *update.Preferences.Language
		}
		if update.Preferences.NotificationsEnabled != nil {
			prefs.NotificationsEnabled = *update.Preferences.NotificationsEnabled
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, userID, name, prefs)
	if err != nil {
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return UserToResponse(updated), nil
}

// DeactivateAccount soft-deletes the account. Existing tokens keep their
// signatures but stop resolving to a usable user.
func (s *UserService) DeactivateAccount(ctx context.Context, userID string) error {
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to deactivate account", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogAccountAction("account_deactivated", userID, nil)
	return nil
}
