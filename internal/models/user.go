package models

import (
	"time"
)

// Theme values accepted for the theme preference.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Preferences holds per-user display and notification settings.
type Preferences struct {
	Currency             string `json:"currency"`
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// DefaultPreferences returns the settings applied to newly created accounts.
func DefaultPreferences() Preferences {
	return Preferences{
		Currency:             "USD",
		Theme:                ThemeSystem,
		Language:             "en",
		NotificationsEnabled: true,
	}
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // empty for OAuth-only and guest accounts

	// OAuth identifiers, unique per provider when present
	GoogleID   *string
	FacebookID *string

	IsGuest bool

	// Email verification window; token fields set only while a verification is pending
	EmailVerified              bool
	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time

	// Password reset window; cleared on successful reset or password change
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time

	// Lockout state. LockedUntil in the future blocks password login
	// regardless of credential correctness.
	FailedLoginCount int
	LockedUntil      *time.Time

	Preferences Preferences

	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsLocked reports whether the lockout window is currently active.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// HasPassword reports whether the account supports password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
