package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid strong password",
			password:   "SecureP@ss123",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "Pass@1",
			shouldFail: true,
		},
		{
			name:       "exactly minimum length",
			password:   "12345678",
			shouldFail: false,
		},
		{
			name:       "exactly maximum length",
			password:   strings.Repeat("a", MaxPasswordLen),
			shouldFail: false,
		},
		{
			name:       "over maximum length",
			password:   strings.Repeat("a", MaxPasswordLen+1),
			shouldFail: true,
		},
		{
			name:       "length valid without character classes",
			password:   "aaaaaaaa",
			shouldFail: false,
		},
		{
			name:       "length valid all whitespace",
			password:   "        ",
			shouldFail: false,
		},
		{
			name:       "length valid with non-ascii",
			password:   "pässwörd",
			shouldFail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if _, ok := err.(*PasswordValidationError); !ok {
					t.Errorf("expected PasswordValidationError, got %T", err)
				}
			} else {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			}
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecureP@ss123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("hash should not be empty")
	}

	if hash == password {
		t.Error("hash should not equal plaintext password")
	}

	err = ComparePassword(hash, password)
	if err != nil {
		t.Errorf("ComparePassword with correct password failed: %v", err)
	}

	err = ComparePassword(hash, "WrongPassword123!")
	if err == nil {
		t.Error("ComparePassword with wrong password should fail")
	}
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	first, err := HashPassword("SecureP@ss123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("SecureP@ss123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password should differ")
	}
}
