package auth

import (
	"errors"

	"github.com/koustreak/deckbuilder/internal/errs"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", errs.New(errs.ErrKindInvalidInput, "password must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "password is too long", err)
		}
		return "", errs.Wrap(errs.ErrKindUnknown, "failed to hash password", err)
	}
	return string(h), nil
}

// CheckPassword compares password against a bcrypt hash. Any mismatch or
// malformed hash is reported as unauthenticated.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errs.Wrap(errs.ErrKindUnauthenticated, "invalid email or password", err)
	}
	return nil
}
