// Package validation holds the client-side signup checks. These run before
// any remote call; a violation blocks the call entirely.
package validation

import (
	"errors"
	"regexp"
)

// Signup rules. The email shape is deliberately simple (local@domain.tld);
// anything stricter belongs to the identity provider.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrInvalidEmail and ErrPasswordTooShort are the only validation messages
// surfaced verbatim to users; all other auth failures collapse to a generic one.
var (
	ErrInvalidEmail     = errors.New("Invalid email format. Please enter a valid email address.")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters long.")
)

// ValidateEmail checks the email against the simple local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword requires strictly more than 6 characters.
func ValidatePassword(password string) error {
	if len(password) <= 6 {
		return ErrPasswordTooShort
	}
	return nil
}
