package dto

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// ErrValidation is wrapped by every request validation failure.
var ErrValidation = errors.New("validation failed")

const (
	minPasswordLen = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLen = 72
	maxNameLen     = 100
	maxEmailLen    = 255
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return validationError("username must be 3-50 characters of letters, digits, '.', '_' or '-'")
	}
	return nil
}

// normalizeEmail lower-cases the whole address. Emails are stored and
// compared in this form only.
func normalizeEmail(email string) string {
	return strings.ToLower(email)
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return validationError("a valid email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("a valid email is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return validationError(fmt.Sprintf("password must be %d-%d bytes", minPasswordLen, maxPasswordLen))
	}
	return nil
}

func validateNames(first, last string) error {
	if len(first) > maxNameLen || len(last) > maxNameLen {
		return validationError(fmt.Sprintf("names must be at most %d characters", maxNameLen))
	}
	return nil
}
