package validator

import (
	"errors"
	"net/mail"
	"strings"
)

// NormalizeEmail validates a bare address and returns it lower-cased.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("invalid email format")
	}

	at := strings.LastIndex(email, "@")
	if !strings.Contains(email[at+1:], ".") {
		return "", errors.New("invalid email domain")
	}
	return strings.ToLower(email), nil
}

// Password enforces the minimum password policy.
func Password(password string) error {
	if len([]rune(password)) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}
