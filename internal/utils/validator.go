package utils

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

var emailRegex = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// EnsureEmail returns a VALIDATION_ERROR for the field when email is malformed
func EnsureEmail(field, email string) error {
	if !ValidateEmail(email) {
		return domain.ValidationError(field, "not a valid email")
	}
	return nil
}

// SanitizeEmail normalizes an email address for storage and comparison
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureRedirectURL returns a VALIDATION_ERROR unless raw is an absolute http(s) URL
func EnsureRedirectURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ValidationError(field, "not a valid URL")
	}
	return nil
}
