package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes
const maxPasswordBytes = 72

// PasswordPolicy validates, hashes and verifies passwords
type PasswordPolicy struct {
	minLength int
	cost      int
}

// NewPasswordPolicy creates a policy with the given minimum length and bcrypt cost
func NewPasswordPolicy(minLength, cost int) *PasswordPolicy {
	return &PasswordPolicy{minLength: minLength, cost: cost}
}

// Validate reports whether the password satisfies the policy
func (p *PasswordPolicy) Validate(password string) bool {
	return utf8.RuneCountInString(password) >= p.minLength && len(password) <= maxPasswordBytes
}

// HashAndValidate hashes the password, failing with INVALID_PASSWORD when it
// does not satisfy the policy
func (p *PasswordPolicy) HashAndValidate(password string) (string, error) {
	if !p.Validate(password) {
		return "", domain.ErrInvalidPassword
	}
	return HashPassword(password, p.cost)
}

// Cost returns the bcrypt cost hashes are created with
func (p *PasswordPolicy) Cost() int {
	return p.cost
}

// Verify compares a password with a stored hash. An empty hash never matches.
func (p *PasswordPolicy) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return CheckPasswordHash(password, hash)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
