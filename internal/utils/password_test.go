package utils

import (
	"strings"
	"testing"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicyValidate(t *testing.T) {
	policy := NewPasswordPolicy(6, bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"too short", "12345", false},
		{"exactly min", "123456", true},
		{"typical", "zoom4321", true},
		{"multibyte counts runes", "пароль", true},
		{"over bcrypt limit", strings.Repeat("a", 73), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Validate(tt.password))
		})
	}
}

func TestPasswordPolicyMinLengthIsConfigurable(t *testing.T) {
	policy := NewPasswordPolicy(10, bcrypt.MinCost)

	assert.False(t, policy.Validate("zoom4321"))
	assert.True(t, policy.Validate("zoom4321zoom"))
}

func TestPasswordPolicyHashAndVerify(t *testing.T) {
	policy := NewPasswordPolicy(6, bcrypt.MinCost)

	hash, err := policy.HashAndValidate("zoom4321")
	require.NoError(t, err)
	assert.NotEqual(t, "zoom4321", hash)

	assert.True(t, policy.Verify("zoom4321", hash))
	assert.False(t, policy.Verify("zoom4322", hash))
	assert.False(t, policy.Verify("zoom4321", ""))
}

func TestPasswordPolicyRejectsWeakPassword(t *testing.T) {
	policy := NewPasswordPolicy(6, bcrypt.MinCost)

	_, err := policy.HashAndValidate("123")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := HashPassword("zoom4321", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("zoom4321", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPasswordHash("zoom4321", first))
	assert.True(t, CheckPasswordHash("zoom4321", second))
}
