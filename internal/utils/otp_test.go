package utils

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

func TestGenerateOTPAndHash(t *testing.T) {
	otp, err := GenerateOTPAndHash("a@b.com.signup", 6, 15*time.Minute, testKey)
	require.NoError(t, err)

	assert.Len(t, otp.Code, 6)
	assert.Regexp(t, digitsOnly, otp.Code)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}\.[0-9]+$`), otp.FullHash)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), otp.ExpiresAt, 2*time.Second)

	expiry, ok := OTPExpiry(otp.FullHash)
	require.True(t, ok)
	assert.Equal(t, otp.ExpiresAt, expiry)
}

func TestGenerateOTPAndHashRejectsBadInput(t *testing.T) {
	_, err := GenerateOTPAndHash("data", 0, time.Minute, testKey)
	assert.Error(t, err)

	_, err = GenerateOTPAndHash("data", 6, 0, testKey)
	assert.Error(t, err)

	_, err = GenerateOTPAndHash("data", 6, time.Minute, nil)
	assert.Error(t, err)
}

func TestVerifyOTP(t *testing.T) {
	otp, err := GenerateOTPAndHash("a@b.com.signup", 6, 15*time.Minute, testKey)
	require.NoError(t, err)

	assert.True(t, VerifyOTP("a@b.com.signup", otp.FullHash, otp.Code, testKey))

	t.Run("wrong code", func(t *testing.T) {
		assert.False(t, VerifyOTP("a@b.com.signup", otp.FullHash, wrongCode(otp.Code), testKey))
	})

	t.Run("different bound data", func(t *testing.T) {
		assert.False(t, VerifyOTP("c@d.com.signup", otp.FullHash, otp.Code, testKey))
		assert.False(t, VerifyOTP("a@b.com.password", otp.FullHash, otp.Code, testKey))
	})

	t.Run("different key", func(t *testing.T) {
		assert.False(t, VerifyOTP("a@b.com.signup", otp.FullHash, otp.Code, []byte("other-key")))
	})

	t.Run("tampered expiry", func(t *testing.T) {
		mac := otp.FullHash[:64]
		extended := mac + "." + strconv.FormatInt(otp.ExpiresAt.Add(time.Hour).UnixMilli(), 10)
		assert.False(t, VerifyOTP("a@b.com.signup", extended, otp.Code, testKey))
	})

	t.Run("malformed hash", func(t *testing.T) {
		assert.False(t, VerifyOTP("a@b.com.signup", "nodot", otp.Code, testKey))
		assert.False(t, VerifyOTP("a@b.com.signup", "zz.123", otp.Code, testKey))
		assert.False(t, VerifyOTP("a@b.com.signup", otp.FullHash[:64]+".soon", otp.Code, testKey))
	})
}

func TestVerifyOTPRejectsExpired(t *testing.T) {
	expires := time.Now().Add(-time.Second).UnixMilli()
	fullHash := otpMAC("a@b.com.signup", "123456", expires, testKey) + "." + strconv.FormatInt(expires, 10)

	assert.False(t, VerifyOTP("a@b.com.signup", fullHash, "123456", testKey))
}

func wrongCode(code string) string {
	if code[0] == '9' {
		return "0" + code[1:]
	}
	return string(code[0]+1) + code[1:]
}
