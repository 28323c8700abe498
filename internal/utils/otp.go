package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// OTP is a numeric one-time code together with the hash that proves it was
// issued by us. The code goes to the user by email, the hash goes back to the
// caller; nothing is stored server-side.
type OTP struct {
	Code      string
	FullHash  string
	ExpiresAt time.Time
}

// GenerateOTPAndHash creates a code of the given number of digits bound to
// data. FullHash has the form "<hex hmac>.<expiry unix millis>".
func GenerateOTPAndHash(data string, digits int, ttl time.Duration, key []byte) (*OTP, error) {
	if digits <= 0 {
		return nil, fmt.Errorf("otp digits must be positive, got %d", digits)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("otp ttl must be positive, got %v", ttl)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("otp key must not be empty")
	}

	var sb strings.Builder
	ten := big.NewInt(10)
	for range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return nil, fmt.Errorf("failed to generate otp: %w", err)
		}
		sb.WriteString(n.String())
	}
	code := sb.String()

	expiresAt := time.Now().Add(ttl)
	expires := expiresAt.UnixMilli()

	return &OTP{
		Code:      code,
		FullHash:  otpMAC(data, code, expires, key) + "." + strconv.FormatInt(expires, 10),
		ExpiresAt: time.UnixMilli(expires),
	}, nil
}

// VerifyOTP recomputes the HMAC for data and code using the expiry embedded in
// fullHash. It returns false when the hash is malformed, expired or mismatched.
func VerifyOTP(data, fullHash, code string, key []byte) bool {
	expiresAt, ok := OTPExpiry(fullHash)
	if !ok || !time.Now().Before(expiresAt) {
		return false
	}

	mac, _, _ := strings.Cut(fullHash, ".")
	got, err := hex.DecodeString(mac)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(otpMAC(data, code, expiresAt.UnixMilli(), key))

	return hmac.Equal(got, want)
}

// OTPExpiry returns the expiry embedded in fullHash
func OTPExpiry(fullHash string) (time.Time, bool) {
	_, expires, found := strings.Cut(fullHash, ".")
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func otpMAC(data, code string, expires int64, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data + "." + code + "." + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
