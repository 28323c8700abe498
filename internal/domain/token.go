package domain

import "time"

// AccessClaims represents the verified contents of an access token
type AccessClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair represents the credentials handed out on login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccessToken represents a freshly minted access token
type AccessToken struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// VerificationTicket is the half of a one-time code that is returned to the
// caller. The code itself travels by email; both are needed to complete.
type VerificationTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPPurpose scopes a one-time code to a single kind of transaction
type OTPPurpose string

const (
	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposeEmailChange   OTPPurpose = "email"
	OTPPurposePasswordReset OTPPurpose = "password"
)
