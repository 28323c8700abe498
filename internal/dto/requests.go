package dto

// SignupRequest starts a signup
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CompleteSignupRequest finishes a signup with the emailed code
type CompleteSignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Code     string `json:"code" binding:"required,numeric"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenRequest exchanges a refresh token for an access token
type TokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest revokes a refresh token by value
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// PasswordResetRequest starts a code based password reset
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// CompletePasswordResetRequest finishes a code based password reset
type CompletePasswordResetRequest struct {
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
	Token       string `json:"token" binding:"required"`
	Code        string `json:"code" binding:"required,numeric"`
}

// PasswordResetLinkRequest asks for a reset link pointing at RedirectURL
type PasswordResetLinkRequest struct {
	Email       string `json:"email" binding:"required"`
	RedirectURL string `json:"redirect_url" binding:"required"`
}

// ResetPasswordRequest sets a new password with a token from a reset link
type ResetPasswordRequest struct {
	PasswordResetToken string `json:"password_reset_token" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest represents a password change of the current user
type ChangePasswordRequest struct {
	OldPassword         string `json:"old_password" binding:"required"`
	NewPassword         string `json:"new_password" binding:"required"`
	RevokeRefreshTokens bool   `json:"revoke_refresh_tokens"`
}

// EmailChangeRequest starts an email change of the current user
type EmailChangeRequest struct {
	Password string `json:"password" binding:"required"`
	NewEmail string `json:"new_email" binding:"required"`
}

// CompleteEmailChangeRequest finishes an email change with the emailed code
type CompleteEmailChangeRequest struct {
	NewEmail string `json:"new_email" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Code     string `json:"code" binding:"required,numeric"`
}
