package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// AuthService defines the identity lifecycle operations exposed over HTTP
type AuthService interface {
	BeginSignup(ctx context.Context, email, password string) (*domain.VerificationTicket, error)
	CompleteSignup(ctx context.Context, email, password, token, code string) (*domain.User, error)
	Login(ctx context.Context, email, password string, device domain.Device) (*domain.TokenPair, error)
	GetAccessToken(ctx context.Context, refreshToken string, device domain.Device) (*domain.AccessToken, error)
	Logout(ctx context.Context, refreshToken, userID string) error
	RevokeSession(ctx context.Context, userID, tokenID string) error
	ListSessions(ctx context.Context, userID string) ([]*domain.RefreshToken, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	// ChangePassword returns a replacement refresh token when revokeRefreshTokens is set
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string, revokeRefreshTokens bool, device domain.Device) (string, error)
	BeginEmailChange(ctx context.Context, userID, password, newEmail string) (*domain.VerificationTicket, error)
	CompleteEmailChange(ctx context.Context, userID, newEmail, token, code string) (*domain.User, error)
	BeginPasswordReset(ctx context.Context, email string) (*domain.VerificationTicket, error)
	CompletePasswordReset(ctx context.Context, email, newPassword, token, code string) error
	RequestPasswordResetLink(ctx context.Context, email, redirectURL string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ValidateAccessToken(ctx context.Context, token string) (*domain.AccessClaims, error)
}

// OTPLedger records redeemed one-time codes and wrong guesses against them
type OTPLedger interface {
	Consume(ctx context.Context, fullHash string, ttl time.Duration) (bool, error)
	RecordFailure(ctx context.Context, fullHash string, ttl time.Duration, maxFailures int) (bool, error)
}
