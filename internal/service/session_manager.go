package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.uber.org/zap"
)

const tokenTypeBearer = "Bearer"

// CleanupPolicy holds the two refresh token age limits applied after every mint.
// SameDeviceAfter only applies to tokens bound to the minting device.
type CleanupPolicy struct {
	SameDeviceAfter time.Duration
	AnyDeviceAfter  time.Duration
}

// SessionManager owns the refresh token lifecycle and mints access tokens
// from valid refresh tokens. It keeps no state of its own.
type SessionManager struct {
	tokenRepo  repository.TokenRepository
	jwtManager *utils.JWTManager
	policy     CleanupPolicy
	logger     *zap.Logger
	metrics    *observability.AuthMetrics
	now        func() time.Time
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	tokenRepo repository.TokenRepository,
	jwtManager *utils.JWTManager,
	policy CleanupPolicy,
	logger *zap.Logger,
	metrics *observability.AuthMetrics,
) *SessionManager {
	return &SessionManager{
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
		policy:     policy,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// MintRefreshToken stores a new refresh token for the user bound to device
// and returns its value. Stale tokens are swept afterwards; a failed sweep
// is logged and retried on the next mint.
func (m *SessionManager) MintRefreshToken(ctx context.Context, userID string, device domain.Device) (string, error) {
	value, err := utils.GenerateRefreshToken()
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	token := &domain.RefreshToken{
		UserID:     userID,
		TokenHash:  utils.HashToken(value),
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		LastUsedAt: now,
		CreatedAt:  now,
	}
	if err := m.tokenRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	m.cleanup(ctx, userID, device, now)

	return value, nil
}

// cleanup runs the two age limits as separate deletes. Combining them into
// one predicate would let the tighter window evict other devices' tokens.
func (m *SessionManager) cleanup(ctx context.Context, userID string, device domain.Device, now time.Time) {
	var removed int64

	n, err := m.tokenRepo.DeleteOlderThan(ctx, userID, now.Add(-m.policy.SameDeviceAfter), &device)
	if err != nil {
		m.logger.Warn("failed to clean up same-device refresh tokens",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	removed += n

	n, err = m.tokenRepo.DeleteOlderThan(ctx, userID, now.Add(-m.policy.AnyDeviceAfter), nil)
	if err != nil {
		m.logger.Warn("failed to clean up expired refresh tokens",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	removed += n

	if removed > 0 {
		m.logger.Debug("refresh tokens cleaned up",
			zap.String("user_id", userID),
			zap.Int64("removed", removed),
		)
		m.metrics.TokensCleaned(ctx, removed)
	}
}

// RedeemForAccessToken exchanges a refresh token for a fresh access token.
// The token is rebound to device and its lastUsedAt moves forward.
func (m *SessionManager) RedeemForAccessToken(ctx context.Context, refreshToken string, device domain.Device) (*domain.AccessToken, error) {
	if refreshToken == "" {
		m.metrics.TokenRefresh(ctx, "invalid")
		return nil, domain.ErrInvalidRefreshToken
	}

	token, err := m.tokenRepo.Touch(ctx, utils.HashToken(refreshToken), device, m.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.metrics.TokenRefresh(ctx, "invalid")
			return nil, domain.ErrInvalidRefreshToken
		}
		m.metrics.TokenRefresh(ctx, "error")
		return nil, fmt.Errorf("failed to redeem refresh token: %w", err)
	}

	accessToken, err := m.IssueAccessToken(token.UserID)
	if err != nil {
		m.metrics.TokenRefresh(ctx, "error")
		return nil, err
	}

	m.metrics.TokenRefresh(ctx, "success")
	return accessToken, nil
}

// IssueAccessToken mints a short-lived access token for the user
func (m *SessionManager) IssueAccessToken(userID string) (*domain.AccessToken, error) {
	token, err := m.jwtManager.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AccessToken{
		Token:     token,
		TokenType: tokenTypeBearer,
		ExpiresIn: m.jwtManager.GetAccessTokenExpiry(),
	}, nil
}

// RevokeByTokenID deletes one refresh token of the user. A token owned by
// someone else is reported exactly like a missing one.
func (m *SessionManager) RevokeByTokenID(ctx context.Context, userID, tokenID string) error {
	if err := m.tokenRepo.DeleteForUser(ctx, userID, tokenID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeByTokenValue deletes the refresh token with the given value. A
// non-empty userID restricts the delete to that user's tokens.
func (m *SessionManager) RevokeByTokenValue(ctx context.Context, refreshToken, userID string) error {
	if refreshToken == "" {
		return domain.ErrItemNotFound
	}

	if err := m.tokenRepo.DeleteByHash(ctx, utils.HashToken(refreshToken), userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll deletes every refresh token of the user
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) error {
	n, err := m.tokenRepo.DeleteAllByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	m.logger.Info("revoked all refresh tokens",
		zap.String("user_id", userID),
		zap.Int64("count", n),
	)
	return nil
}

// ListSessions returns the user's refresh tokens, most recently used first
func (m *SessionManager) ListSessions(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	tokens, err := m.tokenRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return tokens, nil
}
