package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Update applies the non-nil fields of patch and returns the updated user.
	// Setting an email that another user owns fails with ErrDuplicateEmail.
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	// Delete removes the user together with all its refresh tokens
	Delete(ctx context.Context, id string) error
}

// TokenRepository defines methods for refresh token operations.
// Tokens are addressed by the SHA-256 digest of their bearer value.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// ListByUserID returns the user's tokens, most recently used first
	ListByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error)
	// Touch moves lastUsedAt of the token to at (or strictly past its previous
	// value), rebinds it to device and returns the updated token.
	Touch(ctx context.Context, tokenHash string, device domain.Device, at time.Time) (*domain.RefreshToken, error)
	// DeleteOlderThan removes the user's tokens last used before cutoff. When
	// device is non-nil only tokens bound to that device are considered.
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time, device *domain.Device) (int64, error)
	// DeleteForUser removes the token with the given id only if userID owns it
	DeleteForUser(ctx context.Context, userID, tokenID string) error
	// DeleteByHash removes the token with the given hash. A non-empty userID
	// restricts the delete to tokens that user owns.
	DeleteByHash(ctx context.Context, tokenHash, userID string) error
	DeleteAllByUserID(ctx context.Context, userID string) (int64, error)
}
