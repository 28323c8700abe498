package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/pkg/database"
)

const tokenColumns = `id, user_id, token_hash, ip, user_agent, last_used_at, created_at`

// tokenRepository implements TokenRepository on PostgreSQL
type tokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.Postgres) TokenRepository {
	return &tokenRepository{db: db}
}

// Create creates a new refresh token in the database
func (r *tokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	if token.LastUsedAt.IsZero() {
		token.LastUsedAt = token.CreatedAt
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.IP,
		token.UserAgent,
		token.LastUsedAt,
		token.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token with hash already exists: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// ListByUserID retrieves all refresh tokens for a user
func (r *tokenRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []*domain.RefreshToken{}, nil
	}

	query := `
		SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY last_used_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens by user id: %w", err)
	}
	defer rows.Close()

	tokens := []*domain.RefreshToken{}
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}

	return tokens, nil
}

// Touch records a use of the token. lastUsedAt never stays put, so two
// redemptions within the clock resolution still order correctly.
func (r *tokenRepository) Touch(ctx context.Context, tokenHash string, device domain.Device, at time.Time) (*domain.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET last_used_at = GREATEST($2::timestamptz, last_used_at + interval '1 microsecond'),
			ip = $3,
			user_agent = $4
		WHERE token_hash = $1
		RETURNING ` + tokenColumns

	token, err := scanToken(r.db.DB.QueryRowContext(ctx, query, tokenHash, at, device.IP, device.UserAgent))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to touch token: %w", err)
	}

	return token, nil
}

// DeleteOlderThan deletes the user's tokens last used before cutoff
func (r *tokenRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time, device *domain.Device) (int64, error) {
	var (
		result sql.Result
		err    error
	)

	if device != nil {
		result, err = r.db.DB.ExecContext(ctx, `
			DELETE FROM refresh_tokens
			WHERE user_id = $1 AND last_used_at < $2 AND ip = $3 AND user_agent = $4
		`, userID, cutoff, device.IP, device.UserAgent)
	} else {
		result, err = r.db.DB.ExecContext(ctx, `
			DELETE FROM refresh_tokens
			WHERE user_id = $1 AND last_used_at < $2
		`, userID, cutoff)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tokens: %w", err)
	}

	return result.RowsAffected()
}

// DeleteForUser deletes a refresh token by ID if the user owns it
func (r *tokenRepository) DeleteForUser(ctx context.Context, userID, tokenID string) error {
	if _, err := uuid.Parse(tokenID); err != nil {
		return fmt.Errorf("token with id %s not found: %w", tokenID, ErrNotFound)
	}

	query := `DELETE FROM refresh_tokens WHERE id = $1 AND user_id = $2`

	result, err := r.db.DB.ExecContext(ctx, query, tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("token with id %s", tokenID))
}

// DeleteByHash deletes a refresh token by its hash
func (r *tokenRepository) DeleteByHash(ctx context.Context, tokenHash, userID string) error {
	var (
		result sql.Result
		err    error
	)

	if userID != "" {
		result, err = r.db.DB.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE token_hash = $1 AND user_id = $2`, tokenHash, userID)
	} else {
		result, err = r.db.DB.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	}
	if err != nil {
		return fmt.Errorf("failed to delete token by hash: %w", err)
	}

	return expectOneRow(result, "token with hash")
}

// DeleteAllByUserID deletes every refresh token of the user
func (r *tokenRepository) DeleteAllByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	return result.RowsAffected()
}

func scanToken(row rowScanner) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{}
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.IP,
		&token.UserAgent,
		&token.LastUsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}

	return nil
}
