package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
)

// MemoryStore keeps users and refresh tokens in process memory. It backs the
// "memory" store driver and service tests; data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	tokens  map[string]*domain.RefreshToken
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*domain.RefreshToken),
	}
}

// Users returns the store as a UserRepository
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Tokens returns the store as a TokenRepository
func (s *MemoryStore) Tokens() TokenRepository { return memoryTokens{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user *domain.User) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
	}
	user := *s.users[id]
	return &user, nil
}

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	user := *stored
	return &user, nil
}

func (m memoryUsers) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	if patch.Email != nil && *patch.Email != stored.Email {
		if _, taken := s.byEmail[*patch.Email]; taken {
			return nil, fmt.Errorf("email already taken: %w", ErrDuplicateEmail)
		}
		delete(s.byEmail, stored.Email)
		s.byEmail[*patch.Email] = id
		stored.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		stored.PasswordHash = *patch.PasswordHash
	}
	if patch.Verified != nil {
		stored.Verified = *patch.Verified
	}
	if !patch.IsEmpty() {
		stored.UpdatedAt = time.Now().UTC()
	}

	user := *stored
	return &user, nil
}

func (m memoryUsers) Delete(_ context.Context, id string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	delete(s.users, id)
	delete(s.byEmail, stored.Email)
	for hash, token := range s.tokens {
		if token.UserID == id {
			delete(s.tokens, hash)
		}
	}
	return nil
}

type memoryTokens struct{ s *MemoryStore }

func (m memoryTokens) Create(_ context.Context, token *domain.RefreshToken) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return fmt.Errorf("user with id %s not found: %w", token.UserID, ErrNotFound)
	}
	if _, dup := s.tokens[token.TokenHash]; dup {
		return fmt.Errorf("token with hash already exists: %w", ErrDuplicateToken)
	}

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

	stored := *token
	s.tokens[token.TokenHash] = &stored
	return nil
}

func (m memoryTokens) ListByUserID(_ context.Context, userID string) ([]*domain.RefreshToken, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := []*domain.RefreshToken{}
	for _, stored := range s.tokens {
		if stored.UserID == userID {
			token := *stored
			tokens = append(tokens, &token)
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].LastUsedAt.After(tokens[j].LastUsedAt)
	})
	return tokens, nil
}

func (m memoryTokens) Touch(_ context.Context, tokenHash string, device domain.Device, at time.Time) (*domain.RefreshToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
	}

	if !at.After(stored.LastUsedAt) {
		at = stored.LastUsedAt.Add(time.Microsecond)
	}
	stored.LastUsedAt = at
	stored.IP = device.IP
	stored.UserAgent = device.UserAgent

	token := *stored
	return &token, nil
}

func (m memoryTokens) DeleteOlderThan(_ context.Context, userID string, cutoff time.Time, device *domain.Device) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for hash, token := range s.tokens {
		if token.UserID != userID || !token.LastUsedAt.Before(cutoff) {
			continue
		}
		if device != nil && !token.Matches(*device) {
			continue
		}
		delete(s.tokens, hash)
		removed++
	}
	return removed, nil
}

func (m memoryTokens) DeleteForUser(_ context.Context, userID, tokenID string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, token := range s.tokens {
		if token.ID == tokenID && token.UserID == userID {
			delete(s.tokens, hash)
			return nil
		}
	}
	return fmt.Errorf("token with id %s not found: %w", tokenID, ErrNotFound)
}

func (m memoryTokens) DeleteByHash(_ context.Context, tokenHash, userID string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[tokenHash]
	if !ok || (userID != "" && token.UserID != userID) {
		return fmt.Errorf("token with hash not found: %w", ErrNotFound)
	}
	delete(s.tokens, tokenHash)
	return nil
}

func (m memoryTokens) DeleteAllByUserID(_ context.Context, userID string) (int64, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for hash, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, hash)
			removed++
		}
	}
	return removed, nil
}
