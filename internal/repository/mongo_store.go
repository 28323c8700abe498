package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection  = "users"
	tokensCollection = "refresh_tokens"
)

// MongoStore keeps users and refresh tokens in two MongoDB collections
type MongoStore struct {
	users  *mongo.Collection
	tokens *mongo.Collection
}

// NewMongoStore creates a store on top of db
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:  db.Collection(usersCollection),
		tokens: db.Collection(tokensCollection),
	}
}

// EnsureIndexes creates the indexes uniqueness and cleanup rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	if _, err := s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastUsedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create refresh_tokens indexes: %w", err)
	}

	return nil
}

// Users returns the store as a UserRepository
func (s *MongoStore) Users() UserRepository { return mongoUsers{s} }

// Tokens returns the store as a TokenRepository
func (s *MongoStore) Tokens() TokenRepository { return mongoTokens{s} }

type mongoUsers struct{ s *MongoStore }

func (m mongoUsers) Create(ctx context.Context, user *domain.User) error {
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

	if _, err := m.s.users.InsertOne(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m mongoUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": email}, "email "+email)
}

func (m mongoUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"_id": id}, "id "+id)
}

func (m mongoUsers) findOne(ctx context.Context, filter bson.M, what string) (*domain.User, error) {
	var user domain.User
	if err := m.s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with %s not found: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (m mongoUsers) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.IsEmpty() {
		return m.GetByID(ctx, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.PasswordHash != nil {
		set["passwordHash"] = *patch.PasswordHash
	}
	if patch.Verified != nil {
		set["verified"] = *patch.Verified
	}

	var user domain.User
	err := m.s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email already taken: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// Delete removes the user document first, so a concurrent login can no
// longer mint tokens for it, then sweeps its tokens.
func (m mongoUsers) Delete(ctx context.Context, id string) error {
	res, err := m.s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	if _, err := m.s.tokens.DeleteMany(ctx, bson.M{"userId": id}); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}
	return nil
}

type mongoTokens struct{ s *MongoStore }

func (m mongoTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
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

	if _, err := m.s.tokens.InsertOne(ctx, token); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token with hash already exists: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (m mongoTokens) ListByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	cursor, err := m.s.tokens.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "lastUsedAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens by user id: %w", err)
	}

	tokens := []*domain.RefreshToken{}
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}
	return tokens, nil
}

// Touch uses an update pipeline so the new lastUsedAt is computed from the
// stored one in the same atomic write. BSON dates have millisecond
// resolution, so the minimum step is one millisecond.
func (m mongoTokens) Touch(ctx context.Context, tokenHash string, device domain.Device, at time.Time) (*domain.RefreshToken, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "lastUsedAt", Value: bson.D{{Key: "$max", Value: bson.A{
				at.UTC(),
				bson.D{{Key: "$add", Value: bson.A{"$lastUsedAt", 1}}},
			}}}},
			{Key: "ip", Value: bson.D{{Key: "$literal", Value: device.IP}}},
			{Key: "userAgent", Value: bson.D{{Key: "$literal", Value: device.UserAgent}}},
		}}},
	}

	var token domain.RefreshToken
	err := m.s.tokens.FindOneAndUpdate(ctx,
		bson.M{"tokenHash": tokenHash},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to touch token: %w", err)
	}
	return &token, nil
}

func (m mongoTokens) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time, device *domain.Device) (int64, error) {
	filter := bson.M{
		"userId":     userID,
		"lastUsedAt": bson.M{"$lt": cutoff.UTC()},
	}
	if device != nil {
		filter["ip"] = device.IP
		filter["userAgent"] = device.UserAgent
	}

	res, err := m.s.tokens.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func (m mongoTokens) DeleteForUser(ctx context.Context, userID, tokenID string) error {
	res, err := m.s.tokens.DeleteOne(ctx, bson.M{"_id": tokenID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("token with id %s not found: %w", tokenID, ErrNotFound)
	}
	return nil
}

func (m mongoTokens) DeleteByHash(ctx context.Context, tokenHash, userID string) error {
	filter := bson.M{"tokenHash": tokenHash}
	if userID != "" {
		filter["userId"] = userID
	}

	res, err := m.s.tokens.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete token by hash: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("token with hash not found: %w", ErrNotFound)
	}
	return nil
}

func (m mongoTokens) DeleteAllByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := m.s.tokens.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}
	return res.DeletedCount, nil
}
