package repository

import (
	"github.com/prperemyshlev/identity-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User  UserRepository
	Token TokenRepository
}

// NewRepositories creates PostgreSQL-backed repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Token: NewTokenRepository(db),
	}
}

// NewMongoRepositories creates repositories on top of a MongoDB store
func NewMongoRepositories(store *MongoStore) *Repositories {
	return &Repositories{
		User:  store.Users(),
		Token: store.Tokens(),
	}
}

// NewMemoryRepositories creates repositories that share one in-memory store
func NewMemoryRepositories() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		User:  store.Users(),
		Token: store.Tokens(),
	}
}
