package repositories

import (
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a user. Username and email must be unique.
func (r *MemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user: username or email already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

// GetByUsername returns a user by username.
func (r *MemoryUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.find("username", username, func(u models.User) bool { return u.Username == username })
}

// GetByEmail returns a user by email.
func (r *MemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.find("email", email, func(u models.User) bool { return u.Email == email })
}

// GetByID returns a user by ID.
func (r *MemoryUserRepository) GetByID(id string) (*models.User, error) {
	return r.find("id", id, func(u models.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) find(column, value string, match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with %s %s not found: %w", column, value, ErrNotFound)
}
