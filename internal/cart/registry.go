package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Persister stores cart lines outside the process. Implementations are used on a
// best-effort basis: the in-memory cart stays authoritative for the session.
type Persister interface {
	// Load returns the saved lines for userID, or nil when nothing is stored.
	Load(ctx context.Context, userID string) ([]Line, error)
	Save(ctx context.Context, userID string, lines []Line) error
	Delete(ctx context.Context, userID string) error
}

// Registry owns one Cart per signed-in user.
type Registry struct {
	mu        sync.Mutex
	carts     map[string]*Cart
	persister Persister
}

// NewRegistry creates a Registry. persister may be nil.
func NewRegistry(persister Persister) *Registry {
	return &Registry{
		carts:     make(map[string]*Cart),
		persister: persister,
	}
}

// Get returns the cart of userID, creating it (and loading any persisted lines) on
// first use. The persister is called without holding the registry lock; when two
// first accesses race, the cart stored first wins.
func (r *Registry) Get(ctx context.Context, userID string) *Cart {
	r.mu.Lock()
	c, ok := r.carts[userID]
	r.mu.Unlock()
	if ok {
		return c
	}

	c = New()
	if r.persister != nil {
		lines, err := r.persister.Load(ctx, userID)
		if err != nil {
			zap.L().Warn("failed to load persisted cart", zap.String("user_id", userID), zap.Error(err))
		} else if len(lines) > 0 {
			c.Restore(lines)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.carts[userID]; ok {
		return existing
	}
	r.carts[userID] = c
	return c
}

// Save writes the current cart of userID through the persister, if any.
func (r *Registry) Save(ctx context.Context, userID string) {
	if r.persister == nil {
		return
	}
	r.mu.Lock()
	c, ok := r.carts[userID]
	r.mu.Unlock()
	if !ok {
		return
	}

	var err error
	if lines := c.Lines(); len(lines) == 0 {
		err = r.persister.Delete(ctx, userID)
	} else {
		err = r.persister.Save(ctx, userID, lines)
	}
	if err != nil {
		zap.L().Warn("failed to persist cart", zap.String("user_id", userID), zap.Error(err))
	}
}

// Discard drops the cart of userID, e.g. on sign-out.
func (r *Registry) Discard(ctx context.Context, userID string) {
	r.mu.Lock()
	delete(r.carts, userID)
	r.mu.Unlock()

	if r.persister == nil {
		return
	}
	if err := r.persister.Delete(ctx, userID); err != nil {
		zap.L().Warn("failed to delete persisted cart", zap.String("user_id", userID), zap.Error(err))
	}
}
