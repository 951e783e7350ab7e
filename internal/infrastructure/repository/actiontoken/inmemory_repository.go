package actiontoken

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
)

// InMemoryRepository is a thread-safe token store for tests and single-node dev runs.
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.ActionToken
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tokens: make(map[string]domain.ActionToken)}
}

func (r *InMemoryRepository) Create(ctx context.Context, token *domain.ActionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.ID]; exists {
		return errors.New("action token already exists")
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *InMemoryRepository) FindLive(ctx context.Context, id string, now time.Time) (*domain.ActionToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[id]
	if !ok || !token.UsableAt(now) {
		return nil, domain.ErrRecordNotFound
	}
	return &token, nil
}

func (r *InMemoryRepository) FindLiveWithSecret(ctx context.Context, id, secretHash string, now time.Time) (*domain.ActionToken, error) {
	token, err := r.FindLive(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if token.SecretHash != secretHash {
		return nil, domain.ErrRecordNotFound
	}
	return token, nil
}

func (r *InMemoryRepository) EnableIfDisabled(ctx context.Context, id, secretHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || !token.UsableAt(now) || token.SecretHash != secretHash || token.Enabled {
		return false, nil
	}
	token.Enabled = true
	r.tokens[id] = token
	return true, nil
}

func (r *InMemoryRepository) DeleteLive(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || !token.UsableAt(now) {
		return false, nil
	}
	delete(r.tokens, id)
	return true, nil
}

func (r *InMemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, token := range r.tokens {
		if !token.UsableAt(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}
