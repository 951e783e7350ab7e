package patch

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

// InMemoryRepository is a thread-safe repository useful for tests and demos.
type InMemoryRepository struct {
	mu      sync.RWMutex
	patches map[string]domain.Patch
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patches: make(map[string]domain.Patch)}
}

func (r *InMemoryRepository) Save(ctx context.Context, p *domain.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patches[p.UUID]; exists {
		return errors.New("patch already exists")
	}
	r.patches[p.UUID] = clonePatch(*p)
	return nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, uuid string) (*domain.Patch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patches[uuid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clonePatch(p)
	return &out, nil
}

func (r *InMemoryRepository) TransitionStatus(ctx context.Context, uuid string, from, to domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patches[uuid]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	r.patches[uuid] = p
	return true, nil
}

func (r *InMemoryRepository) DeletePending(ctx context.Context, uuid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patches[uuid]
	if !ok || p.Status != domain.StatusPending {
		return false, nil
	}
	delete(r.patches, uuid)
	return true, nil
}

// Len returns the number of stored patches.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patches)
}

func clonePatch(p domain.Patch) domain.Patch {
	p.AudioFiles = append([]string(nil), p.AudioFiles...)
	p.Images = append([]string(nil), p.Images...)
	p.Tags = append([]string(nil), p.Tags...)
	p.Manifest.Modules = append([]domain.Module(nil), p.Manifest.Modules...)
	return p
}
