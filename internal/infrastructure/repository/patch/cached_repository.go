package patch

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

// CachedRepository keeps recently read APPROVED patches in an LRU. Approved
// is terminal, so a cached entry never goes stale; PENDING records always hit
// the underlying store.
type CachedRepository struct {
	next  domain.Repository
	cache *lru.Cache
	log   zerolog.Logger
}

func NewCachedRepository(next domain.Repository, size int, log zerolog.Logger) (*CachedRepository, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create patch cache: %w", err)
	}
	return &CachedRepository{
		next:  next,
		cache: cache,
		log:   log.With().Str("component", "patch-cache").Logger(),
	}, nil
}

func (r *CachedRepository) Save(ctx context.Context, p *domain.Patch) error {
	return r.next.Save(ctx, p)
}

func (r *CachedRepository) FindByID(ctx context.Context, uuid string) (*domain.Patch, error) {
	if cached, ok := r.cache.Get(uuid); ok {
		p := clonePatch(cached.(domain.Patch))
		return &p, nil
	}

	p, err := r.next.FindByID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.StatusApproved {
		r.cache.Add(uuid, clonePatch(*p))
		r.log.Debug().Str("patch_uuid", uuid).Msg("cached approved patch")
	}
	return p, nil
}

func (r *CachedRepository) TransitionStatus(ctx context.Context, uuid string, from, to domain.Status) (bool, error) {
	r.cache.Remove(uuid)
	return r.next.TransitionStatus(ctx, uuid, from, to)
}

func (r *CachedRepository) DeletePending(ctx context.Context, uuid string) (bool, error) {
	r.cache.Remove(uuid)
	return r.next.DeletePending(ctx, uuid)
}
