package patch

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/database"
)

func newGormRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "patches_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))
	return NewRepository(db)
}

func samplePatch(id string) *domain.Patch {
	manifest, _ := domain.ParseManifest([]byte(`{"rev":420,"modules":[{"name":"osc","type":"synth"}]}`))
	return &domain.Patch{
		UUID:           id,
		Kind:           domain.KindDefinition,
		PrimaryFile:    "demo.bsk",
		AudioFiles:     []string{"loop.mp3", "pad.mp3"},
		Images:         []string{"cover.png"},
		ThumbnailImage: domain.ThumbnailFileName,
		CoverImage:     domain.CoverFileName,
		Manifest:       manifest,
		Title:          "Demo",
		Author:         "someone",
		Mail:           "someone@example.com",
		AppVersion:     "1.2.0",
		Tags:           []string{"patch", "ambient"},
		Summary:        "a demo",
		Status:         domain.StatusPending,
	}
}

// repositories returns every implementation under test.
func repositories(t *testing.T) map[string]domain.Repository {
	t.Helper()
	cached, err := NewCachedRepository(NewInMemoryRepository(), 8, zerolog.Nop())
	require.NoError(t, err)
	return map[string]domain.Repository{
		"gorm":     newGormRepository(t),
		"inmemory": NewInMemoryRepository(),
		"cached":   cached,
	}
}

func TestRepository_SaveAndFind(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, samplePatch("p1")))

			got, err := repo.FindByID(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, domain.KindDefinition, got.Kind)
			assert.Equal(t, []string{"loop.mp3", "pad.mp3"}, got.AudioFiles)
			assert.Equal(t, []string{"cover.png"}, got.Images)
			assert.Equal(t, []string{"patch", "ambient"}, got.Tags)
			assert.Equal(t, "someone@example.com", got.Mail)
			require.Len(t, got.Manifest.Modules, 1)
			assert.Equal(t, "osc", got.Manifest.Modules[0].Name)

			_, err = repo.FindByID(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestRepository_TransitionStatusIsCompareAndSwap(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, samplePatch("p1")))

			const callers = 8
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := repo.TransitionStatus(ctx, "p1", domain.StatusPending, domain.StatusApproved)
					assert.NoError(t, err)
					if ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 1, wins)

			got, err := repo.FindByID(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusApproved, got.Status)

			ok, err := repo.TransitionStatus(ctx, "missing", domain.StatusPending, domain.StatusApproved)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRepository_DeletePendingOnly(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, samplePatch("pending")))
			approved := samplePatch("approved")
			approved.Status = domain.StatusApproved
			require.NoError(t, repo.Save(ctx, approved))

			ok, err := repo.DeletePending(ctx, "approved")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.DeletePending(ctx, "pending")
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = repo.FindByID(ctx, "pending")
			assert.ErrorIs(t, err, domain.ErrNotFound)

			ok, err = repo.DeletePending(ctx, "pending")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

type countingRepository struct {
	domain.Repository
	mu    sync.Mutex
	reads int
}

func (r *countingRepository) FindByID(ctx context.Context, uuid string) (*domain.Patch, error) {
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	return r.Repository.FindByID(ctx, uuid)
}

func TestCachedRepository_CachesApprovedOnly(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepository{Repository: NewInMemoryRepository()}
	repo, err := NewCachedRepository(backing, 4, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, samplePatch("p1")))

	for i := 0; i < 3; i++ {
		_, err := repo.FindByID(ctx, "p1")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, backing.reads, "pending patches are never cached")

	ok, err := repo.TransitionStatus(ctx, "p1", domain.StatusPending, domain.StatusApproved)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		got, err := repo.FindByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, got.Status)
	}
	assert.Equal(t, 4, backing.reads)
}

func TestCachedRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, err := NewCachedRepository(NewInMemoryRepository(), 4, zerolog.Nop())
	require.NoError(t, err)

	p := samplePatch("p1")
	p.Status = domain.StatusApproved
	require.NoError(t, repo.Save(ctx, p))

	first, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	first.Tags[0] = "mutated"

	second, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "patch", second.Tags[0])
}
