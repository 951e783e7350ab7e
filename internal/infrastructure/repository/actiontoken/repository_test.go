package actiontoken

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/database"
)

func newGormRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "tokens_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))
	return NewRepository(db)
}

func repositories(t *testing.T) map[string]domain.Repository {
	return map[string]domain.Repository{
		"gorm":     newGormRepository(t),
		"inmemory": NewInMemoryRepository(),
	}
}

func seed(t *testing.T, repo domain.Repository, id string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.ActionToken{
		ID:         id,
		SecretHash: domain.HashSecret("secret-" + id),
		ExpiresAt:  expiresAt,
		CreatedAt:  expiresAt.Add(-2 * time.Hour),
	}))
}

func TestRepository_EnableIfDisabledHasOneWinner(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo, "tok", now.Add(time.Hour))

			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := repo.EnableIfDisabled(ctx, "tok", domain.HashSecret("secret-tok"), now)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())

			token, err := repo.FindLive(ctx, "tok", now)
			require.NoError(t, err)
			assert.True(t, token.Enabled)
		})
	}
}

func TestRepository_WrongSecretNeverEnables(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo, "tok", now.Add(time.Hour))

			ok, err := repo.EnableIfDisabled(ctx, "tok", domain.HashSecret("nope"), now)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = repo.FindLiveWithSecret(ctx, "tok", domain.HashSecret("nope"), now)
			assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		})
	}
}

func TestRepository_ExpiryBoundary(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo, "tok", now)

			_, err := repo.FindLive(ctx, "tok", now)
			require.NoError(t, err, "a token is live at its exact expiry")

			_, err = repo.FindLive(ctx, "tok", now.Add(time.Second))
			assert.ErrorIs(t, err, domain.ErrRecordNotFound)

			ok, err := repo.DeleteLive(ctx, "tok", now.Add(time.Second))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRepository_DeleteExpired(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo, "old", now.Add(-time.Minute))
			seed(t, repo, "live", now.Add(time.Minute))

			purged, err := repo.DeleteExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, int64(1), purged)

			_, err = repo.FindLive(ctx, "live", now)
			assert.NoError(t, err)

			ok, err := repo.DeleteLive(ctx, "live", now)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
