package actiontoken

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/database/entities"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// Repository handles action token persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, token *domain.ActionToken) error {
	entity := entities.ActionToken{
		ID:         token.ID,
		SecretHash: token.SecretHash,
		Enabled:    token.Enabled,
		ExpiresAt:  token.ExpiresAt,
		CreatedAt:  token.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to create action token",
			err,
			"3e9a1c7d-5b24-4f08-a6e3-c1d7b92f4a05",
		)
	}
	return nil
}

func (r *Repository) FindLive(ctx context.Context, id string, now time.Time) (*domain.ActionToken, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ? AND expires_at >= ?", id, now))
}

func (r *Repository) FindLiveWithSecret(ctx context.Context, id, secretHash string, now time.Time) (*domain.ActionToken, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("id = ? AND secret_hash = ? AND expires_at >= ?", id, secretHash, now))
}

// EnableIfDisabled runs a single conditional UPDATE so only one caller can
// observe the disabled to enabled transition.
func (r *Repository) EnableIfDisabled(ctx context.Context, id, secretHash string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.ActionToken{}).
		Where("id = ? AND secret_hash = ? AND expires_at >= ? AND enabled = ?", id, secretHash, now, false).
		Update("enabled", true)
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to enable action token",
			result.Error,
			"7c2f5e8a-1d93-4b6e-9f40-a8e3c6d1b257",
		)
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) DeleteLive(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND expires_at >= ?", id, now).
		Delete(&entities.ActionToken{})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to delete action token",
			result.Error,
			"b41d8e63-9a0f-4c75-8e2b-6f3a1d9c7e80",
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&entities.ActionToken{})
	if result.Error != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to purge expired action tokens",
			result.Error,
			"e07a3b5c-2f68-4d19-b3c4-5a9e0f7d1c62",
		)
	}
	return result.RowsAffected, nil
}

func (r *Repository) first(ctx context.Context, query *gorm.DB) (*domain.ActionToken, error) {
	var entity entities.ActionToken
	if err := query.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to load action token",
			err,
			"5f6b2d90-8e17-4a3c-b9d5-0c4e7a2f6b18",
		)
	}
	token := mapEntity(entity)
	return &token, nil
}

func mapEntity(entity entities.ActionToken) domain.ActionToken {
	return domain.ActionToken{
		ID:         entity.ID,
		SecretHash: entity.SecretHash,
		Enabled:    entity.Enabled,
		ExpiresAt:  entity.ExpiresAt,
		CreatedAt:  entity.CreatedAt,
	}
}
