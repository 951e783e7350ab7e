package patch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/database/entities"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// Repository handles patch persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, p *domain.Patch) error {
	entity := toEntity(p)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to create patch",
			err,
			"4a8c2e6f-0b13-4d97-85e1-f3c9a7d2b604",
		)
	}
	p.CreatedAt = entity.CreatedAt
	p.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) FindByID(ctx context.Context, uuid string) (*domain.Patch, error) {
	var entity entities.Patch
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to get patch by uuid",
			err,
			"9e1b5d7a-3c60-4f28-b4a2-d8f0e6c13b95",
		)
	}
	return mapEntity(entity)
}

// TransitionStatus updates the status only while the row still holds from.
func (r *Repository) TransitionStatus(ctx context.Context, uuid string, from, to domain.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Patch{}).
		Where("uuid = ? AND status = ?", uuid, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to update patch status",
			result.Error,
			"c6f2a9e4-7d15-4b38-a0c7-1e5b3d8f9a26",
		)
	}
	return result.RowsAffected == 1, nil
}

// DeletePending removes the row only while it is still PENDING.
func (r *Repository) DeletePending(ctx context.Context, uuid string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("uuid = ? AND status = ?", uuid, string(domain.StatusPending)).
		Delete(&entities.Patch{})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabase,
			"failed to delete patch",
			result.Error,
			"1b7d4f0c-e892-4a65-9c3b-5a2e8d6f7c01",
		)
	}
	return result.RowsAffected == 1, nil
}

func toEntity(p *domain.Patch) entities.Patch {
	manifest := p.Manifest.Raw
	if len(manifest) == 0 && (len(p.Manifest.Modules) > 0 || len(p.Manifest.Rev) > 0) {
		manifest, _ = json.Marshal(p.Manifest)
	}
	return entities.Patch{
		UUID:           p.UUID,
		Kind:           string(p.Kind),
		PrimaryFile:    p.PrimaryFile,
		AudioFiles:     datatypes.JSONSlice[string](p.AudioFiles),
		Images:         datatypes.JSONSlice[string](p.Images),
		ThumbnailImage: p.ThumbnailImage,
		CoverImage:     p.CoverImage,
		Manifest:       datatypes.JSON(manifest),
		Title:          p.Title,
		Author:         p.Author,
		Mail:           p.Mail,
		AppVersion:     p.AppVersion,
		Tags:           datatypes.JSONSlice[string](p.Tags),
		Summary:        p.Summary,
		Description:    p.Description,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func mapEntity(entity entities.Patch) (*domain.Patch, error) {
	var manifest domain.Manifest
	if len(entity.Manifest) > 0 {
		parsed, err := domain.ParseManifest(entity.Manifest)
		if err != nil {
			return nil, err
		}
		manifest = parsed
	}
	return &domain.Patch{
		UUID:           entity.UUID,
		Kind:           domain.Kind(entity.Kind),
		PrimaryFile:    entity.PrimaryFile,
		AudioFiles:     []string(entity.AudioFiles),
		Images:         []string(entity.Images),
		ThumbnailImage: entity.ThumbnailImage,
		CoverImage:     entity.CoverImage,
		Manifest:       manifest,
		Title:          entity.Title,
		Author:         entity.Author,
		Mail:           entity.Mail,
		AppVersion:     entity.AppVersion,
		Tags:           []string(entity.Tags),
		Summary:        entity.Summary,
		Description:    entity.Description,
		Status:         domain.Status(entity.Status),
		CreatedAt:      entity.CreatedAt,
		UpdatedAt:      entity.UpdatedAt,
	}, nil
}
