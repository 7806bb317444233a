package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/models"
)

// StageRepository reads stage configuration.
type StageRepository interface {
	// GetStage returns gorm.ErrRecordNotFound for an unknown id.
	GetStage(ctx context.Context, id uuid.UUID) (*models.Stage, error)
}

type stageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) GetStage(ctx context.Context, id uuid.UUID) (*models.Stage, error) {
	var stage models.Stage
	if err := r.db.WithContext(ctx).First(&stage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}
