// Package repositories holds the GORM data access for the scoring engine.
// Each repository is an interface so the services can be tested against mocks,
// with a postgres-backed implementation built on a shared *gorm.DB.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/idpa-match/internal/models"
)

// ScoreRepository stores and reads committed scores.
type ScoreRepository interface {
	// CreateScore inserts the score unless one already exists for its
	// (stage, shooter) pair. created is false when the row already existed.
	CreateScore(ctx context.Context, score *models.Score) (created bool, err error)
	// AmendScore locks the score row, lets apply modify it, and saves the result in
	// the same transaction. gorm.ErrRecordNotFound is returned for an unknown id.
	AmendScore(ctx context.Context, id uuid.UUID, apply func(*models.Score) error) (*models.Score, error)
	ListByStage(ctx context.Context, stageID uuid.UUID) ([]models.Score, error)
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Score, error)
}

type scoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

// CreateScore is a single INSERT ... ON CONFLICT DO NOTHING against the
// idx_stage_shooter unique index. Two officers submitting the same shooter at the
// same moment both reach the database; exactly one insert affects a row.
func (r *scoreRepository) CreateScore(ctx context.Context, score *models.Score) (bool, error) {
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stage_id"}, {Name: "shooter_id"}},
			DoNothing: true,
		}).
		Create(score)
	if result.Error != nil {
		return false, fmt.Errorf("insert score: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *scoreRepository) AmendScore(ctx context.Context, id uuid.UUID, apply func(*models.Score) error) (*models.Score, error) {
	var score models.Score

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SELECT ... FOR UPDATE: concurrent amendments of the same score queue up
		// behind this one instead of overwriting each other's recompute.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&score, "id = ?", id).Error; err != nil {
			return err
		}
		if err := apply(&score); err != nil {
			return err
		}
		return tx.Save(&score).Error
	})
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *scoreRepository) ListByStage(ctx context.Context, stageID uuid.UUID) ([]models.Score, error) {
	var scores []models.Score
	if err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("list scores for stage %s: %w", stageID, err)
	}
	return scores, nil
}

func (r *scoreRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Score, error) {
	var scores []models.Score
	if err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("list scores for tournament %s: %w", tournamentID, err)
	}
	return scores, nil
}
