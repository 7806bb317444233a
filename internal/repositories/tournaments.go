package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/models"
)

// TournamentRepository reads tournament state for the badge workflow.
type TournamentRepository interface {
	// GetTournament returns gorm.ErrRecordNotFound for an unknown id.
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	// ListAwaitingBadges returns completed tournaments that have not had badges awarded.
	ListAwaitingBadges(ctx context.Context) ([]models.Tournament, error)
}

type tournamentRepository struct {
	db *gorm.DB
}

func NewTournamentRepository(db *gorm.DB) TournamentRepository {
	return &tournamentRepository{db: db}
}

func (r *tournamentRepository) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var t models.Tournament
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tournamentRepository) ListAwaitingBadges(ctx context.Context) ([]models.Tournament, error) {
	var ts []models.Tournament
	if err := r.db.WithContext(ctx).
		Where("status = ? AND badges_awarded_at IS NULL", models.TournamentStatusCompleted).
		Order("completed_at").
		Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("list tournaments awaiting badges: %w", err)
	}
	return ts, nil
}
