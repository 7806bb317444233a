package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/idpa-match/internal/models"
)

// ErrBadgesAlreadyAwarded is returned when badges were already stored for a tournament.
var ErrBadgesAlreadyAwarded = errors.New("badges already awarded for this tournament")

// BadgeRepository stores awarded badges.
type BadgeRepository interface {
	// AwardBadges stores every badge for the tournament and stamps
	// tournaments.badges_awarded_at, all in one transaction. A second call for the
	// same tournament fails with ErrBadgesAlreadyAwarded and writes nothing.
	AwardBadges(ctx context.Context, tournamentID uuid.UUID, badges []models.Badge) error
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Badge, error)
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) AwardBadges(ctx context.Context, tournamentID uuid.UUID, badges []models.Badge) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the tournament row so two sweeps racing on the same tournament
		// serialize here; the loser sees badges_awarded_at already set.
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "id = ?", tournamentID).Error; err != nil {
			return err
		}
		if t.BadgesAwardedAt != nil {
			return ErrBadgesAlreadyAwarded
		}

		if len(badges) > 0 {
			if err := tx.CreateInBatches(badges, 200).Error; err != nil {
				return err
			}
		}

		return tx.Model(&t).Update("badges_awarded_at", time.Now().UTC()).Error
	})
}

func (r *badgeRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("type, shooter_id").
		Find(&badges).Error
	return badges, err
}
