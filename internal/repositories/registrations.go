package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/models"
)

// RegistrationRepository reads who is entered in a tournament and how.
type RegistrationRepository interface {
	// GetRegistration returns gorm.ErrRecordNotFound if the shooter is not registered.
	GetRegistration(ctx context.Context, tournamentID, shooterID uuid.UUID) (*models.Registration, error)
	ListCheckedIn(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error)
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) GetRegistration(ctx context.Context, tournamentID, shooterID uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND shooter_id = ?", tournamentID, shooterID).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) ListCheckedIn(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error) {
	var regs []models.Registration
	if err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND checked_in = ?", tournamentID, true).
		Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("list check-ins for tournament %s: %w", tournamentID, err)
	}
	return regs, nil
}
