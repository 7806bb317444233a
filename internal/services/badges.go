package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/archive"
	"github.com/trentd187/idpa-match/internal/badges"
	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/ranking"
	"github.com/trentd187/idpa-match/internal/repositories"
)

// ResultsArchiver stores a copy of a completed tournament's results outside the database.
type ResultsArchiver interface {
	Archive(ctx context.Context, r archive.Results) error
}

// BadgeService turns a completed tournament's final ranking into badge records.
type BadgeService struct {
	tournaments   repositories.TournamentRepository
	scores        repositories.ScoreRepository
	registrations repositories.RegistrationRepository
	badges        repositories.BadgeRepository
	archiver      ResultsArchiver // nil disables archiving
}

func NewBadgeService(
	tournaments repositories.TournamentRepository,
	scores repositories.ScoreRepository,
	registrations repositories.RegistrationRepository,
	badgeRepo repositories.BadgeRepository,
	archiver ResultsArchiver,
) *BadgeService {
	return &BadgeService{
		tournaments:   tournaments,
		scores:        scores,
		registrations: registrations,
		badges:        badgeRepo,
		archiver:      archiver,
	}
}

// DeriveBadges derives and stores the badges for a completed tournament.
//
// A tournament with no scores yields no badges; it is still marked as awarded so
// the sweep does not pick it up again. Running it twice for the same tournament
// fails with ErrBadgesAlreadyAwarded and stores nothing the second time.
func (s *BadgeService) DeriveBadges(ctx context.Context, tournamentID uuid.UUID) ([]badges.Eligibility, error) {
	t, err := s.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("load tournament: %w", err)
	}
	if t.Status != models.TournamentStatusCompleted {
		return nil, ErrTournamentNotCompleted
	}
	if t.BadgesAwardedAt != nil {
		return nil, ErrBadgesAlreadyAwarded
	}

	var (
		scores []models.Score
		regs   []models.Registration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scores, err = s.scores.ListByTournament(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		regs, err = s.registrations.ListCheckedIn(gctx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overall := ranking.Overall(scores)
	eligible := badges.Derive(regs, overall)

	if err := s.badges.AwardBadges(ctx, tournamentID, toBadgeRecords(tournamentID, eligible)); err != nil {
		if errors.Is(err, repositories.ErrBadgesAlreadyAwarded) {
			return nil, ErrBadgesAlreadyAwarded
		}
		return nil, fmt.Errorf("store badges: %w", err)
	}
	log.Printf("[badges] awarded %d badges for tournament %s", len(eligible), tournamentID)

	if s.archiver != nil && len(overall) > 0 {
		err := s.archiver.Archive(ctx, archive.Results{
			TournamentID: t.ID,
			Name:         t.Name,
			CompletedAt:  t.CompletedAt,
			Overall:      overall,
			Badges:       eligible,
		})
		if err != nil {
			log.Printf("[badges] failed to archive results for tournament %s: %v", tournamentID, err)
		}
	}
	return eligible, nil
}

// AwardCompletedTournaments derives badges for every completed tournament that has
// none yet. A failure on one tournament is logged and the sweep moves on.
// It returns how many tournaments were awarded.
func (s *BadgeService) AwardCompletedTournaments(ctx context.Context) (int, error) {
	pending, err := s.tournaments.ListAwaitingBadges(ctx)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return awarded, ctx.Err()
		}
		_, err := s.DeriveBadges(ctx, t.ID)
		switch {
		case err == nil:
			awarded++
		case errors.Is(err, ErrBadgesAlreadyAwarded):
			// Awarded by a concurrent request since the list was read.
		default:
			log.Printf("[badges] sweep failed for tournament %s: %v", t.ID, err)
		}
	}
	return awarded, nil
}

func toBadgeRecords(tournamentID uuid.UUID, eligible []badges.Eligibility) []models.Badge {
	records := make([]models.Badge, 0, len(eligible))
	for _, e := range eligible {
		b := models.Badge{
			TournamentID:   tournamentID,
			ShooterID:      e.ShooterID,
			Type:           e.Type,
			Division:       e.Division,
			Classification: e.Classification,
			QualifyingTime: e.QualifyingTime,
		}
		if e.Placement > 0 {
			placement := e.Placement
			b.Placement = &placement
		}
		records = append(records, b)
	}
	return records
}
