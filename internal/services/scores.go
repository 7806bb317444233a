// Package services holds the scoring engine's use cases. Services sit between the
// HTTP handlers and the repositories: they authorize the caller, validate input,
// run the pure scoring/ranking/badge code and decide what gets written.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/events"
	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/repositories"
	"github.com/trentd187/idpa-match/internal/scoring"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// SubmitScoreInput is a new score as recorded by a safety officer.
// Division and classification are taken from the shooter's registration.
type SubmitScoreInput struct {
	StageID   uuid.UUID
	ShooterID uuid.UUID
	SquadID   *uuid.UUID
	Strings   []scoring.StringResult
	Penalties scoring.PenaltyTally
	DNF       bool
	DQ        bool
}

// ScoreAmendment changes an existing score. Nil fields keep their stored value.
// There is no way to supply derived times; they are always recomputed.
type ScoreAmendment struct {
	Strings   []scoring.StringResult
	Penalties *scoring.PenaltyTally
	DNF       *bool
	DQ        *bool
}

// ScoreService guards every write to the score store.
type ScoreService struct {
	tournaments   repositories.TournamentRepository
	stages        repositories.StageRepository
	scores        repositories.ScoreRepository
	registrations repositories.RegistrationRepository
	sink          events.Sink
}

func NewScoreService(
	tournaments repositories.TournamentRepository,
	stages repositories.StageRepository,
	scores repositories.ScoreRepository,
	registrations repositories.RegistrationRepository,
	sink events.Sink,
) *ScoreService {
	if sink == nil {
		sink = events.Discard
	}
	return &ScoreService{
		tournaments:   tournaments,
		stages:        stages,
		scores:        scores,
		registrations: registrations,
		sink:          sink,
	}
}

// SubmitScore records a shooter's first score on a stage.
// A second submission for the same (stage, shooter) fails with ErrDuplicateScore;
// the caller should use AmendScore. Completed, cancelled and badge-awarded
// tournaments refuse new scores with ErrTournamentClosed.
func (s *ScoreService) SubmitScore(ctx context.Context, actor Actor, in SubmitScoreInput) (*models.Score, error) {
	if !actor.Role.CanScore() {
		return nil, ErrUnauthorized
	}
	if err := scoring.Validate(in.Strings, in.Penalties); err != nil {
		return nil, err
	}

	stage, err := s.stage(ctx, in.StageID)
	if err != nil {
		return nil, err
	}
	if err := checkStringCount(stage, in.Strings); err != nil {
		return nil, err
	}
	if err := s.checkOpen(ctx, stage.TournamentID); err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetRegistration(ctx, stage.TournamentID, in.ShooterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShooterNotRegistered
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}

	squad := in.SquadID
	if squad == nil {
		squad = reg.SquadID
	}
	score := &models.Score{
		TournamentID:   stage.TournamentID,
		StageID:        stage.ID,
		ShooterID:      in.ShooterID,
		SquadID:        squad,
		Division:       reg.Division,
		Classification: reg.Classification,
		Strings:        in.Strings,
		Penalties:      in.Penalties,
		DNF:            in.DNF,
		DQ:             in.DQ,
		ScoredBy:       actor.UserID,
	}
	score.ApplyBreakdown(scoring.Compose(score.Strings, score.Penalties))

	created, err := s.scores.CreateScore(ctx, score)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicateScore
	}

	s.publish(ctx, score, events.ScoreCreated)
	return score, nil
}

// AmendScore applies a correction to an existing score and recomputes all four
// derived times from the resulting strings and penalties. Resending the same
// amendment gives the same stored result. Scores of a closed tournament are frozen.
func (s *ScoreService) AmendScore(ctx context.Context, actor Actor, scoreID uuid.UUID, in ScoreAmendment) (*models.Score, error) {
	if !actor.Role.CanScore() {
		return nil, ErrUnauthorized
	}

	score, err := s.scores.AmendScore(ctx, scoreID, func(score *models.Score) error {
		strs := score.Strings
		if in.Strings != nil {
			strs = in.Strings
		}
		penalties := score.Penalties
		if in.Penalties != nil {
			penalties = *in.Penalties
		}
		if err := scoring.Validate(strs, penalties); err != nil {
			return err
		}

		stage, err := s.stage(ctx, score.StageID)
		if err != nil {
			return err
		}
		if err := checkStringCount(stage, strs); err != nil {
			return err
		}
		if err := s.checkOpen(ctx, score.TournamentID); err != nil {
			return err
		}

		score.Strings = strs
		score.Penalties = penalties
		if in.DNF != nil {
			score.DNF = *in.DNF
		}
		if in.DQ != nil {
			score.DQ = *in.DQ
		}
		score.ScoredBy = actor.UserID
		score.ApplyBreakdown(scoring.Compose(score.Strings, score.Penalties))
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScoreNotFound
		}
		return nil, err
	}

	s.publish(ctx, score, events.ScoreAmended)
	return score, nil
}

func (s *ScoreService) stage(ctx context.Context, id uuid.UUID) (*models.Stage, error) {
	stage, err := s.stages.GetStage(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("load stage: %w", err)
	}
	return stage, nil
}

// checkOpen fails with ErrTournamentClosed once results are final. Badges are
// derived from the stored scores, so a later change would leave them stale.
func (s *ScoreService) checkOpen(ctx context.Context, tournamentID uuid.UUID) error {
	t, err := s.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("load tournament: %w", err)
	}
	if t.Status == models.TournamentStatusCompleted ||
		t.Status == models.TournamentStatusCancelled ||
		t.BadgesAwardedAt != nil {
		return ErrTournamentClosed
	}
	return nil
}

func checkStringCount(stage *models.Stage, strs []scoring.StringResult) error {
	if len(strs) != stage.StringCount {
		return fmt.Errorf("%w: stage %d expects %d strings, got %d",
			ErrInvalidStageConfiguration, stage.StageNumber, stage.StringCount, len(strs))
	}
	return nil
}

// publish hands the event to the sink. The score is already committed, so a sink
// failure is logged and does not fail the request.
func (s *ScoreService) publish(ctx context.Context, score *models.Score, action events.ScoreAction) {
	ev := events.ScoreChanged{
		ScoreID:      score.ID,
		StageID:      score.StageID,
		ShooterID:    score.ShooterID,
		TournamentID: score.TournamentID,
		Action:       action,
		FinalTime:    score.FinalTime,
	}
	if err := s.sink.PublishScoreChanged(ctx, ev); err != nil {
		log.Printf("[scores] failed to publish %s event for score %s: %v", action, score.ID, err)
	}
}
