package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/ranking"
	"github.com/trentd187/idpa-match/internal/repositories"
)

// Leaderboard limits for the public view.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// RankingService loads committed scores and ranks them. It never writes.
type RankingService struct {
	stages      repositories.StageRepository
	scores      repositories.ScoreRepository
	tournaments repositories.TournamentRepository
}

func NewRankingService(
	stages repositories.StageRepository,
	scores repositories.ScoreRepository,
	tournaments repositories.TournamentRepository,
) *RankingService {
	return &RankingService{stages: stages, scores: scores, tournaments: tournaments}
}

// StageRanking ranks one stage, optionally restricted to a division.
func (s *RankingService) StageRanking(ctx context.Context, stageID uuid.UUID, division models.Division) ([]ranking.Entry, error) {
	if division != "" && !division.Valid() {
		return nil, fmt.Errorf("%w: division %q", ErrInvalidFilter, division)
	}
	if _, err := s.stages.GetStage(ctx, stageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("load stage: %w", err)
	}

	scores, err := s.scores.ListByStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	return ranking.Stage(scores, division), nil
}

func (s *RankingService) OverallRanking(ctx context.Context, tournamentID uuid.UUID) ([]ranking.Entry, error) {
	scores, err := s.tournamentScores(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ranking.Overall(scores), nil
}

func (s *RankingService) DivisionRanking(ctx context.Context, tournamentID uuid.UUID, division models.Division) ([]ranking.Entry, error) {
	if !division.Valid() {
		return nil, fmt.Errorf("%w: division %q", ErrInvalidFilter, division)
	}
	scores, err := s.tournamentScores(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ranking.Division(scores, division), nil
}

// Leaderboard is the spectator view. A zero limit means DefaultLeaderboardLimit
// and anything above MaxLeaderboardLimit is capped.
func (s *RankingService) Leaderboard(ctx context.Context, tournamentID uuid.UUID, filter ranking.LeaderboardFilter) ([]ranking.Entry, error) {
	if filter.Division != "" && !filter.Division.Valid() {
		return nil, fmt.Errorf("%w: division %q", ErrInvalidFilter, filter.Division)
	}
	if filter.Classification != "" && !filter.Classification.Valid() {
		return nil, fmt.Errorf("%w: classification %q", ErrInvalidFilter, filter.Classification)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultLeaderboardLimit
	case filter.Limit > MaxLeaderboardLimit:
		filter.Limit = MaxLeaderboardLimit
	}

	scores, err := s.tournamentScores(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ranking.Leaderboard(scores, filter), nil
}

func (s *RankingService) tournamentScores(ctx context.Context, tournamentID uuid.UUID) ([]models.Score, error) {
	if _, err := s.tournaments.GetTournament(ctx, tournamentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("load tournament: %w", err)
	}
	return s.scores.ListByTournament(ctx, tournamentID)
}
