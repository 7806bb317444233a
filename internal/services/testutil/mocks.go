// Package testutil provides testify mocks for the service layer's collaborators.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/trentd187/idpa-match/internal/archive"
	"github.com/trentd187/idpa-match/internal/events"
	"github.com/trentd187/idpa-match/internal/models"
)

// Assert the expectations of all mocks.
func VerifyAllMocks(t *testing.T, mocks ...any) {
	t.Helper()

	for _, m := range mocks {
		if mockObj, ok := m.(interface{ AssertExpectations(mock.TestingT) bool }); ok {
			mockObj.AssertExpectations(t)
		}
	}
}

// ============================================================================
// Repository mocks.
// ============================================================================

type MockStageRepository struct {
	mock.Mock
}

func (m *MockStageRepository) GetStage(ctx context.Context, id uuid.UUID) (*models.Stage, error) {
	args := m.Called(ctx, id)
	stage, _ := args.Get(0).(*models.Stage)
	return stage, args.Error(1)
}

type MockScoreRepository struct {
	mock.Mock
}

func (m *MockScoreRepository) CreateScore(ctx context.Context, score *models.Score) (bool, error) {
	args := m.Called(ctx, score)
	return args.Bool(0), args.Error(1)
}

// AmendScore behaves like the real repository: the stored score configured with
// Return is copied, handed to apply and returned if apply succeeds.
func (m *MockScoreRepository) AmendScore(ctx context.Context, id uuid.UUID, apply func(*models.Score) error) (*models.Score, error) {
	args := m.Called(ctx, id)
	stored, _ := args.Get(0).(*models.Score)
	if stored == nil || args.Error(1) != nil {
		return nil, args.Error(1)
	}
	score := *stored
	if err := apply(&score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (m *MockScoreRepository) ListByStage(ctx context.Context, stageID uuid.UUID) ([]models.Score, error) {
	args := m.Called(ctx, stageID)
	scores, _ := args.Get(0).([]models.Score)
	return scores, args.Error(1)
}

func (m *MockScoreRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Score, error) {
	args := m.Called(ctx, tournamentID)
	scores, _ := args.Get(0).([]models.Score)
	return scores, args.Error(1)
}

type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) GetRegistration(ctx context.Context, tournamentID, shooterID uuid.UUID) (*models.Registration, error) {
	args := m.Called(ctx, tournamentID, shooterID)
	reg, _ := args.Get(0).(*models.Registration)
	return reg, args.Error(1)
}

func (m *MockRegistrationRepository) ListCheckedIn(ctx context.Context, tournamentID uuid.UUID) ([]models.Registration, error) {
	args := m.Called(ctx, tournamentID)
	regs, _ := args.Get(0).([]models.Registration)
	return regs, args.Error(1)
}

type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.Tournament)
	return t, args.Error(1)
}

func (m *MockTournamentRepository) ListAwaitingBadges(ctx context.Context) ([]models.Tournament, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).([]models.Tournament)
	return ts, args.Error(1)
}

type MockBadgeRepository struct {
	mock.Mock
}

func (m *MockBadgeRepository) AwardBadges(ctx context.Context, tournamentID uuid.UUID, badges []models.Badge) error {
	args := m.Called(ctx, tournamentID, badges)
	return args.Error(0)
}

func (m *MockBadgeRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Badge, error) {
	args := m.Called(ctx, tournamentID)
	badges, _ := args.Get(0).([]models.Badge)
	return badges, args.Error(1)
}

// ============================================================================
// Outbound mocks.
// ============================================================================

type MockSink struct {
	mock.Mock
}

func (m *MockSink) PublishScoreChanged(ctx context.Context, ev events.ScoreChanged) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, r archive.Results) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
