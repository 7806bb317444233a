package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/events"
	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/scoring"
	"github.com/trentd187/idpa-match/internal/services/testutil"
)

type scoreFixture struct {
	tournaments *testutil.MockTournamentRepository
	stages      *testutil.MockStageRepository
	scores      *testutil.MockScoreRepository
	regs        *testutil.MockRegistrationRepository
	sink        *testutil.MockSink
	svc         *ScoreService

	officer    Actor
	tournament uuid.UUID
	stage      *models.Stage
	shooter    uuid.UUID
}

func newScoreFixture() *scoreFixture {
	f := &scoreFixture{
		tournaments: new(testutil.MockTournamentRepository),
		stages:      new(testutil.MockStageRepository),
		scores:      new(testutil.MockScoreRepository),
		regs:        new(testutil.MockRegistrationRepository),
		sink:        new(testutil.MockSink),
		officer:     Actor{UserID: uuid.New(), Role: models.UserRoleSafetyOfficer},
		tournament:  uuid.New(),
		shooter:     uuid.New(),
	}
	f.stage = &models.Stage{ID: uuid.New(), TournamentID: f.tournament, StageNumber: 3, StringCount: 2}
	f.svc = NewScoreService(f.tournaments, f.stages, f.scores, f.regs, f.sink)
	return f
}

func (f *scoreFixture) verify(t *testing.T) {
	testutil.VerifyAllMocks(t, f.tournaments, f.stages, f.scores, f.regs, f.sink)
}

// Two strings, 4.50s and 5.25s, seven points down, one procedural:
// raw 9.75 + points down 7 + penalties 3 = 19.75.
func workedStrings() []scoring.StringResult {
	return []scoring.StringResult{
		{Time: decimal.RequireFromString("4.50"), Hits: scoring.HitCounts{Down0: 3, Down1: 1, Down3: 2}},
		{Time: decimal.RequireFromString("5.25"), Hits: scoring.HitCounts{Down0: 6}},
	}
}

func workedInput(f *scoreFixture) SubmitScoreInput {
	return SubmitScoreInput{
		StageID:   f.stage.ID,
		ShooterID: f.shooter,
		Strings:   workedStrings(),
		Penalties: scoring.PenaltyTally{Procedural: 1},
	}
}

func (f *scoreFixture) expectTournament(status models.TournamentStatus) *models.Tournament {
	tour := &models.Tournament{ID: f.tournament, Name: "Spring Match", Status: status}
	f.tournaments.On("GetTournament", mock.Anything, f.tournament).Return(tour, nil)
	return tour
}

func (f *scoreFixture) expectRegistration() {
	f.regs.On("GetRegistration", mock.Anything, f.tournament, f.shooter).Return(&models.Registration{
		TournamentID:   f.tournament,
		ShooterID:      f.shooter,
		Division:       models.DivisionCCP,
		Classification: models.ClassificationSharpshooter,
	}, nil)
}

func TestSubmitScore(t *testing.T) {
	f := newScoreFixture()
	scoreID := uuid.New()
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.expectTournament(models.TournamentStatusActive)
	f.expectRegistration()
	f.scores.On("CreateScore", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Score).ID = scoreID }).
		Return(true, nil)
	f.sink.On("PublishScoreChanged", mock.Anything, mock.MatchedBy(func(ev events.ScoreChanged) bool {
		return ev.ScoreID == scoreID &&
			ev.StageID == f.stage.ID &&
			ev.ShooterID == f.shooter &&
			ev.TournamentID == f.tournament &&
			ev.Action == events.ScoreCreated &&
			ev.FinalTime.Equal(decimal.RequireFromString("19.75"))
	})).Return(nil)

	score, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

	require.NoError(t, err)
	assert.Equal(t, "9.75", score.RawTime.String())
	assert.Equal(t, "7", score.PointsDownTime.String())
	assert.Equal(t, "3", score.PenaltyTime.String())
	assert.Equal(t, "19.75", score.FinalTime.String())
	assert.Equal(t, models.DivisionCCP, score.Division)
	assert.Equal(t, models.ClassificationSharpshooter, score.Classification)
	assert.Equal(t, f.officer.UserID, score.ScoredBy)
	f.verify(t)
}

func TestSubmitScoreDuplicate(t *testing.T) {
	f := newScoreFixture()
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.expectTournament(models.TournamentStatusActive)
	f.expectRegistration()
	f.scores.On("CreateScore", mock.Anything, mock.Anything).Return(false, nil)

	score, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

	assert.ErrorIs(t, err, ErrDuplicateScore)
	assert.Nil(t, score)
	f.sink.AssertNotCalled(t, "PublishScoreChanged", mock.Anything, mock.Anything)
	f.verify(t)
}

func TestSubmitScoreRejectsNonScorer(t *testing.T) {
	f := newScoreFixture()
	shooter := Actor{UserID: uuid.New(), Role: models.UserRoleShooter}

	_, err := f.svc.SubmitScore(context.Background(), shooter, workedInput(f))

	assert.ErrorIs(t, err, ErrUnauthorized)
	f.stages.AssertNotCalled(t, "GetStage", mock.Anything, mock.Anything)
	f.scores.AssertNotCalled(t, "CreateScore", mock.Anything, mock.Anything)
}

func TestSubmitScoreValidation(t *testing.T) {
	t.Run("string count mismatch", func(t *testing.T) {
		f := newScoreFixture()
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
		in := workedInput(f)
		in.Strings = in.Strings[:1]

		_, err := f.svc.SubmitScore(context.Background(), f.officer, in)

		assert.ErrorIs(t, err, ErrInvalidStageConfiguration)
		f.scores.AssertNotCalled(t, "CreateScore", mock.Anything, mock.Anything)
	})

	t.Run("negative time never reaches the store", func(t *testing.T) {
		f := newScoreFixture()
		in := workedInput(f)
		in.Strings[0].Time = decimal.RequireFromString("-1")

		_, err := f.svc.SubmitScore(context.Background(), f.officer, in)

		assert.ErrorIs(t, err, scoring.ErrInvalidInput)
		f.stages.AssertNotCalled(t, "GetStage", mock.Anything, mock.Anything)
	})

	t.Run("unknown stage", func(t *testing.T) {
		f := newScoreFixture()
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

		assert.ErrorIs(t, err, ErrStageNotFound)
	})

	t.Run("shooter not registered", func(t *testing.T) {
		f := newScoreFixture()
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
		f.expectTournament(models.TournamentStatusActive)
		f.regs.On("GetRegistration", mock.Anything, f.tournament, f.shooter).Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

		assert.ErrorIs(t, err, ErrShooterNotRegistered)
	})
}

func TestSubmitScoreRefusesClosedTournament(t *testing.T) {
	tests := []struct {
		name   string
		status models.TournamentStatus
		badges bool
	}{
		{name: "completed", status: models.TournamentStatusCompleted},
		{name: "cancelled", status: models.TournamentStatusCancelled},
		{name: "badges awarded", status: models.TournamentStatusActive, badges: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newScoreFixture()
			f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
			tour := f.expectTournament(tt.status)
			if tt.badges {
				awardedAt := time.Now()
				tour.BadgesAwardedAt = &awardedAt
			}

			score, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

			assert.ErrorIs(t, err, ErrTournamentClosed)
			assert.Nil(t, score)
			f.regs.AssertNotCalled(t, "GetRegistration", mock.Anything, mock.Anything, mock.Anything)
			f.scores.AssertNotCalled(t, "CreateScore", mock.Anything, mock.Anything)
			f.verify(t)
		})
	}
}

func TestSubmitScoreUnknownTournament(t *testing.T) {
	f := newScoreFixture()
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.tournaments.On("GetTournament", mock.Anything, f.tournament).Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

	assert.ErrorIs(t, err, ErrTournamentNotFound)
	f.scores.AssertNotCalled(t, "CreateScore", mock.Anything, mock.Anything)
}

func TestSubmitScoreSinkFailureDoesNotFailWrite(t *testing.T) {
	f := newScoreFixture()
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.expectTournament(models.TournamentStatusActive)
	f.expectRegistration()
	f.scores.On("CreateScore", mock.Anything, mock.Anything).Return(true, nil)
	f.sink.On("PublishScoreChanged", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	score, err := f.svc.SubmitScore(context.Background(), f.officer, workedInput(f))

	require.NoError(t, err)
	assert.NotNil(t, score)
	f.verify(t)
}

// storedScore is a score whose derived fields are deliberately wrong, so a test can
// tell whether they were recomputed.
func storedScore(f *scoreFixture) *models.Score {
	return &models.Score{
		ID:             uuid.New(),
		TournamentID:   f.tournament,
		StageID:        f.stage.ID,
		ShooterID:      f.shooter,
		Division:       models.DivisionSSP,
		Classification: models.ClassificationMarksman,
		Strings:        workedStrings(),
		Penalties:      scoring.PenaltyTally{Procedural: 1},
		RawTime:        decimal.NewFromInt(1),
		PointsDownTime: decimal.NewFromInt(1),
		PenaltyTime:    decimal.NewFromInt(1),
		FinalTime:      decimal.NewFromInt(999),
	}
}

func TestAmendScoreRecomputesEverything(t *testing.T) {
	f := newScoreFixture()
	stored := storedScore(f)
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.expectTournament(models.TournamentStatusActive)
	f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)
	f.sink.On("PublishScoreChanged", mock.Anything, mock.MatchedBy(func(ev events.ScoreChanged) bool {
		return ev.Action == events.ScoreAmended && ev.ScoreID == stored.ID && ev.FinalTime.String() == "26.75"
	})).Return(nil)

	// The procedural is overturned and a flagrant added instead.
	penalties := scoring.PenaltyTally{Flagrant: 1}
	score, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, ScoreAmendment{Penalties: &penalties})

	require.NoError(t, err)
	assert.Equal(t, "9.75", score.RawTime.String())
	assert.Equal(t, "7", score.PointsDownTime.String())
	assert.Equal(t, "10", score.PenaltyTime.String())
	assert.Equal(t, "26.75", score.FinalTime.String())
	assert.True(t, score.FinalTime.Equal(score.RawTime.Add(score.PointsDownTime).Add(score.PenaltyTime)))
	f.verify(t)
}

func TestAmendScoreIsRepeatable(t *testing.T) {
	f := newScoreFixture()
	stored := storedScore(f)
	f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
	f.expectTournament(models.TournamentStatusActive)
	f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)
	f.sink.On("PublishScoreChanged", mock.Anything, mock.Anything).Return(nil)

	dq := true
	amendment := ScoreAmendment{Strings: workedStrings(), DQ: &dq}
	first, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, amendment)
	require.NoError(t, err)
	second, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, amendment)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.DQ)
	assert.Equal(t, "19.75", first.FinalTime.String())
}

func TestAmendScoreErrors(t *testing.T) {
	t.Run("unknown score", func(t *testing.T) {
		f := newScoreFixture()
		id := uuid.New()
		f.scores.On("AmendScore", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.AmendScore(context.Background(), f.officer, id, ScoreAmendment{})

		assert.ErrorIs(t, err, ErrScoreNotFound)
	})

	t.Run("wrong string count leaves the score untouched", func(t *testing.T) {
		f := newScoreFixture()
		stored := storedScore(f)
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
		f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)

		_, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, ScoreAmendment{
			Strings: workedStrings()[:1],
		})

		assert.ErrorIs(t, err, ErrInvalidStageConfiguration)
		assert.Equal(t, "999", stored.FinalTime.String())
		f.sink.AssertNotCalled(t, "PublishScoreChanged", mock.Anything, mock.Anything)
	})

	t.Run("completed tournament freezes the score", func(t *testing.T) {
		f := newScoreFixture()
		stored := storedScore(f)
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
		f.expectTournament(models.TournamentStatusCompleted)
		f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)

		penalties := scoring.PenaltyTally{}
		_, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, ScoreAmendment{Penalties: &penalties})

		assert.ErrorIs(t, err, ErrTournamentClosed)
		assert.Equal(t, "999", stored.FinalTime.String())
		assert.Equal(t, 1, stored.Penalties.Procedural)
		f.sink.AssertNotCalled(t, "PublishScoreChanged", mock.Anything, mock.Anything)
	})

	t.Run("badges awarded freezes the score", func(t *testing.T) {
		f := newScoreFixture()
		stored := storedScore(f)
		f.stages.On("GetStage", mock.Anything, f.stage.ID).Return(f.stage, nil)
		tour := f.expectTournament(models.TournamentStatusActive)
		awardedAt := time.Now()
		tour.BadgesAwardedAt = &awardedAt
		f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)

		_, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, ScoreAmendment{Strings: workedStrings()})

		assert.ErrorIs(t, err, ErrTournamentClosed)
		assert.Equal(t, "999", stored.FinalTime.String())
	})

	t.Run("over precise time is rejected before the stage is loaded", func(t *testing.T) {
		f := newScoreFixture()
		stored := storedScore(f)
		f.scores.On("AmendScore", mock.Anything, stored.ID).Return(stored, nil)
		strs := workedStrings()
		strs[0].Time = decimal.RequireFromString("4.5005")

		_, err := f.svc.AmendScore(context.Background(), f.officer, stored.ID, ScoreAmendment{Strings: strs})

		assert.ErrorIs(t, err, scoring.ErrInvalidInput)
		assert.Equal(t, "999", stored.FinalTime.String())
		f.stages.AssertNotCalled(t, "GetStage", mock.Anything, mock.Anything)
	})

	t.Run("non scorer", func(t *testing.T) {
		f := newScoreFixture()

		_, err := f.svc.AmendScore(context.Background(), Actor{Role: models.UserRoleShooter}, uuid.New(), ScoreAmendment{})

		assert.ErrorIs(t, err, ErrUnauthorized)
		f.scores.AssertNotCalled(t, "AmendScore", mock.Anything, mock.Anything)
	})
}
