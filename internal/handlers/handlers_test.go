package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/idpa-match/internal/badges"
	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/ranking"
	"github.com/trentd187/idpa-match/internal/scoring"
	"github.com/trentd187/idpa-match/internal/services"
)

type mockScoreRecorder struct {
	mock.Mock
}

func (m *mockScoreRecorder) SubmitScore(ctx context.Context, actor services.Actor, in services.SubmitScoreInput) (*models.Score, error) {
	args := m.Called(actor, in)
	s, _ := args.Get(0).(*models.Score)
	return s, args.Error(1)
}

func (m *mockScoreRecorder) AmendScore(ctx context.Context, actor services.Actor, id uuid.UUID, in services.ScoreAmendment) (*models.Score, error) {
	args := m.Called(actor, id, in)
	s, _ := args.Get(0).(*models.Score)
	return s, args.Error(1)
}

type mockRankingReader struct {
	mock.Mock
}

func (m *mockRankingReader) StageRanking(ctx context.Context, id uuid.UUID, d models.Division) ([]ranking.Entry, error) {
	args := m.Called(id, d)
	e, _ := args.Get(0).([]ranking.Entry)
	return e, args.Error(1)
}

func (m *mockRankingReader) OverallRanking(ctx context.Context, id uuid.UUID) ([]ranking.Entry, error) {
	args := m.Called(id)
	e, _ := args.Get(0).([]ranking.Entry)
	return e, args.Error(1)
}

func (m *mockRankingReader) DivisionRanking(ctx context.Context, id uuid.UUID, d models.Division) ([]ranking.Entry, error) {
	args := m.Called(id, d)
	e, _ := args.Get(0).([]ranking.Entry)
	return e, args.Error(1)
}

func (m *mockRankingReader) Leaderboard(ctx context.Context, id uuid.UUID, f ranking.LeaderboardFilter) ([]ranking.Entry, error) {
	args := m.Called(id, f)
	e, _ := args.Get(0).([]ranking.Entry)
	return e, args.Error(1)
}

type mockBadgeDeriver struct {
	mock.Mock
}

func (m *mockBadgeDeriver) DeriveBadges(ctx context.Context, id uuid.UUID) ([]badges.Eligibility, error) {
	args := m.Called(id)
	e, _ := args.Get(0).([]badges.Eligibility)
	return e, args.Error(1)
}

var officer = services.Actor{UserID: uuid.New(), Role: models.UserRoleSafetyOfficer}

// newApp returns an app whose requests are already authenticated as actor.
func newApp(actor services.Actor) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", actor.UserID.String())
		c.Locals("userRole", string(actor.Role))
		return c.Next()
	})
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("%w: string 1 has a negative time", scoring.ErrInvalidInput), fiber.StatusBadRequest},
		{services.ErrInvalidFilter, fiber.StatusBadRequest},
		{fmt.Errorf("%w: expects 2", services.ErrInvalidStageConfiguration), fiber.StatusUnprocessableEntity},
		{services.ErrUnauthorized, fiber.StatusForbidden},
		{services.ErrDuplicateScore, fiber.StatusConflict},
		{services.ErrScoreNotFound, fiber.StatusNotFound},
		{services.ErrTournamentNotCompleted, fiber.StatusConflict},
		{services.ErrBadgesAlreadyAwarded, fiber.StatusConflict},
		{services.ErrTournamentClosed, fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestSubmitScoreHandler(t *testing.T) {
	svc := new(mockScoreRecorder)
	app := newApp(officer)
	app.Post("/scores", SubmitScore(svc))

	stageID, shooterID := uuid.New(), uuid.New()
	svc.On("SubmitScore", officer, mock.MatchedBy(func(in services.SubmitScoreInput) bool {
		return in.StageID == stageID && in.ShooterID == shooterID &&
			len(in.Strings) == 1 && in.Strings[0].Time.Equal(decimal.RequireFromString("4.5")) &&
			in.Strings[0].Hits.Down1 == 2 && in.Penalties.Procedural == 1
	})).Return(&models.Score{
		ID:        uuid.New(),
		StageID:   stageID,
		ShooterID: shooterID,
		FinalTime: decimal.RequireFromString("9.5"),
	}, nil)

	body := fmt.Sprintf(`{
		"stage_id": %q,
		"shooter_id": %q,
		"strings": [{"time": "4.50", "hits": {"down0": 4, "down1": 2}}],
		"penalties": {"procedural": 1}
	}`, stageID, shooterID)
	resp, err := app.Test(jsonRequest("POST", "/scores", body))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var got ScoreResponse
	decode(t, resp, &got)
	assert.Equal(t, "9.5", got.FinalTime.String())
	svc.AssertExpectations(t)
}

func TestSubmitScoreHandlerDuplicate(t *testing.T) {
	svc := new(mockScoreRecorder)
	app := newApp(officer)
	app.Post("/scores", SubmitScore(svc))
	svc.On("SubmitScore", mock.Anything, mock.Anything).Return(nil, services.ErrDuplicateScore)

	body := fmt.Sprintf(`{"stage_id": %q, "shooter_id": %q, "strings": []}`, uuid.New(), uuid.New())
	resp, err := app.Test(jsonRequest("POST", "/scores", body))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var got map[string]string
	decode(t, resp, &got)
	assert.Equal(t, services.ErrDuplicateScore.Error(), got["error"])
	assert.Contains(t, got["use"], "PATCH")
}

func TestSubmitScoreHandlerBadBody(t *testing.T) {
	app := newApp(officer)
	app.Post("/scores", SubmitScore(new(mockScoreRecorder)))

	for _, body := range []string{`{`, `{"strings": []}`} {
		resp, err := app.Test(jsonRequest("POST", "/scores", body))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestAmendScoreHandler(t *testing.T) {
	svc := new(mockScoreRecorder)
	app := newApp(officer)
	app.Patch("/scores/:id", AmendScore(svc))

	scoreID := uuid.New()
	svc.On("AmendScore", officer, scoreID, mock.MatchedBy(func(in services.ScoreAmendment) bool {
		return in.Strings == nil && in.Penalties == nil && in.DQ != nil && *in.DQ && in.DNF == nil
	})).Return(&models.Score{ID: scoreID, DQ: true}, nil)

	resp, err := app.Test(jsonRequest("PATCH", "/scores/"+scoreID.String(), `{"dq": true}`))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestAmendScoreHandlerErrors(t *testing.T) {
	svc := new(mockScoreRecorder)
	app := newApp(officer)
	app.Patch("/scores/:id", AmendScore(svc))

	missing := uuid.New()
	svc.On("AmendScore", officer, missing, mock.Anything).Return(nil, services.ErrScoreNotFound)

	resp, err := app.Test(jsonRequest("PATCH", "/scores/"+missing.String(), `{}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(jsonRequest("PATCH", "/scores/not-a-uuid", `{}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboardHandler(t *testing.T) {
	svc := new(mockRankingReader)
	app := fiber.New()
	app.Get("/public/tournaments/:id/leaderboard", GetLeaderboard(svc))

	tournamentID := uuid.New()
	svc.On("Leaderboard", tournamentID, ranking.LeaderboardFilter{
		Division:       models.DivisionCO,
		Classification: models.ClassificationMaster,
		Limit:          5,
	}).Return([]ranking.Entry{{ShooterID: uuid.New(), Rank: 1, Time: decimal.NewFromInt(88)}}, nil)

	resp, err := app.Test(httptest.NewRequest("GET",
		"/public/tournaments/"+tournamentID.String()+"/leaderboard?division=CO&classification=MA&limit=5", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got []ranking.Entry
	decode(t, resp, &got)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Rank)
	svc.AssertExpectations(t)

	resp, err = app.Test(httptest.NewRequest("GET", "/public/tournaments/"+tournamentID.String()+"/leaderboard?limit=-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRankingHandlers(t *testing.T) {
	svc := new(mockRankingReader)
	app := newApp(officer)
	app.Get("/stages/:id/rankings", GetStageRanking(svc))
	app.Get("/tournaments/:id/rankings", GetOverallRanking(svc))
	app.Get("/tournaments/:id/rankings/:division", GetDivisionRanking(svc))

	stageID, tournamentID := uuid.New(), uuid.New()
	svc.On("StageRanking", stageID, models.DivisionSSP).Return([]ranking.Entry{}, nil)
	svc.On("OverallRanking", tournamentID).Return(nil, services.ErrTournamentNotFound)
	svc.On("DivisionRanking", tournamentID, models.Division("XX")).Return(nil, services.ErrInvalidFilter)

	tests := []struct {
		target   string
		expected int
	}{
		{"/stages/" + stageID.String() + "/rankings?division=SSP", fiber.StatusOK},
		{"/tournaments/" + tournamentID.String() + "/rankings", fiber.StatusNotFound},
		{"/tournaments/" + tournamentID.String() + "/rankings/XX", fiber.StatusBadRequest},
		{"/stages/nope/rankings", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.expected, resp.StatusCode, tt.target)
	}
}

func TestDeriveBadgesHandler(t *testing.T) {
	svc := new(mockBadgeDeriver)
	app := newApp(services.Actor{UserID: uuid.New(), Role: models.UserRoleMatchDirector})
	app.Post("/tournaments/:id/badges", DeriveBadges(svc))

	done, open := uuid.New(), uuid.New()
	svc.On("DeriveBadges", done).Return([]badges.Eligibility{{ShooterID: uuid.New(), Type: models.BadgeTypeParticipation}}, nil)
	svc.On("DeriveBadges", open).Return(nil, services.ErrTournamentNotCompleted)

	resp, err := app.Test(httptest.NewRequest("POST", "/tournaments/"+done.String()+"/badges", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/tournaments/"+open.String()+"/badges", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", HealthCheck(fakePinger{}))
	app.Get("/down", HealthCheck(fakePinger{err: errors.New("refused")}))

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/down", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
