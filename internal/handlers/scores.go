package handlers

// scores.go: POST /api/v1/scores and PATCH /api/v1/scores/:id.
// Derived times are never accepted from the client; the response carries the
// freshly computed breakdown.

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/scoring"
	"github.com/trentd187/idpa-match/internal/services"
)

// ScoreRecorder is the part of services.ScoreService the score routes use.
type ScoreRecorder interface {
	SubmitScore(ctx context.Context, actor services.Actor, in services.SubmitScoreInput) (*models.Score, error)
	AmendScore(ctx context.Context, actor services.Actor, scoreID uuid.UUID, in services.ScoreAmendment) (*models.Score, error)
}

// SubmitScoreRequest is the JSON body of POST /api/v1/scores.
type SubmitScoreRequest struct {
	StageID   uuid.UUID              `json:"stage_id"`
	ShooterID uuid.UUID              `json:"shooter_id"`
	SquadID   *uuid.UUID             `json:"squad_id"`
	Strings   []scoring.StringResult `json:"strings"`
	Penalties scoring.PenaltyTally   `json:"penalties"`
	DNF       bool                   `json:"dnf"`
	DQ        bool                   `json:"dq"`
}

// AmendScoreRequest is the JSON body of PATCH /api/v1/scores/:id.
// Omitted fields keep their stored value.
type AmendScoreRequest struct {
	Strings   []scoring.StringResult `json:"strings"`
	Penalties *scoring.PenaltyTally  `json:"penalties"`
	DNF       *bool                  `json:"dnf"`
	DQ        *bool                  `json:"dq"`
}

// ScoreResponse is a stored score with its breakdown.
type ScoreResponse struct {
	ID             uuid.UUID              `json:"id"`
	TournamentID   uuid.UUID              `json:"tournament_id"`
	StageID        uuid.UUID              `json:"stage_id"`
	ShooterID      uuid.UUID              `json:"shooter_id"`
	Division       models.Division        `json:"division"`
	Classification models.Classification  `json:"classification"`
	Strings        []scoring.StringResult `json:"strings"`
	Penalties      scoring.PenaltyTally   `json:"penalties"`
	DNF            bool                   `json:"dnf"`
	DQ             bool                   `json:"dq"`
	RawTime        decimal.Decimal        `json:"raw_time"`
	PointsDownTime decimal.Decimal        `json:"points_down_time"`
	PenaltyTime    decimal.Decimal        `json:"penalty_time"`
	FinalTime      decimal.Decimal        `json:"final_time"`
	ScoredBy       uuid.UUID              `json:"scored_by"`
	UpdatedAt      string                 `json:"updated_at"`
}

func toScoreResponse(s *models.Score) ScoreResponse {
	return ScoreResponse{
		ID:             s.ID,
		TournamentID:   s.TournamentID,
		StageID:        s.StageID,
		ShooterID:      s.ShooterID,
		Division:       s.Division,
		Classification: s.Classification,
		Strings:        s.Strings,
		Penalties:      s.Penalties,
		DNF:            s.DNF,
		DQ:             s.DQ,
		RawTime:        s.RawTime,
		PointsDownTime: s.PointsDownTime,
		PenaltyTime:    s.PenaltyTime,
		FinalTime:      s.FinalTime,
		ScoredBy:       s.ScoredBy,
		UpdatedAt:      s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// SubmitScore returns a handler for POST /api/v1/scores.
// 409 means the shooter already has a score on this stage and the client should amend it.
func SubmitScore(svc ScoreRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := actorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req SubmitScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.StageID == uuid.Nil || req.ShooterID == uuid.Nil {
			return badRequest(c, "stage_id and shooter_id are required")
		}

		score, err := svc.SubmitScore(c.UserContext(), actor, services.SubmitScoreInput{
			StageID:   req.StageID,
			ShooterID: req.ShooterID,
			SquadID:   req.SquadID,
			Strings:   req.Strings,
			Penalties: req.Penalties,
			DNF:       req.DNF,
			DQ:        req.DQ,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toScoreResponse(score))
	}
}

// AmendScore returns a handler for PATCH /api/v1/scores/:id.
func AmendScore(svc ScoreRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := actorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}
		scoreID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid score id")
		}

		var req AmendScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		score, err := svc.AmendScore(c.UserContext(), actor, scoreID, services.ScoreAmendment{
			Strings:   req.Strings,
			Penalties: req.Penalties,
			DNF:       req.DNF,
			DQ:        req.DQ,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(toScoreResponse(score))
	}
}
