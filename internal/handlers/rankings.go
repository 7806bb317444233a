package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/ranking"
)

// RankingReader is the part of services.RankingService the ranking routes use.
type RankingReader interface {
	StageRanking(ctx context.Context, stageID uuid.UUID, division models.Division) ([]ranking.Entry, error)
	OverallRanking(ctx context.Context, tournamentID uuid.UUID) ([]ranking.Entry, error)
	DivisionRanking(ctx context.Context, tournamentID uuid.UUID, division models.Division) ([]ranking.Entry, error)
	Leaderboard(ctx context.Context, tournamentID uuid.UUID, filter ranking.LeaderboardFilter) ([]ranking.Entry, error)
}

// GetStageRanking handles GET /api/v1/stages/:id/rankings?division=SSP.
func GetStageRanking(svc RankingReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stageID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid stage id")
		}
		entries, err := svc.StageRanking(c.UserContext(), stageID, models.Division(c.Query("division")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	}
}

// GetOverallRanking handles GET /api/v1/tournaments/:id/rankings.
func GetOverallRanking(svc RankingReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}
		entries, err := svc.OverallRanking(c.UserContext(), tournamentID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	}
}

// GetDivisionRanking handles GET /api/v1/tournaments/:id/rankings/:division.
func GetDivisionRanking(svc RankingReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}
		entries, err := svc.DivisionRanking(c.UserContext(), tournamentID, models.Division(c.Params("division")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	}
}

// GetLeaderboard handles the public GET /public/tournaments/:id/leaderboard.
// Query params: division, classification, limit (default 10, max 100).
func GetLeaderboard(svc RankingReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}
		limit := c.QueryInt("limit", 0)
		if limit < 0 {
			return badRequest(c, "limit must not be negative")
		}

		entries, err := svc.Leaderboard(c.UserContext(), tournamentID, ranking.LeaderboardFilter{
			Division:       models.Division(c.Query("division")),
			Classification: models.Classification(c.Query("classification")),
			Limit:          limit,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entries)
	}
}
