package handlers

// tournaments.go: the match setup routes: tournaments, stages, registrations and
// check-in, plus closing a tournament.
//
// These handlers take a *gorm.DB directly. They are plain CRUD with no scoring
// rules; anything that touches scores, rankings or badges goes through the services.
//
// --- Permission model ---
//   - Creating or completing a tournament, adding stages and checking shooters in:
//     admin and match_director (enforced with middleware.RequireRole on the route).
//   - Registering: any authenticated user may register themselves; registering
//     someone else needs admin or match_director.

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/idpa-match/internal/models"
)

// TournamentResponse is what we send back to the app.
// A dedicated response struct controls exactly which fields are serialised.
type TournamentResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Status       string  `json:"status"`
	StartDate    *string `json:"start_date"`    // "YYYY-MM-DD" or null
	EndDate      *string `json:"end_date"`      // "YYYY-MM-DD" or null
	CreatorName  string  `json:"creator_name"`
	StageCount   int64   `json:"stage_count"`
	ShooterCount int64   `json:"shooter_count"` // Registrations, checked in or not
	CompletedAt  *string `json:"completed_at"`  // RFC 3339 or null
	CreatedAt    string  `json:"created_at"`
}

// CreateTournamentRequest is the JSON body of POST /api/v1/tournaments.
type CreateTournamentRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"` // Optional: "YYYY-MM-DD"
	EndDate     *string `json:"end_date"`   // Optional: "YYYY-MM-DD"
}

// CreateStageRequest is the JSON body of POST /api/v1/tournaments/:id/stages.
type CreateStageRequest struct {
	StageNumber int    `json:"stage_number"`
	Name        string `json:"name"`
	StringCount int    `json:"string_count"`
	RoundCount  int    `json:"round_count"`
}

// CreateRegistrationRequest is the JSON body of POST /api/v1/tournaments/:id/registrations.
// ShooterID defaults to the caller.
type CreateRegistrationRequest struct {
	ShooterID      *uuid.UUID `json:"shooter_id"`
	SquadID        *uuid.UUID `json:"squad_id"`
	Division       string     `json:"division"`
	Classification string     `json:"classification"`
}

// formatOptionalDate converts a *time.Time to a *string in "2006-01-02" format.
func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02")
	return &s
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// parseOptionalDate parses an optional "YYYY-MM-DD" string.
// Returns nil for a nil or empty input and an error for a malformed one.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTournaments returns a handler for GET /api/v1/tournaments.
// Optional query param: ?status=active (or upcoming, completed, cancelled).
func GetTournaments(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Preload("Creator") fetches each tournament's creator in one extra query
		// instead of one per row.
		ctxDB := db.WithContext(c.UserContext())
		query := ctxDB.Preload("Creator").Order("start_date DESC NULLS LAST, created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var tournaments []models.Tournament
		if err := query.Find(&tournaments).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch tournaments",
			})
		}

		response := make([]TournamentResponse, 0, len(tournaments))
		for _, t := range tournaments {
			var stageCount, shooterCount int64
			if err := ctxDB.Model(&models.Stage{}).Where("tournament_id = ?", t.ID).Count(&stageCount).Error; err != nil {
				log.Printf("[tournaments] failed to count stages for %s: %v", t.ID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to fetch tournaments",
				})
			}
			if err := ctxDB.Model(&models.Registration{}).Where("tournament_id = ?", t.ID).Count(&shooterCount).Error; err != nil {
				log.Printf("[tournaments] failed to count registrations for %s: %v", t.ID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to fetch tournaments",
				})
			}
			response = append(response, toTournamentResponse(t, stageCount, shooterCount))
		}
		return c.JSON(response)
	}
}

func toTournamentResponse(t models.Tournament, stageCount, shooterCount int64) TournamentResponse {
	return TournamentResponse{
		ID:           t.ID.String(),
		Name:         t.Name,
		Description:  t.Description,
		Status:       string(t.Status),
		StartDate:    formatOptionalDate(t.StartDate),
		EndDate:      formatOptionalDate(t.EndDate),
		CreatorName:  t.Creator.DisplayName,
		StageCount:   stageCount,
		ShooterCount: shooterCount,
		CompletedAt:  formatOptionalTimestamp(t.CompletedAt),
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateTournament returns a handler for POST /api/v1/tournaments.
func CreateTournament(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := actorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req CreateTournamentRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Name == "" {
			return badRequest(c, "name is required")
		}
		startDate, err := parseOptionalDate(req.StartDate)
		if err != nil {
			return badRequest(c, "start_date must be in YYYY-MM-DD format")
		}
		endDate, err := parseOptionalDate(req.EndDate)
		if err != nil {
			return badRequest(c, "end_date must be in YYYY-MM-DD format")
		}
		if startDate != nil && endDate != nil && endDate.Before(*startDate) {
			return badRequest(c, "end_date must not be before start_date")
		}

		t := models.Tournament{
			Name:        req.Name,
			Description: req.Description,
			Status:      models.TournamentStatusUpcoming,
			StartDate:   startDate,
			EndDate:     endDate,
			CreatedBy:   actor.UserID,
		}
		ctxDB := db.WithContext(c.UserContext())
		if err := ctxDB.Create(&t).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create tournament",
			})
		}
		if err := ctxDB.First(&t.Creator, "id = ?", actor.UserID).Error; err != nil {
			log.Printf("[tournaments] created %s but failed to load creator %s: %v", t.ID, actor.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load tournament creator",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(toTournamentResponse(t, 0, 0))
	}
}

// CompleteTournament returns a handler for POST /api/v1/tournaments/:id/complete.
// Closing a tournament makes its results final; the badge sweep picks it up next.
func CompleteTournament(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}

		var t models.Tournament
		txErr := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
				return err
			}
			switch t.Status {
			case models.TournamentStatusCompleted, models.TournamentStatusCancelled:
				return errTournamentClosed
			}
			now := time.Now().UTC()
			t.Status = models.TournamentStatusCompleted
			t.CompletedAt = &now
			return tx.Model(&t).Updates(map[string]interface{}{
				"status":       t.Status,
				"completed_at": now,
			}).Error
		})

		switch {
		case txErr == nil:
			return c.JSON(toTournamentResponse(t, 0, 0))
		case errors.Is(txErr, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tournament not found"})
		case errors.Is(txErr, errTournamentClosed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "tournament is already " + string(t.Status)})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to complete tournament"})
		}
	}
}

var errTournamentClosed = errors.New("tournament closed")

// CreateStage returns a handler for POST /api/v1/tournaments/:id/stages.
func CreateStage(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}

		var req CreateStageRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		switch {
		case req.Name == "":
			return badRequest(c, "name is required")
		case req.StageNumber < 1:
			return badRequest(c, "stage_number must be at least 1")
		case req.StringCount < 1:
			return badRequest(c, "string_count must be at least 1")
		case req.RoundCount < 0:
			return badRequest(c, "round_count must not be negative")
		}

		ctxDB := db.WithContext(c.UserContext())
		var t models.Tournament
		if err := ctxDB.First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tournament not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
		}
		if t.Status == models.TournamentStatusCompleted {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "tournament is completed"})
		}

		stage := models.Stage{
			TournamentID: tournamentID,
			StageNumber:  req.StageNumber,
			Name:         req.Name,
			StringCount:  req.StringCount,
			RoundCount:   req.RoundCount,
		}
		if err := ctxDB.Create(&stage).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "stage number already exists"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create stage"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":            stage.ID,
			"tournament_id": stage.TournamentID,
			"stage_number":  stage.StageNumber,
			"name":          stage.Name,
			"string_count":  stage.StringCount,
			"round_count":   stage.RoundCount,
		})
	}
}

// CreateRegistration returns a handler for POST /api/v1/tournaments/:id/registrations.
func CreateRegistration(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := actorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}

		var req CreateRegistrationRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		division := models.Division(req.Division)
		if !division.Valid() {
			return badRequest(c, "unknown division")
		}
		classification := models.Classification(req.Classification)
		if !classification.Valid() {
			return badRequest(c, "unknown classification")
		}

		shooterID := actor.UserID
		if req.ShooterID != nil && *req.ShooterID != actor.UserID {
			if actor.Role != models.UserRoleAdmin && actor.Role != models.UserRoleMatchDirector {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
			}
			shooterID = *req.ShooterID
		}

		ctxDB := db.WithContext(c.UserContext())
		var t models.Tournament
		if err := ctxDB.First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tournament not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
		}
		if t.Status == models.TournamentStatusCompleted || t.Status == models.TournamentStatusCancelled {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "registration is closed"})
		}

		reg := models.Registration{
			TournamentID:   tournamentID,
			ShooterID:      shooterID,
			SquadID:        req.SquadID,
			Division:       division,
			Classification: classification,
		}
		if err := ctxDB.Create(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "shooter is already registered"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register"})
		}
		return c.Status(fiber.StatusCreated).JSON(registrationJSON(reg))
	}
}

// CheckIn returns a handler for POST /api/v1/registrations/:id/check-in.
// Checking in twice is harmless and keeps the first check-in time.
func CheckIn(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid registration id")
		}

		ctxDB := db.WithContext(c.UserContext())
		var reg models.Registration
		if err := ctxDB.First(&reg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "registration not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
		}

		if !reg.CheckedIn {
			now := time.Now().UTC()
			if err := ctxDB.Model(&reg).Updates(map[string]interface{}{
				"checked_in":    true,
				"checked_in_at": now,
			}).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to check in"})
			}
			reg.CheckedIn = true
			reg.CheckedInAt = &now
		}
		return c.JSON(registrationJSON(reg))
	}
}

func registrationJSON(r models.Registration) fiber.Map {
	return fiber.Map{
		"id":             r.ID,
		"tournament_id":  r.TournamentID,
		"shooter_id":     r.ShooterID,
		"squad_id":       r.SquadID,
		"division":       r.Division,
		"classification": r.Classification,
		"checked_in":     r.CheckedIn,
		"checked_in_at":  formatOptionalTimestamp(r.CheckedInAt),
	}
}
