// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags tell GORM how to handle each field: its column type,
// constraints, default values, and relationships. The authoritative schema lives in
// the SQL files under migrations/; the tags here must agree with it.
//
// The data model represents an IDPA match:
//   - Users register for Tournaments (a Registration carries division and classification)
//   - Tournaments contain Stages, each with a fixed number of strings
//   - A Score is recorded per shooter per stage by a safety officer
//   - Badges are awarded once, when the tournament is completed
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trentd187/idpa-match/internal/scoring"
)

// --- Enums ---
// Named string types plus constants: type safe in Go, human readable in the database.

// UserRole represents a user's global permission level across the entire platform.
type UserRole string

const (
	UserRoleAdmin         UserRole = "admin"          // Full access
	UserRoleMatchDirector UserRole = "match_director" // Runs tournaments, may score
	UserRoleSafetyOfficer UserRole = "safety_officer" // Runs the timer on a stage and records scores
	UserRoleShooter       UserRole = "shooter"        // Competitor; read-only on scores
)

// CanScore reports whether the role may create or amend scores.
func (r UserRole) CanScore() bool {
	switch r {
	case UserRoleAdmin, UserRoleMatchDirector, UserRoleSafetyOfficer:
		return true
	default:
		return false
	}
}

// TournamentStatus tracks the lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed" // Results are final; gates badge derivation
	TournamentStatusCancelled TournamentStatus = "cancelled"
)

// Division is the IDPA equipment division a shooter competes in.
type Division string

const (
	DivisionSSP Division = "SSP" // Stock Service Pistol
	DivisionESP Division = "ESP" // Enhanced Service Pistol
	DivisionCDP Division = "CDP" // Custom Defensive Pistol
	DivisionCCP Division = "CCP" // Compact Carry Pistol
	DivisionCO  Division = "CO"  // Carry Optics
	DivisionREV Division = "REV" // Revolver
	DivisionBUG Division = "BUG" // Back-Up Gun
	DivisionPCC Division = "PCC" // Pistol Caliber Carbine
)

// Valid reports whether d is a known division.
func (d Division) Valid() bool {
	switch d {
	case DivisionSSP, DivisionESP, DivisionCDP, DivisionCCP, DivisionCO, DivisionREV, DivisionBUG, DivisionPCC:
		return true
	}
	return false
}

// Classification is the shooter's skill tier within a division.
type Classification string

const (
	ClassificationMaster       Classification = "MA"
	ClassificationExpert       Classification = "EX"
	ClassificationSharpshooter Classification = "SS"
	ClassificationMarksman     Classification = "MM"
	ClassificationNovice       Classification = "NV"
	ClassificationUnclassified Classification = "UN"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationMaster, ClassificationExpert, ClassificationSharpshooter,
		ClassificationMarksman, ClassificationNovice, ClassificationUnclassified:
		return true
	}
	return false
}

// BadgeType identifies an achievement badge.
type BadgeType string

const (
	BadgeTypeParticipation  BadgeType = "participation"
	BadgeTypeDivisionWinner BadgeType = "division_winner"
	BadgeTypeClassWinner    BadgeType = "class_winner"
	BadgeTypeHighOverall    BadgeType = "high_overall"
	BadgeTypeTopTenPercent  BadgeType = "top_ten_percent"
)

// --- Models ---

// User represents a registered person in the system.
// Users are created the first time an authenticated token hits the API.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID  *string   `gorm:"uniqueIndex:idx_users_external_id"` // Subject of the identity provider's token
	DisplayName string    `gorm:"not null"`
	Email       string    `gorm:"uniqueIndex;not null"`
	IDPANumber  *string   // Membership number, e.g. "A12345"; optional
	Role        UserRole  `gorm:"type:user_role;not null;default:'shooter'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tournament is one IDPA match.
// CompletedAt is set when the match director closes scoring;
// BadgesAwardedAt is set in the same transaction that stores the badges.
type Tournament struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string           `gorm:"not null"`
	Description     *string
	Status          TournamentStatus `gorm:"type:tournament_status;not null;default:'upcoming'"`
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
	Creator         User      `gorm:"foreignKey:CreatedBy"`
	CompletedAt     *time.Time
	BadgesAwardedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Stages          []Stage        `gorm:"foreignKey:TournamentID"`
	Registrations   []Registration `gorm:"foreignKey:TournamentID"`
}

// Stage is one scored course of fire.
// StringCount is how many timed strings every score on this stage must carry.
type Stage struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TournamentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_stage_number"`
	StageNumber  int       `gorm:"not null;uniqueIndex:idx_tournament_stage_number"`
	Name         string    `gorm:"not null"`
	StringCount  int       `gorm:"not null;default:1"`
	RoundCount   int       `gorm:"not null;default:0"` // Minimum round count for the course of fire
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registration links a shooter to a tournament with the division and classification
// they compete in. Only checked-in registrations earn a participation badge.
type Registration struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TournamentID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_shooter"`
	ShooterID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tournament_shooter"`
	Shooter        User           `gorm:"foreignKey:ShooterID"`
	SquadID        *uuid.UUID     `gorm:"type:uuid"`
	Division       Division       `gorm:"not null"`
	Classification Classification `gorm:"not null"`
	CheckedIn      bool           `gorm:"not null;default:false"`
	CheckedInAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Score is one shooter's result on one stage.
// The unique index (idx_stage_shooter) is what makes "one score per shooter per stage"
// hold under concurrent submissions.
//
// RawTime, PointsDownTime, PenaltyTime and FinalTime are derived from Strings and
// Penalties. Always set them through ApplyBreakdown.
type Score struct {
	ID             uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TournamentID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	StageID        uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stage_shooter"`
	ShooterID      uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stage_shooter"`
	SquadID        *uuid.UUID             `gorm:"type:uuid"`
	Division       Division               `gorm:"not null"`
	Classification Classification         `gorm:"not null"`
	Strings        []scoring.StringResult `gorm:"type:jsonb;serializer:json;not null"`
	Penalties      scoring.PenaltyTally   `gorm:"type:jsonb;serializer:json;not null"`
	DNF            bool                   `gorm:"column:dnf;not null;default:false"`
	DQ             bool                   `gorm:"column:dq;not null;default:false"`
	RawTime        decimal.Decimal        `gorm:"type:numeric(10,3);not null"`
	PointsDownTime decimal.Decimal        `gorm:"type:numeric(10,3);not null"`
	PenaltyTime    decimal.Decimal        `gorm:"type:numeric(10,3);not null"`
	FinalTime      decimal.Decimal        `gorm:"type:numeric(10,3);not null"`
	ScoredBy       uuid.UUID              `gorm:"type:uuid;not null"` // Last user to create or amend this score
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApplyBreakdown stores all four derived times at once.
func (s *Score) ApplyBreakdown(b scoring.Breakdown) {
	s.RawTime = b.RawTime
	s.PointsDownTime = b.PointsDownTime
	s.PenaltyTime = b.PenaltyTime
	s.FinalTime = b.FinalTime
}

// OutOfContention reports whether the score is flagged DNF or DQ.
func (s *Score) OutOfContention() bool {
	return s.DNF || s.DQ
}

// Badge is an awarded achievement.
// Placement and QualifyingTime are nil for participation badges.
type Badge struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TournamentID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_badge_award"`
	ShooterID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_badge_award"`
	Type           BadgeType        `gorm:"type:badge_type;not null;uniqueIndex:idx_badge_award"`
	Division       Division         `gorm:"not null;default:'';uniqueIndex:idx_badge_award"`
	Classification Classification   `gorm:"not null;default:'';uniqueIndex:idx_badge_award"`
	Placement      *int
	QualifyingTime *decimal.Decimal `gorm:"type:numeric(10,3)"`
	AwardedAt      time.Time        `gorm:"autoCreateTime"`
}
