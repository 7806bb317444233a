package services

import "errors"

// Each failure kind has its own sentinel so callers can branch with errors.Is.
// Validation failures from the calculator wrap scoring.ErrInvalidInput instead.
var (
	ErrUnauthorized              = errors.New("role is not allowed to record scores")
	ErrInvalidStageConfiguration = errors.New("string count does not match the stage configuration")
	ErrDuplicateScore            = errors.New("a score already exists for this shooter on this stage; amend it instead")
	ErrScoreNotFound             = errors.New("score not found")
	ErrStageNotFound             = errors.New("stage not found")
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentClosed          = errors.New("tournament is closed; scores can no longer change")
	ErrShooterNotRegistered      = errors.New("shooter is not registered for this tournament")
	ErrTournamentNotCompleted    = errors.New("tournament is not completed")
	ErrBadgesAlreadyAwarded      = errors.New("badges already awarded for this tournament")
	ErrInvalidFilter             = errors.New("invalid division or classification")
)
