// Package events defines the "score changed" notification and the sinks it is
// handed to. Delivery to devices is not this service's job: a sink only has to
// accept the event.
package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScoreAction says whether a score was created or amended.
type ScoreAction string

const (
	ScoreCreated ScoreAction = "created"
	ScoreAmended ScoreAction = "amended"
)

// ScoreChanged is emitted after every successful score create or amend.
// It carries no timestamp, so the same write always produces the same event.
type ScoreChanged struct {
	ScoreID      uuid.UUID       `json:"score_id"`
	StageID      uuid.UUID       `json:"stage_id"`
	ShooterID    uuid.UUID       `json:"shooter_id"`
	TournamentID uuid.UUID       `json:"tournament_id"`
	Action       ScoreAction     `json:"action"`
	FinalTime    decimal.Decimal `json:"final_time"`
}

// Sink accepts score-changed events.
type Sink interface {
	PublishScoreChanged(ctx context.Context, ev ScoreChanged) error
}

// Multi returns a Sink that hands every event to each of sinks in order.
// All sinks are tried; their errors are joined.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) PublishScoreChanged(ctx context.Context, ev ScoreChanged) error {
	var errs []error
	for _, s := range m {
		if err := s.PublishScoreChanged(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) PublishScoreChanged(context.Context, ScoreChanged) error { return nil }
