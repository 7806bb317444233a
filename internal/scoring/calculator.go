// Package scoring turns raw range data into IDPA times.
//
// An IDPA score is "time plus": the shooter's raw string times, plus one second
// for every point down on the targets, plus the fixed cost of every penalty the
// safety officer wrote on the score sheet. Lowest final time wins.
//
// Everything in this package is a pure function of its inputs. Times are kept as
// decimal.Decimal rather than float64 so that 4.50 + 5.25 is exactly 9.75 and two
// shooters with the same time on the sheet compare as equal.
package scoring

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Time cost, in seconds, of each kind of hit outside the -0 zone.
var (
	SecondsPerDown1     = decimal.NewFromInt(1)
	SecondsPerDown3     = decimal.NewFromInt(3)
	SecondsPerMiss      = decimal.NewFromInt(5)
	SecondsPerNonThreat = decimal.NewFromInt(5) // hit on a non-threat target
)

// Time cost, in seconds, of each standard rule-violation penalty.
var (
	SecondsPerProcedural          = decimal.NewFromInt(3)
	SecondsPerNonThreatPenalty    = decimal.NewFromInt(5)
	SecondsPerFailureToNeutralize = decimal.NewFromInt(5)
	SecondsPerFlagrant            = decimal.NewFromInt(10)
	SecondsPerFTDR                = decimal.NewFromInt(20) // failure to do right
)

// ErrInvalidInput is wrapped by every error Validate returns.
var ErrInvalidInput = errors.New("invalid score input")

// Stored times are NUMERIC(10,3): at most three decimal places and MaxTime seconds.
const TimePlaces = 3

var MaxTime = decimal.RequireFromString("9999999.999")

// HitCounts is the tally of hits for one string, by scoring zone.
type HitCounts struct {
	Down0     int `json:"down0"`
	Down1     int `json:"down1"`
	Down3     int `json:"down3"`
	Miss      int `json:"miss"`
	NonThreat int `json:"non_threat"`
}

// StringResult is one shot-timer string: the time on the timer and the hits it produced.
type StringResult struct {
	Time decimal.Decimal `json:"time"`
	Hits HitCounts       `json:"hits"`
}

// CustomPenalty is a penalty defined by the range officer for a particular stage,
// e.g. "dropped magazine" at 2 seconds each.
type CustomPenalty struct {
	Label       string          `json:"label"`
	Count       int             `json:"count"`
	SecondsEach decimal.Decimal `json:"seconds_each"`
}

// PenaltyTally holds the penalty counters from one score sheet.
type PenaltyTally struct {
	Procedural          int             `json:"procedural"`
	NonThreat           int             `json:"non_threat"`
	FailureToNeutralize int             `json:"failure_to_neutralize"`
	Flagrant            int             `json:"flagrant"`
	FTDR                int             `json:"ftdr"`
	Custom              []CustomPenalty `json:"custom,omitempty"`
}

// Breakdown is the set of derived times for one score.
// FinalTime is always RawTime + PointsDownTime + PenaltyTime; the four values are
// produced together by Compose and must be stored together.
type Breakdown struct {
	RawTime        decimal.Decimal `json:"raw_time"`
	PointsDownTime decimal.Decimal `json:"points_down_time"`
	PenaltyTime    decimal.Decimal `json:"penalty_time"`
	FinalTime      decimal.Decimal `json:"final_time"`
}

// PointsDownTime returns the seconds added for the hits of one string.
// -0 hits are free.
func PointsDownTime(h HitCounts) decimal.Decimal {
	return decimal.Sum(
		SecondsPerDown1.Mul(decimal.NewFromInt(int64(h.Down1))),
		SecondsPerDown3.Mul(decimal.NewFromInt(int64(h.Down3))),
		SecondsPerMiss.Mul(decimal.NewFromInt(int64(h.Miss))),
		SecondsPerNonThreat.Mul(decimal.NewFromInt(int64(h.NonThreat))),
	)
}

// PenaltyTime returns the seconds added for the penalties on the sheet,
// standard and custom.
func PenaltyTime(p PenaltyTally) decimal.Decimal {
	total := decimal.Sum(
		SecondsPerProcedural.Mul(decimal.NewFromInt(int64(p.Procedural))),
		SecondsPerNonThreatPenalty.Mul(decimal.NewFromInt(int64(p.NonThreat))),
		SecondsPerFailureToNeutralize.Mul(decimal.NewFromInt(int64(p.FailureToNeutralize))),
		SecondsPerFlagrant.Mul(decimal.NewFromInt(int64(p.Flagrant))),
		SecondsPerFTDR.Mul(decimal.NewFromInt(int64(p.FTDR))),
	)
	for _, c := range p.Custom {
		total = total.Add(c.SecondsEach.Mul(decimal.NewFromInt(int64(c.Count))))
	}
	return total
}

// Compose computes the full Breakdown for a score from its strings and penalties.
// Inputs are assumed to have passed Validate.
func Compose(results []StringResult, p PenaltyTally) Breakdown {
	raw := decimal.Zero
	pointsDown := decimal.Zero
	for _, r := range results {
		raw = raw.Add(r.Time)
		pointsDown = pointsDown.Add(PointsDownTime(r.Hits))
	}
	penalty := PenaltyTime(p)

	return Breakdown{
		RawTime:        raw,
		PointsDownTime: pointsDown,
		PenaltyTime:    penalty,
		FinalTime:      raw.Add(pointsDown).Add(penalty),
	}
}

// Validate rejects negative times, hit counts, and penalty counts, times with more
// than TimePlaces decimal places, and scores whose final time would exceed MaxTime.
// Inputs that pass are stored exactly, so the derived columns always add up.
// The returned error names the offending field and wraps ErrInvalidInput.
func Validate(results []StringResult, p PenaltyTally) error {
	for i, r := range results {
		if r.Time.IsNegative() {
			return fmt.Errorf("%w: string %d has a negative time", ErrInvalidInput, i+1)
		}
		if !fitsPlaces(r.Time) {
			return fmt.Errorf("%w: string %d time has more than %d decimal places", ErrInvalidInput, i+1, TimePlaces)
		}
		h := r.Hits
		if h.Down0 < 0 || h.Down1 < 0 || h.Down3 < 0 || h.Miss < 0 || h.NonThreat < 0 {
			return fmt.Errorf("%w: string %d has a negative hit count", ErrInvalidInput, i+1)
		}
	}

	if p.Procedural < 0 || p.NonThreat < 0 || p.FailureToNeutralize < 0 || p.Flagrant < 0 || p.FTDR < 0 {
		return fmt.Errorf("%w: penalty counts must not be negative", ErrInvalidInput)
	}
	for _, c := range p.Custom {
		if c.Count < 0 || c.SecondsEach.IsNegative() {
			return fmt.Errorf("%w: custom penalty %q must not be negative", ErrInvalidInput, c.Label)
		}
		if !fitsPlaces(c.SecondsEach) {
			return fmt.Errorf("%w: custom penalty %q has more than %d decimal places", ErrInvalidInput, c.Label, TimePlaces)
		}
	}

	// Every term is non-negative, so the final time is the largest derived value.
	if final := Compose(results, p).FinalTime; final.GreaterThan(MaxTime) {
		return fmt.Errorf("%w: final time %s exceeds the maximum of %s seconds", ErrInvalidInput, final, MaxTime)
	}
	return nil
}

func fitsPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(TimePlaces))
}
