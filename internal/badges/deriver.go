// Package badges decides which achievement badges each shooter earned in a
// completed tournament.
//
// Derive is pure: the same registrations and overall ranking always give the same
// badges in the same order. It does not guard against being run twice for one
// tournament; the caller stores the result through a repository that rejects a
// second award (see repositories.BadgeRepository).
package badges

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/ranking"
)

// Eligibility is one badge a shooter qualifies for.
// Placement and QualifyingTime are unset for participation badges.
type Eligibility struct {
	ShooterID      uuid.UUID             `json:"shooter_id"`
	Type           models.BadgeType      `json:"type"`
	Division       models.Division       `json:"division,omitempty"`
	Classification models.Classification `json:"classification,omitempty"`
	Placement      int                   `json:"placement,omitempty"`
	QualifyingTime *decimal.Decimal      `json:"qualifying_time,omitempty"`
}

// TopTenPercentCount is ceil(10% of cleanShooters).
func TopTenPercentCount(cleanShooters int) int {
	if cleanShooters <= 0 {
		return 0
	}
	return (cleanShooters + 9) / 10
}

// Derive returns every badge earned.
//
// overall must be the tournament's overall ranking as produced by ranking.Overall.
// If it is empty the tournament was never scored and no badges at all are returned,
// not even participation.
//
// Categories are independent: a shooter who wins both their division and their class
// gets both badges. The one exclusion is top-10%, which skips the high-overall
// winner and is given to the next ceil(10%) clean shooters instead.
func Derive(registrations []models.Registration, overall []ranking.Entry) []Eligibility {
	if len(overall) == 0 {
		return []Eligibility{}
	}

	var result []Eligibility
	result = append(result, participation(registrations)...)

	clean := make([]ranking.Entry, 0, len(overall))
	for _, e := range overall {
		if !e.OutOfContention() {
			clean = append(clean, e)
		}
	}
	if len(clean) == 0 {
		return result
	}

	result = append(result, placed(clean[0], models.BadgeTypeHighOverall, clean[0].Rank))
	result = append(result, divisionWinners(clean)...)
	result = append(result, classWinners(clean)...)

	n := TopTenPercentCount(len(clean))
	for _, e := range clean[1:min(n+1, len(clean))] {
		result = append(result, placed(e, models.BadgeTypeTopTenPercent, e.Rank))
	}
	return result
}

func participation(registrations []models.Registration) []Eligibility {
	checkedIn := make([]models.Registration, 0, len(registrations))
	for _, r := range registrations {
		if r.CheckedIn {
			checkedIn = append(checkedIn, r)
		}
	}
	slices.SortFunc(checkedIn, func(a, b models.Registration) int {
		return strings.Compare(a.ShooterID.String(), b.ShooterID.String())
	})

	out := make([]Eligibility, 0, len(checkedIn))
	for _, r := range checkedIn {
		out = append(out, Eligibility{
			ShooterID:      r.ShooterID,
			Type:           models.BadgeTypeParticipation,
			Division:       r.Division,
			Classification: r.Classification,
		})
	}
	return out
}

// divisionWinners takes the first clean entry of each division, in division order.
func divisionWinners(clean []ranking.Entry) []Eligibility {
	winners := make(map[models.Division]ranking.Entry)
	for _, e := range clean {
		if _, ok := winners[e.Division]; !ok {
			winners[e.Division] = e
		}
	}

	divisions := make([]models.Division, 0, len(winners))
	for d := range winners {
		divisions = append(divisions, d)
	}
	slices.Sort(divisions)

	out := make([]Eligibility, 0, len(divisions))
	for _, d := range divisions {
		out = append(out, placed(winners[d], models.BadgeTypeDivisionWinner, 1))
	}
	return out
}

// classWinners takes the first clean entry of each (division, classification) pair.
func classWinners(clean []ranking.Entry) []Eligibility {
	type key struct {
		division       models.Division
		classification models.Classification
	}

	winners := make(map[key]ranking.Entry)
	keys := make([]key, 0)
	for _, e := range clean {
		k := key{e.Division, e.Classification}
		if _, ok := winners[k]; !ok {
			winners[k] = e
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := strings.Compare(string(a.division), string(b.division)); c != 0 {
			return c
		}
		return strings.Compare(string(a.classification), string(b.classification))
	})

	out := make([]Eligibility, 0, len(keys))
	for _, k := range keys {
		out = append(out, placed(winners[k], models.BadgeTypeClassWinner, 1))
	}
	return out
}

func placed(e ranking.Entry, t models.BadgeType, placement int) Eligibility {
	qualifying := e.Time
	return Eligibility{
		ShooterID:      e.ShooterID,
		Type:           t,
		Division:       e.Division,
		Classification: e.Classification,
		Placement:      placement,
		QualifyingTime: &qualifying,
	}
}
