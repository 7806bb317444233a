// Package ranking builds stage, overall, division and leaderboard rankings from
// committed scores.
//
// Rankings are a read, not a record: every call recomputes from the scores it is
// given and nothing here is cached.
//
// The ordering rules are spelled out as one named comparator per view (see
// compare.go) so the key priority can be read and tested on its own.
package ranking

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trentd187/idpa-match/internal/models"
)

// OutOfContention is the rank given to DNF and DQ entries.
// Clean entries are ranked from 1.
const OutOfContention = 0

// Entry is one row of a ranking.
// For a stage ranking Time is the score's final time; for overall, division and
// leaderboard views it is the shooter's total time across all recorded stages.
type Entry struct {
	ShooterID       uuid.UUID             `json:"shooter_id"`
	ScoreID         *uuid.UUID            `json:"score_id,omitempty"` // stage rankings only
	Division        models.Division       `json:"division"`
	Classification  models.Classification `json:"classification"`
	Rank            int                   `json:"rank"`
	Time            decimal.Decimal       `json:"time"`
	CompletedStages int                   `json:"completed_stages"`
	DNF             bool                  `json:"dnf"`
	DQ              bool                  `json:"dq"`
}

// OutOfContention reports whether the entry is flagged DNF or DQ.
func (e Entry) OutOfContention() bool {
	return e.DNF || e.DQ
}

// LeaderboardFilter narrows the overall ranking for the spectator view.
// Zero values mean "no filter"; Limit <= 0 returns every entry.
type LeaderboardFilter struct {
	Division       models.Division
	Classification models.Classification
	Limit          int
}

// Stage ranks the scores of one stage within each division.
// If division is non-empty only that division is returned. Divisions are returned in
// name order, each ranked 1..N on its own.
func Stage(scores []models.Score, division models.Division) []Entry {
	byDivision := make(map[models.Division][]Entry)
	for i := range scores {
		s := &scores[i]
		if division != "" && s.Division != division {
			continue
		}
		id := s.ID
		byDivision[s.Division] = append(byDivision[s.Division], Entry{
			ShooterID:       s.ShooterID,
			ScoreID:         &id,
			Division:        s.Division,
			Classification:  s.Classification,
			Time:            s.FinalTime,
			CompletedStages: completedCount(s),
			DNF:             s.DNF,
			DQ:              s.DQ,
		})
	}

	divisions := make([]models.Division, 0, len(byDivision))
	for d := range byDivision {
		divisions = append(divisions, d)
	}
	slices.Sort(divisions)

	result := make([]Entry, 0, len(scores))
	for _, d := range divisions {
		entries := byDivision[d]
		slices.SortStableFunc(entries, CompareStage)
		assignRanks(entries)
		result = append(result, entries...)
	}
	return result
}

// Overall ranks every shooter in the tournament by their accumulated result.
// scores may span any number of stages; each shooter's scores are summed.
func Overall(scores []models.Score) []Entry {
	byShooter := make(map[uuid.UUID]*Entry)
	order := make([]uuid.UUID, 0)

	for i := range scores {
		s := &scores[i]
		e, ok := byShooter[s.ShooterID]
		if !ok {
			e = &Entry{
				ShooterID:      s.ShooterID,
				Division:       s.Division,
				Classification: s.Classification,
				Time:           decimal.Zero,
			}
			byShooter[s.ShooterID] = e
			order = append(order, s.ShooterID)
		}
		e.Time = e.Time.Add(s.FinalTime)
		e.CompletedStages += completedCount(s)
		e.DNF = e.DNF || s.DNF
		e.DQ = e.DQ || s.DQ
	}

	entries := make([]Entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byShooter[id])
	}
	slices.SortStableFunc(entries, CompareOverall)
	assignRanks(entries)
	return entries
}

// Division returns the overall ranking restricted to one division, re-ranked from 1.
func Division(scores []models.Score, division models.Division) []Entry {
	return Leaderboard(scores, LeaderboardFilter{Division: division})
}

// Leaderboard returns the overall ranking filtered by division and/or classification,
// re-ranked within the filtered set and truncated to filter.Limit.
// Flagged shooters sort after clean ones, so truncation never shows a DNF or DQ
// ahead of a clean shooter.
func Leaderboard(scores []models.Score, filter LeaderboardFilter) []Entry {
	overall := Overall(scores)

	entries := make([]Entry, 0, len(overall))
	for _, e := range overall {
		if filter.Division != "" && e.Division != filter.Division {
			continue
		}
		if filter.Classification != "" && e.Classification != filter.Classification {
			continue
		}
		entries = append(entries, e)
	}
	assignRanks(entries)

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries
}

// assignRanks numbers clean entries 1..N in slice order and marks flagged ones.
// entries must already be sorted with flagged entries last.
func assignRanks(entries []Entry) {
	next := 1
	for i := range entries {
		if entries[i].OutOfContention() {
			entries[i].Rank = OutOfContention
			continue
		}
		entries[i].Rank = next
		next++
	}
}

func completedCount(s *models.Score) int {
	if s.OutOfContention() {
		return 0
	}
	return 1
}
