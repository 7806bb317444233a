package ranking

import "strings"

// CompareStage orders entries of one stage and division.
// Keys, in priority order:
//  1. clean before DNF/DQ, whatever the times
//  2. final time, ascending
//  3. shooter ID, ascending (deterministic tie-break)
func CompareStage(a, b Entry) int {
	if c := compareFlags(a, b); c != 0 {
		return c
	}
	if c := a.Time.Cmp(b.Time); c != 0 {
		return c
	}
	return compareShooterID(a, b)
}

// CompareOverall orders shooters across the whole tournament.
// Keys, in priority order:
//  1. clean before any DNF/DQ
//  2. completed stages, descending; a shooter who has shot 3 of 6 stages never
//     leads one who has shot all 6, however fast those 3 were
//  3. total time, ascending
//  4. shooter ID, ascending (deterministic tie-break)
func CompareOverall(a, b Entry) int {
	if c := compareFlags(a, b); c != 0 {
		return c
	}
	if a.CompletedStages != b.CompletedStages {
		if a.CompletedStages > b.CompletedStages {
			return -1
		}
		return 1
	}
	if c := a.Time.Cmp(b.Time); c != 0 {
		return c
	}
	return compareShooterID(a, b)
}

func compareFlags(a, b Entry) int {
	af, bf := a.OutOfContention(), b.OutOfContention()
	switch {
	case af == bf:
		return 0
	case af:
		return 1
	default:
		return -1
	}
}

func compareShooterID(a, b Entry) int {
	return strings.Compare(a.ShooterID.String(), b.ShooterID.String())
}
