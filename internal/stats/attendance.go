package stats

import (
	"sort"
	"unit-tracker/internal/domain"
)

type Streak struct {
	Length     int                `json:"length"`
	Operations []domain.Operation `json:"operations"`
}

// CurrentStreak walks the unit's operations newest first and counts how
// many in a row the player attended, stopping at the first miss.
func CurrentStreak(allOps []domain.Operation, attended []domain.Operation) Streak {
	set := make(map[string]struct{}, len(attended))
	for _, op := range attended {
		set[op.Key()] = struct{}{}
	}

	s := Streak{Operations: []domain.Operation{}}
	for _, op := range allOps {
		if _, ok := set[op.Key()]; !ok {
			break
		}
		s.Length++
		s.Operations = append(s.Operations, op)
	}
	return s
}

// MonthTotal is the estimated number of unit operations in one month.
type MonthTotal struct {
	Month string `json:"month"` // YYYY-MM
	Total int    `json:"total_ops"`
}

// TrueOperationsPerMonth approximates how many operations the unit ran each
// month when some players carry duplicate rows for one operation.
//
// Each (date, type) counts as the largest number of rows any single player
// has for it, on the assumption that the most duplicated player reflects the
// real number of sub-events. Those per-operation counts are summed by month.
// It is an estimator, not a guarantee; callers should depend on this contract
// only.
func TrueOperationsPerMonth(records []domain.OperationRecord) []MonthTotal {
	type playerOp struct {
		op     string
		player string
	}
	rowsPerPlayer := make(map[playerOp]int)
	opMonth := make(map[string]string)
	for _, r := range records {
		op := r.Operation()
		rowsPerPlayer[playerOp{op: op.Key(), player: r.PlayerName}]++
		opMonth[op.Key()] = op.Month()
	}

	trueCount := make(map[string]int)
	for k, n := range rowsPerPlayer {
		if n > trueCount[k.op] {
			trueCount[k.op] = n
		}
	}

	monthly := make(map[string]int)
	for op, n := range trueCount {
		monthly[opMonth[op]] += n
	}

	out := make([]MonthTotal, 0, len(monthly))
	for m, n := range monthly {
		out = append(out, MonthTotal{Month: m, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

type MonthAttendance struct {
	Year      string `json:"year"`
	Month     string `json:"month"`
	Count     int    `json:"count"`
	UnitTotal int    `json:"unit_total"`
	Percent   int    `json:"percent"`
}

// MonthlyAttendance divides the player's row count per month by the unit's
// estimated operation count. A month missing from unit falls back to the
// player's own count, which reads as 100%.
func MonthlyAttendance(playerRecords []domain.OperationRecord, unit []MonthTotal) []MonthAttendance {
	unitByMonth := make(map[string]int, len(unit))
	for _, m := range unit {
		unitByMonth[m.Month] = m.Total
	}

	counts := make(map[string]int)
	for _, r := range playerRecords {
		counts[r.Operation().Month()]++
	}

	out := make([]MonthAttendance, 0, len(counts))
	for month, n := range counts {
		total, ok := unitByMonth[month]
		if !ok || total == 0 {
			total = n
		}
		ma := MonthAttendance{Count: n, UnitTotal: total, Percent: percent(n, total)}
		if len(month) == 7 {
			ma.Year, ma.Month = month[:4], month[5:]
		} else {
			ma.Year = month
		}
		out = append(out, ma)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}
