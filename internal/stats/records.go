package stats

import (
	"sort"
	"unit-tracker/internal/domain"
)

// Record is the single highest value ever posted in one category.
type Record struct {
	Category  Category         `json:"category"`
	Player    string           `json:"player_name"`
	Operation domain.Operation `json:"operation"`
	Value     int              `json:"value"`
}

type UnitTotals struct {
	Operations int `json:"operations"`
	Players    int `json:"players"`
	domain.Stats
}

type UnitRecords struct {
	Records  []Record                 `json:"records"`
	Largest  *domain.OperationSummary `json:"largest_operation,omitempty"`
	Smallest *domain.OperationSummary `json:"smallest_operation,omitempty"`
	Totals   UnitTotals               `json:"totals"`
}

// Records scans every row once. Ties keep the first row encountered, so
// callers should pass rows in insertion order.
func Records(records []domain.OperationRecord) UnitRecords {
	var out UnitRecords
	if len(records) == 0 {
		out.Records = []Record{}
		return out
	}

	best := make([]Record, len(StatCategories))
	for i, c := range StatCategories {
		best[i] = Record{Category: c, Value: -1}
	}

	players := make(map[string]struct{})
	perOp := make(map[string]map[string]struct{})
	ops := make(map[string]domain.Operation)

	for _, r := range records {
		for i, c := range StatCategories {
			if v := c.Value(r.Stats, 0); v > best[i].Value {
				best[i] = Record{Category: c, Player: r.PlayerName, Operation: r.Operation(), Value: v}
			}
		}

		out.Totals.Stats.Add(r.Stats)
		players[r.PlayerName] = struct{}{}

		op := r.Operation()
		key := op.Key()
		if perOp[key] == nil {
			perOp[key] = make(map[string]struct{})
			ops[key] = op
		}
		perOp[key][r.PlayerName] = struct{}{}
	}

	out.Records = best
	out.Totals.Players = len(players)
	out.Totals.Operations = len(perOp)

	// Oldest first; strict comparison keeps the earliest on ties.
	ordered := make([]domain.Operation, 0, len(ops))
	for _, op := range ops {
		ordered = append(ordered, op)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		return ordered[i].Type < ordered[j].Type
	})

	for _, op := range ordered {
		n := len(perOp[op.Key()])
		if out.Largest == nil || n > out.Largest.Players {
			out.Largest = &domain.OperationSummary{Operation: op, Players: n}
		}
		if out.Smallest == nil || n < out.Smallest.Players {
			out.Smallest = &domain.OperationSummary{Operation: op, Players: n}
		}
	}
	return out
}

// Winner of one head-to-head category: 1 or 2, 0 on a tie.
type CategoryResult struct {
	Category Category `json:"category"`
	First    int      `json:"first"`
	Second   int      `json:"second"`
	Winner   int      `json:"winner"`
}

type Comparison struct {
	First   Profile          `json:"first"`
	Second  Profile          `json:"second"`
	Results []CategoryResult `json:"results"`
	Wins    [2]int           `json:"wins"`
}

// Compare puts two profiles head to head over operations attended and every
// stat category. Fewer deaths wins its category.
func Compare(a, b Profile) Comparison {
	cmp := Comparison{First: a, Second: b}
	cats := append([]Category{CategoryOps}, StatCategories...)

	for _, c := range cats {
		va := c.Value(a.Stats, a.OperationsAttended)
		vb := c.Value(b.Stats, b.OperationsAttended)

		res := CategoryResult{Category: c, First: va, Second: vb}
		switch {
		case va == vb:
		case (va > vb) != (c == CategoryDeaths):
			res.Winner = 1
		default:
			res.Winner = 2
		}
		if res.Winner > 0 {
			cmp.Wins[res.Winner-1]++
		}
		cmp.Results = append(cmp.Results, res)
	}
	return cmp
}
