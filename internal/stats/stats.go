// Package stats computes every read-side view over operation records. All
// functions are pure: they take the rows a query loaded and recompute from
// scratch, so results stay correct after any rename, purge or correction.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/names"
)

// Standing is one player's line on the aggregated scoreboard.
type Standing struct {
	Name        string `json:"name"`
	OpsAttended int    `json:"ops_attended"`
	domain.Stats
}

// GroupStanding aggregates players sharing a surname (family) or forename
// (twins).
type GroupStanding struct {
	Name        string `json:"name"`
	Members     int    `json:"members"`
	OpsAttended int    `json:"ops_attended"`
	domain.Stats
}

type Profile struct {
	Name                string `json:"name"`
	OperationsAttended  int    `json:"operations_attended"`
	OperationsThisMonth int    `json:"operations_this_month"`
	OperationsThisYear  int    `json:"operations_this_year"`
	domain.Stats
}

// FilterByDatePrefix keeps rows whose date starts with prefix ("2026" or
// "2026-01"). An empty prefix keeps everything.
func FilterByDatePrefix(records []domain.OperationRecord, prefix string) []domain.OperationRecord {
	if prefix == "" {
		return records
	}
	var out []domain.OperationRecord
	for _, r := range records {
		if strings.HasPrefix(r.OperationDate, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// Scoreboard sums every player's counters and counts distinct operations
// attended. Rows come back highest score first.
func Scoreboard(records []domain.OperationRecord) []Standing {
	type acc struct {
		stats domain.Stats
		ops   map[string]struct{}
	}
	byName := make(map[string]*acc)
	var order []string

	for _, r := range records {
		a, ok := byName[r.PlayerName]
		if !ok {
			a = &acc{ops: make(map[string]struct{})}
			byName[r.PlayerName] = a
			order = append(order, r.PlayerName)
		}
		a.stats.Add(r.Stats)
		a.ops[r.Operation().Key()] = struct{}{}
	}

	out := make([]Standing, 0, len(order))
	for _, name := range order {
		a := byName[name]
		out = append(out, Standing{Name: name, OpsAttended: len(a.ops), Stats: a.stats})
	}
	SortStandings(out, CategoryScore)
	return out
}

// Families groups players by their last name token.
func Families(records []domain.OperationRecord) []GroupStanding {
	return groupBy(records, names.LastToken)
}

// Twins groups players by their first name token.
func Twins(records []domain.OperationRecord) []GroupStanding {
	return groupBy(records, names.FirstToken)
}

// groupBy emits only groups holding two or more distinct player names.
func groupBy(records []domain.OperationRecord, key func(string) string) []GroupStanding {
	type acc struct {
		stats   domain.Stats
		members map[string]struct{}
		ops     map[string]struct{}
	}
	groups := make(map[string]*acc)
	var order []string

	for _, r := range records {
		k := key(r.PlayerName)
		if k == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &acc{members: make(map[string]struct{}), ops: make(map[string]struct{})}
			groups[k] = g
			order = append(order, k)
		}
		g.members[r.PlayerName] = struct{}{}
		g.ops[r.Operation().Key()] = struct{}{}
		g.stats.Add(r.Stats)
	}

	var out []GroupStanding
	for _, k := range order {
		g := groups[k]
		if len(g.members) < 2 {
			continue
		}
		out = append(out, GroupStanding{
			Name:        k,
			Members:     len(g.members),
			OpsAttended: len(g.ops),
			Stats:       g.stats,
		})
	}
	SortGroups(out, CategoryScore)
	return out
}

// BuildProfile summarises one player's rows. Operation counts are distinct
// operations, bucketed by calendar month and year of now.
func BuildProfile(name string, records []domain.OperationRecord, now time.Time) Profile {
	monthPrefix := now.Format("2006-01")
	yearPrefix := now.Format("2006")

	p := Profile{Name: name}
	all := make(map[string]struct{})
	month := make(map[string]struct{})
	year := make(map[string]struct{})

	for _, r := range records {
		p.Stats.Add(r.Stats)
		key := r.Operation().Key()
		all[key] = struct{}{}
		if strings.HasPrefix(r.OperationDate, monthPrefix) {
			month[key] = struct{}{}
		}
		if strings.HasPrefix(r.OperationDate, yearPrefix) {
			year[key] = struct{}{}
		}
	}

	p.OperationsAttended = len(all)
	p.OperationsThisMonth = len(month)
	p.OperationsThisYear = len(year)
	return p
}

// Operations lists the distinct operations in records, newest first. Same
// day operations order by type descending so numbered repeats ("Main
// Operation 2") precede the first run.
func Operations(records []domain.OperationRecord) []domain.Operation {
	seen := make(map[string]struct{})
	var ops []domain.Operation
	for _, r := range records {
		op := r.Operation()
		if _, ok := seen[op.Key()]; ok {
			continue
		}
		seen[op.Key()] = struct{}{}
		ops = append(ops, op)
	}
	sortNewestFirst(ops)
	return ops
}

func sortNewestFirst(ops []domain.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Date != ops[j].Date {
			return ops[i].Date > ops[j].Date
		}
		return ops[i].Type > ops[j].Type
	})
}

type InactivePlayer struct {
	Name     string `json:"player_name"`
	LastSeen string `json:"last_seen"`
}

// Inactive returns players whose latest operation date is on or before
// threshold (YYYY-MM-DD), longest absent first.
func Inactive(records []domain.OperationRecord, threshold string) []InactivePlayer {
	last := make(map[string]string)
	for _, r := range records {
		if r.OperationDate > last[r.PlayerName] {
			last[r.PlayerName] = r.OperationDate
		}
	}

	var out []InactivePlayer
	for name, seen := range last {
		if seen <= threshold {
			out = append(out, InactivePlayer{Name: name, LastSeen: seen})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen < out[j].LastSeen
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
