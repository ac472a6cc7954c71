package stats

import (
	"errors"
	"fmt"
	"sort"
	"unit-tracker/internal/domain"
)

// Category names a sortable scoreboard column.
type Category string

const (
	CategoryOps      Category = "ops_attended"
	CategoryInfantry Category = "inf_kills"
	CategorySoftVeh  Category = "soft_veh"
	CategoryArmorVeh Category = "armor_veh"
	CategoryAir      Category = "air"
	CategoryDeaths   Category = "deaths"
	CategoryScore    Category = "score"
)

var ErrUnknownCategory = errors.New("unknown sort category")

// StatCategories are the per-row counters tracked by global records.
var StatCategories = []Category{
	CategoryInfantry,
	CategorySoftVeh,
	CategoryArmorVeh,
	CategoryAir,
	CategoryDeaths,
	CategoryScore,
}

func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryScore, nil
	}
	c := Category(s)
	if c == CategoryOps {
		return c, nil
	}
	for _, known := range StatCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Value reads the category from a set of counters. ops is used for
// CategoryOps only.
func (c Category) Value(s domain.Stats, ops int) int {
	switch c {
	case CategoryOps:
		return ops
	case CategoryInfantry:
		return s.InfKills
	case CategorySoftVeh:
		return s.SoftVeh
	case CategoryArmorVeh:
		return s.ArmorVeh
	case CategoryAir:
		return s.Air
	case CategoryDeaths:
		return s.Deaths
	default:
		return s.Score
	}
}

// SortStandings orders rows by category descending, name ascending on ties.
func SortStandings(rows []Standing, c Category) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := c.Value(rows[i].Stats, rows[i].OpsAttended), c.Value(rows[j].Stats, rows[j].OpsAttended)
		if vi != vj {
			return vi > vj
		}
		return rows[i].Name < rows[j].Name
	})
}

func SortGroups(rows []GroupStanding, c Category) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := c.Value(rows[i].Stats, rows[i].OpsAttended), c.Value(rows[j].Stats, rows[j].OpsAttended)
		if vi != vj {
			return vi > vj
		}
		return rows[i].Name < rows[j].Name
	})
}
