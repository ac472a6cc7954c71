package stats

import (
	"testing"
	"time"
	"unit-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int64, date, opType, name string, inf, deaths int) domain.OperationRecord {
	return domain.OperationRecord{
		ID:            id,
		OperationDate: date,
		OperationType: opType,
		PlayerName:    name,
		Stats: domain.Stats{
			InfKills: inf,
			Deaths:   deaths,
			Score:    domain.ComputeScore(inf, 0, 0, 0),
		},
	}
}

func TestScoreboard_CountsDistinctOperations(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-01-07", "Main Operation", "John Smith", 10, 3),
		rec(2, "2026-01-07", "Main Operation", "John Smith", 4, 1),
		rec(3, "2026-01-08", "Incursion", "John Smith", 2, 0),
		rec(4, "2026-01-08", "Incursion", "Jane Doe", 20, 5),
	}

	board := Scoreboard(records)
	require.Len(t, board, 2)

	assert.Equal(t, "Jane Doe", board[0].Name)
	assert.Equal(t, 20, board[0].Score)
	assert.Equal(t, 1, board[0].OpsAttended)

	assert.Equal(t, "John Smith", board[1].Name)
	assert.Equal(t, 16, board[1].InfKills)
	assert.Equal(t, 4, board[1].Deaths)
	assert.Equal(t, 2, board[1].OpsAttended)
}

func TestFilterByDatePrefix(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2025-12-31", "Incursion", "A B", 1, 0),
		rec(2, "2026-01-07", "Main Operation", "A B", 1, 0),
		rec(3, "2026-02-01", "Incursion", "A B", 1, 0),
	}

	assert.Len(t, FilterByDatePrefix(records, ""), 3)
	assert.Len(t, FilterByDatePrefix(records, "2026"), 2)
	assert.Len(t, FilterByDatePrefix(records, "2026-01"), 1)
	assert.Empty(t, FilterByDatePrefix(records, "2024"))
}

func TestFamilies_Threshold(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-01-07", "Main Operation", "John Smith", 10, 0),
		rec(2, "2026-01-07", "Main Operation", "Jane Smith", 5, 0),
		rec(3, "2026-01-08", "Incursion", "John Smith", 1, 0),
		rec(4, "2026-01-08", "Incursion", "Solo Wolff", 50, 0),
	}

	families := Families(records)
	require.Len(t, families, 1)
	assert.Equal(t, "Smith", families[0].Name)
	assert.Equal(t, 2, families[0].Members)
	assert.Equal(t, 2, families[0].OpsAttended)
	assert.Equal(t, 16, families[0].InfKills)
}

func TestTwins_GroupsByFirstName(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-01-07", "Main Operation", "John Smith", 10, 0),
		rec(2, "2026-01-07", "Main Operation", "John Doe", 5, 0),
		rec(3, "2026-01-07", "Main Operation", "Jane Doe", 5, 0),
	}

	twins := Twins(records)
	require.Len(t, twins, 1)
	assert.Equal(t, "John", twins[0].Name)
	assert.Equal(t, 2, twins[0].Members)
}

func TestBuildProfile(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	records := []domain.OperationRecord{
		rec(1, "2025-11-02", "Main Operation", "John Smith", 3, 1),
		rec(2, "2026-01-07", "Main Operation", "John Smith", 3, 1),
		rec(3, "2026-02-01", "Incursion", "John Smith", 3, 1),
		rec(4, "2026-02-01", "Incursion", "John Smith", 3, 1),
	}

	p := BuildProfile("John Smith", records, now)
	assert.Equal(t, "John Smith", p.Name)
	assert.Equal(t, 3, p.OperationsAttended)
	assert.Equal(t, 2, p.OperationsThisYear)
	assert.Equal(t, 1, p.OperationsThisMonth)
	assert.Equal(t, 12, p.InfKills)
	assert.Equal(t, 4, p.Deaths)
}

func TestOperations_NewestFirst(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-01-07", "Main Operation", "A B", 1, 0),
		rec(2, "2026-01-08", "Incursion", "A B", 1, 0),
		rec(3, "2026-01-07", "Main Operation 2", "A B", 1, 0),
		rec(4, "2026-01-07", "Main Operation", "C D", 1, 0),
	}

	ops := Operations(records)
	assert.Equal(t, []domain.Operation{
		{Date: "2026-01-08", Type: "Incursion"},
		{Date: "2026-01-07", Type: "Main Operation 2"},
		{Date: "2026-01-07", Type: "Main Operation"},
	}, ops)
}

func TestCurrentStreak_StopsAtFirstGap(t *testing.T) {
	op := func(d string) domain.Operation { return domain.Operation{Date: d, Type: "Incursion"} }
	all := []domain.Operation{op("2026-01-05"), op("2026-01-04"), op("2026-01-03"), op("2026-01-02"), op("2026-01-01")}
	attended := []domain.Operation{op("2026-01-05"), op("2026-01-04"), op("2026-01-02"), op("2026-01-01")}

	s := CurrentStreak(all, attended)
	assert.Equal(t, 2, s.Length)
	assert.Equal(t, []domain.Operation{op("2026-01-05"), op("2026-01-04")}, s.Operations)
}

func TestCurrentStreak_MissedLatest(t *testing.T) {
	op := func(d string) domain.Operation { return domain.Operation{Date: d, Type: "Incursion"} }
	s := CurrentStreak([]domain.Operation{op("2026-01-02"), op("2026-01-01")}, []domain.Operation{op("2026-01-01")})
	assert.Equal(t, 0, s.Length)
	assert.Empty(t, s.Operations)
}

func TestTrueOperationsPerMonth_CountsDuplicatedPlayer(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-02-01", "Incursion", "Player X", 1, 0),
		rec(2, "2026-02-01", "Incursion", "Player X", 1, 0),
		rec(3, "2026-02-01", "Incursion", "Player Y", 1, 0),
		rec(4, "2026-02-01", "Incursion", "Player Z", 1, 0),
		rec(5, "2026-02-04", "Main Operation", "Player Y", 1, 0),
		rec(6, "2026-01-07", "Main Operation", "Player Y", 1, 0),
	}

	months := TrueOperationsPerMonth(records)
	assert.Equal(t, []MonthTotal{
		{Month: "2026-02", Total: 3},
		{Month: "2026-01", Total: 1},
	}, months)
}

func TestMonthlyAttendance(t *testing.T) {
	unit := []MonthTotal{{Month: "2026-02", Total: 3}}
	player := []domain.OperationRecord{
		rec(1, "2026-02-01", "Incursion", "A B", 1, 0),
		rec(2, "2026-02-04", "Main Operation", "A B", 1, 0),
		rec(3, "2026-01-07", "Main Operation", "A B", 1, 0),
	}

	got := MonthlyAttendance(player, unit)
	require.Len(t, got, 2)

	assert.Equal(t, MonthAttendance{Year: "2026", Month: "02", Count: 2, UnitTotal: 3, Percent: 67}, got[0])
	// January is unknown to the unit totals and falls back to the player's own count.
	assert.Equal(t, MonthAttendance{Year: "2026", Month: "01", Count: 1, UnitTotal: 1, Percent: 100}, got[1])
}

func TestRecords(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2026-01-07", "Main Operation", "John Smith", 10, 3),
		rec(2, "2026-01-07", "Main Operation", "Jane Doe", 10, 9),
		rec(3, "2026-01-07", "Main Operation", "Solo Wolff", 2, 0),
		rec(4, "2026-01-08", "Incursion", "John Smith", 4, 1),
		rec(5, "2026-01-09", "Incursion", "John Smith", 4, 1),
	}

	got := Records(records)
	require.Len(t, got.Records, len(StatCategories))

	inf := got.Records[0]
	assert.Equal(t, CategoryInfantry, inf.Category)
	assert.Equal(t, "John Smith", inf.Player)
	assert.Equal(t, 10, inf.Value)

	deaths := got.Records[4]
	assert.Equal(t, CategoryDeaths, deaths.Category)
	assert.Equal(t, "Jane Doe", deaths.Player)

	require.NotNil(t, got.Largest)
	assert.Equal(t, "2026-01-07", got.Largest.Date)
	assert.Equal(t, 3, got.Largest.Players)

	require.NotNil(t, got.Smallest)
	assert.Equal(t, "2026-01-08", got.Smallest.Date)
	assert.Equal(t, 1, got.Smallest.Players)

	assert.Equal(t, 3, got.Totals.Operations)
	assert.Equal(t, 3, got.Totals.Players)
	assert.Equal(t, 30, got.Totals.InfKills)
}

func TestRecords_Empty(t *testing.T) {
	got := Records(nil)
	assert.Empty(t, got.Records)
	assert.Nil(t, got.Largest)
	assert.Nil(t, got.Smallest)
}

func TestInactive(t *testing.T) {
	records := []domain.OperationRecord{
		rec(1, "2025-10-01", "Incursion", "Old Timer", 1, 0),
		rec(2, "2025-12-01", "Incursion", "Mid Way", 1, 0),
		rec(3, "2026-01-07", "Incursion", "Mid Way", 1, 0),
		rec(4, "2025-11-15", "Incursion", "Gone Quiet", 1, 0),
	}

	got := Inactive(records, "2025-12-01")
	assert.Equal(t, []InactivePlayer{
		{Name: "Old Timer", LastSeen: "2025-10-01"},
		{Name: "Gone Quiet", LastSeen: "2025-11-15"},
	}, got)
}

func TestSortStandings(t *testing.T) {
	rows := []Standing{
		{Name: "B", OpsAttended: 1, Stats: domain.Stats{Deaths: 4, Score: 10}},
		{Name: "A", OpsAttended: 5, Stats: domain.Stats{Deaths: 4, Score: 3}},
		{Name: "C", OpsAttended: 2, Stats: domain.Stats{Deaths: 9, Score: 1}},
	}

	SortStandings(rows, CategoryOps)
	assert.Equal(t, []string{"A", "C", "B"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})

	SortStandings(rows, CategoryDeaths)
	assert.Equal(t, []string{"C", "A", "B"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryScore, c)

	c, err = ParseCategory("air")
	require.NoError(t, err)
	assert.Equal(t, CategoryAir, c)

	_, err = ParseCategory("headshots")
	assert.Error(t, err)
}

func TestCompare_FewerDeathsWins(t *testing.T) {
	a := Profile{Name: "A", OperationsAttended: 3, Stats: domain.Stats{InfKills: 10, Deaths: 2, Score: 10}}
	b := Profile{Name: "B", OperationsAttended: 3, Stats: domain.Stats{InfKills: 5, Deaths: 6, Score: 5}}

	cmp := Compare(a, b)
	byCat := make(map[Category]int)
	for _, r := range cmp.Results {
		byCat[r.Category] = r.Winner
	}

	assert.Equal(t, 0, byCat[CategoryOps])
	assert.Equal(t, 1, byCat[CategoryInfantry])
	assert.Equal(t, 1, byCat[CategoryDeaths])
	assert.Equal(t, 0, byCat[CategoryAir])
	assert.Equal(t, [2]int{3, 0}, cmp.Wins)
}
