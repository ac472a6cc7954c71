package repository

import (
	"context"
	"path/filepath"
	"testing"
	"unit-tracker/internal/database"
	"unit-tracker/internal/db"
	"unit-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *RecordRepository {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewRecordRepository(sqlDB, db.New(sqlDB), zerolog.Nop())
}

func raw(name string, inf, deaths int) domain.RawRecord {
	return domain.RawRecord{
		Name: name,
		Rank: 1,
		Stats: domain.Stats{
			InfKills: inf,
			SoftVeh:  2,
			ArmorVeh: 1,
			Deaths:   deaths,
			Score:    domain.ComputeScore(inf, 2, 1, 0),
		},
	}
}

var mainOp = domain.Operation{Date: "2026-01-07", Type: "Main Operation"}

func TestInsertManyAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ids, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 10, 3), raw("Jane Doe", 20, 1)}, mainOp)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	rec, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "John Smith", rec.PlayerName)
	assert.Equal(t, mainOp, rec.Operation())
	assert.Equal(t, 17, rec.Score)

	byOp, err := repo.FindByOperation(ctx, mainOp)
	require.NoError(t, err)
	require.Len(t, byOp, 2)
	assert.Equal(t, "Jane Doe", byOp[0].PlayerName, "highest score first")

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByPlayer_ExactAndSubstring(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 1, 0), raw("Johnny Smithers", 1, 0)}, mainOp)
	require.NoError(t, err)

	exact, err := repo.FindByPlayer(ctx, "John Smith", true)
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	partial, err := repo.FindByPlayer(ctx, "smith", false)
	require.NoError(t, err)
	assert.Len(t, partial, 2)
}

func TestExistsExact(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 10, 3)}, mainOp)
	require.NoError(t, err)

	dup, err := repo.ExistsExact(ctx, mainOp, raw("John Smith", 10, 3))
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = repo.ExistsExact(ctx, mainOp, raw("John Smith", 10, 4))
	require.NoError(t, err)
	assert.False(t, dup, "different deaths is not a duplicate")

	dup, err = repo.ExistsExact(ctx, domain.Operation{Date: "2026-01-07", Type: "Main Operation 2"}, raw("John Smith", 10, 3))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestUpdateFields_PartialUpdatePreservesOthers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ids, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 10, 3)}, mainOp)
	require.NoError(t, err)
	before, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)

	deaths := 5
	n, err := repo.UpdateFields(ctx, ids[0], domain.RecordUpdate{Deaths: &deaths})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 5, after.Deaths)
	assert.Equal(t, before.InfKills, after.InfKills)
	assert.Equal(t, before.SoftVeh, after.SoftVeh)
	assert.Equal(t, before.ArmorVeh, after.ArmorVeh)
	assert.Equal(t, before.Air, after.Air)
	assert.Equal(t, before.Score, after.Score)

	n, err = repo.UpdateFields(ctx, 9999, domain.RecordUpdate{Deaths: &deaths})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenameDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	other := domain.Operation{Date: "2026-01-08", Type: "Incursion"}
	_, err := repo.InsertMany(ctx, []domain.RawRecord{raw("Mosk Pius", 1, 0), raw("  ", 1, 0)}, mainOp)
	require.NoError(t, err)
	_, err = repo.InsertMany(ctx, []domain.RawRecord{raw("Mosk Pius", 2, 0), raw("Moss Caessian", 3, 0)}, other)
	require.NoError(t, err)

	n, err := repo.RenamePlayer(ctx, "Mosk Pius", "Moss Caessian")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := repo.FindByPlayer(ctx, "Mosk Pius", true)
	require.NoError(t, err)
	assert.Empty(t, left)

	n, err = repo.PurgeBlankNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByOperation(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteByPlayer(ctx, "Nobody Here")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateScores(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ids, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 10, 3), raw("Jane Doe", 1, 0)}, mainOp)
	require.NoError(t, err)

	n, err := repo.UpdateScores(ctx, map[int64]int{ids[0]: 99, ids[1]: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rec, err := repo.FindByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Score)
}

func TestSearchesAndOperations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 1, 0), raw("Jane Doe", 1, 0)}, mainOp)
	require.NoError(t, err)
	_, err = repo.InsertMany(ctx, []domain.RawRecord{raw("John Smith", 1, 0)}, domain.Operation{Date: "2026-02-01", Type: "Incursion"})
	require.NoError(t, err)
	_, err = repo.InsertMany(ctx, []domain.RawRecord{raw("Under_Score", 1, 0)}, domain.Operation{Date: "2025-12-31", Type: "Incursion"})
	require.NoError(t, err)

	names, err := repo.SearchPlayerNames(ctx, "jo", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"John Smith"}, names)

	// Underscore is a literal, not a LIKE wildcard.
	names, err = repo.SearchPlayerNames(ctx, "r_s", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"Under_Score"}, names)

	inOp, err := repo.SearchPlayersInOperation(ctx, mainOp, "doe", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, inOp)

	recent, err := repo.RecentOperations(ctx, 25)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "2026-02-01", recent[0].Date)

	found, err := repo.SearchOperations(ctx, "main", 25)
	require.NoError(t, err)
	assert.Equal(t, []domain.Operation{mainOp}, found)

	ranged, err := repo.OperationsByDateRange(ctx, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 2, ranged[0].Players)

	jan, err := repo.ByDatePrefix(ctx, "2026-01")
	require.NoError(t, err)
	assert.Len(t, jan, 2)

	all, err := repo.ByDatePrefix(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	distinct, err := repo.DistinctPlayerNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"John Smith", "Jane Doe", "Under_Score"}, distinct)

	rec, err := repo.FindPlayerInOperation(ctx, mainOp, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.PlayerName)

	_, err = repo.FindPlayerInOperation(ctx, mainOp, "Nobody Here")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertMany_RollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.ExecContext(ctx, `
CREATE TRIGGER reject_saboteur BEFORE INSERT ON scoreboards
WHEN NEW.player_name = 'Saboteur'
BEGIN
	SELECT RAISE(ABORT, 'rejected');
END`)
	require.NoError(t, err)

	batch := []domain.RawRecord{raw("John Smith", 10, 3), raw("Saboteur", 1, 0), raw("Jane Doe", 20, 1)}
	ids, err := repo.InsertMany(ctx, batch, mainOp)
	require.Error(t, err)
	assert.Nil(t, ids)

	stored, err := repo.FindByOperation(ctx, mainOp)
	require.NoError(t, err)
	assert.Empty(t, stored)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
