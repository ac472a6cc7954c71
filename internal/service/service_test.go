package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unit-tracker/internal/config"
	"unit-tracker/internal/database"
	"unit-tracker/internal/db"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	cfg      *config.Config
	repo     *repository.RecordRepository
	scores   *ScoreService
	identity *IdentityService
	ingest   *IngestService
	stats    *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	sqlDB, err := database.Open(filepath.Join(dir, "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cfg := &config.Config{Timezone: tz, BackupDir: filepath.Join(dir, "backups")}

	log := zerolog.Nop()
	repo := repository.NewRecordRepository(sqlDB, db.New(sqlDB), log)
	scores := NewScoreService(repo, log)
	return &testEnv{
		cfg:      cfg,
		repo:     repo,
		scores:   scores,
		identity: NewIdentityService(repo, scores, log),
		ingest:   NewIngestService(repo, log),
		stats:    NewStatsService(repo, cfg, log),
	}
}

func rawRecord(name string, inf, soft, armor, air, deaths int) domain.RawRecord {
	return domain.RawRecord{
		Name: name,
		Rank: 1,
		Stats: domain.Stats{
			InfKills: inf,
			SoftVeh:  soft,
			ArmorVeh: armor,
			Air:      air,
			Deaths:   deaths,
			Score:    domain.ComputeScore(inf, soft, armor, air),
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var johnSmithOp = domain.Operation{Date: "2026-01-07", Type: "Main Operation"}

func TestScoreService_RepairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	bad := rawRecord("John Smith", 10, 2, 1, 0, 3)
	bad.Score = 99
	worse := rawRecord("Jane Doe", 0, 0, 0, 2, 0)
	worse.Score = 0
	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{bad, worse, rawRecord("Solo Wolff", 1, 0, 0, 0, 0)}, johnSmithOp)
	require.NoError(t, err)

	n, err := env.scores.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.scores.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec, err := env.repo.FindPlayerInOperation(ctx, johnSmithOp, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, 17, rec.Score)
}

func TestScoreService_RepairDir(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	writeFile(t, dir, "Main_Operation_2026-01-07.json",
		`[{"name":"John Smith","rank":1,"inf_kills":10,"soft_veh":2,"armor_veh":1,"air":0,"deaths":3,"score":5}]`)
	writeFile(t, dir, "Incursion_2026-01-08.json",
		`[{"name":"Jane Doe","rank":1,"inf_kills":1,"soft_veh":0,"armor_veh":0,"air":0,"deaths":0,"score":1}]`)
	writeFile(t, dir, "broken.json", `{"not": "an array"}`)
	writeFile(t, dir, "notes.txt", `ignored`)

	report, err := env.scores.RepairDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, report.FilesScanned)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, 1, report.PlayersFixed)
	assert.Equal(t, []string{"broken.json"}, report.Failed)

	data, err := os.ReadFile(filepath.Join(dir, "Main_Operation_2026-01-07.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"score": 17`)
	assert.Contains(t, string(data), "\n    {", "four space indent")
}

func TestIdentityService_RenameRewritesEveryRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	other := domain.Operation{Date: "2026-01-08", Type: "Incursion"}
	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord("Mosk Pius", 5, 0, 0, 0, 1)}, johnSmithOp)
	require.NoError(t, err)
	_, err = env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord("Mosk Pius", 3, 0, 0, 0, 1), rawRecord("Moss Caessian", 4, 0, 0, 0, 0)}, other)
	require.NoError(t, err)

	n, err := env.identity.Rename(ctx, "Mosk Pius", "Moss Caessian")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := env.repo.FindByPlayer(ctx, "Mosk Pius", true)
	require.NoError(t, err)
	assert.Empty(t, left)

	// Both rows for the second operation now sit under one name.
	merged, err := env.repo.FindByPlayer(ctx, "Moss Caessian", true)
	require.NoError(t, err)
	assert.Len(t, merged, 3)

	n, err = env.identity.Rename(ctx, "Nobody Here", "Someone Else")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIdentityService_Maintain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	wrongScore := rawRecord("Jane Doe", 3, 0, 0, 0, 0)
	wrongScore.Score = 0
	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{
		rawRecord("Mosk Pius", 5, 0, 0, 0, 1),
		rawRecord("Player1 Name", 1, 0, 0, 0, 0),
		rawRecord("Cher", 1, 0, 0, 0, 0),
		rawRecord("John Paul Jones", 1, 0, 0, 0, 0),
		rawRecord("Admin Bot", 1, 0, 0, 0, 0),
		wrongScore,
	}, johnSmithOp)
	require.NoError(t, err)

	dictionary := []RenameRule{
		{From: "Mosk Pius", To: "Moss Caessian"},
		{From: "Not Present", To: "Anyone Else"},
	}
	report, err := env.identity.Maintain(ctx, dictionary, []string{"admin"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.DictionarySize)
	assert.Equal(t, 1, report.NamesCorrected)
	assert.Equal(t, 1, report.RowsMerged)
	assert.Equal(t, 4, report.NamesPurged)
	assert.Equal(t, 4, report.RowsDeleted)
	assert.Equal(t, 1, report.ScoresFixed)
	assert.False(t, report.Clean())

	remaining, err := env.repo.DistinctPlayerNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Moss Caessian", "Jane Doe"}, remaining)

	again, err := env.identity.Maintain(ctx, dictionary, []string{"admin"})
	require.NoError(t, err)
	assert.True(t, again.Clean())
}

func TestParseDictionary(t *testing.T) {
	rules, err := ParseDictionary([]byte(`{
	"Mosk Pius": "Moss Caessian",
	"Zach Wolf": "Zacharia Wolff"
}`))
	require.NoError(t, err)
	assert.Equal(t, []RenameRule{
		{From: "Mosk Pius", To: "Moss Caessian"},
		{From: "Zach Wolf", To: "Zacharia Wolff"},
	}, rules)

	_, err = ParseDictionary([]byte(`["Mosk Pius", "Moss Caessian"]`))
	assert.ErrorIs(t, err, domain.ErrMalformedDictionary)

	rules, err = ParseDictionary([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestIdentityService_MaintainFromFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	dir := t.TempDir()

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{
		rawRecord("Mosk Pius", 5, 0, 0, 0, 1),
		rawRecord("Zeus Admin", 1, 0, 0, 0, 0),
	}, johnSmithOp)
	require.NoError(t, err)

	dictionary := writeFile(t, dir, "rename.json", `{"Mosk Pius": "Moss Caessian"}`)
	blacklist := writeFile(t, dir, "blacklist.json", `["zeus"]`)

	report, err := env.identity.MaintainFromFiles(ctx, dictionary, blacklist)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowsMerged)
	assert.Equal(t, 1, report.RowsDeleted)

	report, err = env.identity.MaintainFromFiles(ctx, filepath.Join(dir, "none.json"), filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Zero(t, report.DictionarySize)
	assert.True(t, report.Clean())
}

func TestLoadBlacklist(t *testing.T) {
	dir := t.TempDir()

	words, err := LoadBlacklist(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, words)

	path := writeFile(t, dir, "blacklist.json", `["admin", "Zeus"]`)
	words, err = LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "Zeus"}, words)

	path = writeFile(t, dir, "bad.json", `{"admin": true}`)
	_, err = LoadBlacklist(path)
	assert.Error(t, err)
}

func TestIdentityService_RenameMatchesStoredNameExactly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord(" Padded Name ", 1, 0, 0, 0, 0)}, johnSmithOp)
	require.NoError(t, err)

	n, err := env.identity.Rename(ctx, "Padded Name", "Other Name")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = env.identity.Rename(ctx, " Padded Name ", "Padded Name")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := env.repo.DistinctPlayerNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Padded Name"}, stored)
}

func TestIdentityService_MaintainReturnsStorageErrors(t *testing.T) {
	env := newTestEnv(t)

	wrongScore := rawRecord("Jane Doe", 3, 0, 0, 0, 0)
	wrongScore.Score = 0
	_, err := env.repo.InsertMany(context.Background(), []domain.RawRecord{wrongScore}, johnSmithOp)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := env.identity.Maintain(ctx, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestParseDictionary_RepeatedKeyKeepsLastValue(t *testing.T) {
	rules, err := ParseDictionary([]byte(`{
	"Mosk Pius": "Moss Caesian",
	"Zach Wolf": "Zacharia Wolff",
	"Mosk Pius": "Moss Caessian"
}`))
	require.NoError(t, err)
	assert.Equal(t, []RenameRule{
		{From: "Mosk Pius", To: "Moss Caessian"},
		{From: "Zach Wolf", To: "Zacharia Wolff"},
	}, rules)
}
