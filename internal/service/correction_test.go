package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"
	"unit-tracker/internal/api"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/stats"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAck struct {
	ids []string
}

func (a *recordingAck) Acknowledge(_ context.Context, messageID string) error {
	a.ids = append(a.ids, messageID)
	return nil
}

func author(name string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return name, nil }
}

func newTestCorrections(env *testEnv) *CorrectionService {
	return NewCorrectionService(env.repo, env.identity, nil, env.cfg, zerolog.Nop())
}

func TestParseThreadTitle(t *testing.T) {
	op, err := ParseThreadTitle("Main Operation: 2026-01-07")
	require.NoError(t, err)
	assert.Equal(t, johnSmithOp, op)
	assert.Equal(t, "Main Operation: 2026-01-07", ThreadTitle(op))

	for _, bad := range []string{
		"Main Operation 2026-01-07",
		"Main Operation: Jan 7",
		"Main: Operation: 2026-01-07",
		": 2026-01-07",
	} {
		_, err := ParseThreadTitle(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidThreadTitle, bad)
	}
}

func TestDetectOperationType(t *testing.T) {
	opType, ok := DetectOperationType("Main Op screenshots, 3 of them")
	require.True(t, ok)
	assert.Equal(t, "Main Operation", opType)

	opType, ok = DetectOperationType("incursion tonight")
	require.True(t, ok)
	assert.Equal(t, "Incursion", opType)

	_, ok = DetectOperationType("gg everyone")
	assert.False(t, ok)

	assert.Equal(t, "Main Operation", NumberedOperation("Main Operation", 1))
	assert.Equal(t, "Main Operation 2", NumberedOperation("Main Operation", 2))
}

// Ingest, re-ingest and a death discount for one player, checked through
// the stored row and the profile view.
func TestCorrection_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	corrections := newTestCorrections(env)

	payload := []byte(`[{"rank":1,"name":"John Smith","inf_kills":10,"soft_veh":2,"armor_veh":1,"air":0,"deaths":3,"score":17}]`)
	report, err := env.ingest.IngestJSON(ctx, johnSmithOp, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)

	profile, err := env.stats.Profile(ctx, "john")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", profile.Name)
	assert.Equal(t, 1, profile.OperationsAttended)
	assert.Equal(t, 17, profile.Score)
	assert.Equal(t, 1, profile.Streak.Length)

	report, err = env.ingest.IngestJSON(ctx, johnSmithOp, payload)
	require.NoError(t, err)
	assert.Zero(t, report.Added)
	assert.Equal(t, 1, report.Duplicates)

	ack := &recordingAck{}
	result, err := corrections.Apply(ctx, johnSmithOp, []ThreadMessage{
		{ID: "m1", Content: "Death discount: 1", Author: author("John Smith (Medic) BT")},
	}, ack)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscountsApplied)
	assert.Empty(t, result.FailedDiscounts)
	assert.Equal(t, []string{"m1"}, ack.ids)

	rec, err := env.repo.FindPlayerInOperation(ctx, johnSmithOp, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Deaths)
	assert.Equal(t, 10, rec.InfKills)
	assert.Equal(t, 2, rec.SoftVeh)
	assert.Equal(t, 1, rec.ArmorVeh)
	assert.Equal(t, 0, rec.Air)
	assert.Equal(t, 17, rec.Score)

	require.Len(t, result.Snapshot, 1)
	assert.Equal(t, 2, result.Snapshot[0].Deaths)
}

func TestCorrection_ApplyDirectives(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	corrections := newTestCorrections(env)

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{
		rawRecord("John Smith", 10, 2, 1, 0, 3),
		rawRecord("Jane Doh", 4, 0, 0, 0, 2),
	}, johnSmithOp)
	require.NoError(t, err)

	ack := &recordingAck{}
	report, err := corrections.Apply(ctx, johnSmithOp, []ThreadMessage{
		{ID: "bot", Content: "Death discount: 3", Bot: true, Author: author("John Smith")},
		{ID: "rename", Content: `Rename: "Jane Doh" "Jane Doe"`},
		{ID: "too-many", Content: "death discount: 10", Author: author("Jane Doe")},
		{ID: "stranger", Content: "Death discount: 1", Author: author("Someone Else")},
		{ID: "chatter", Content: "thanks all"},
	}, ack)
	require.NoError(t, err)

	assert.Equal(t, 1, report.RenamesApplied)
	assert.Equal(t, 1, report.DiscountsApplied)
	assert.Equal(t, []string{"Someone Else"}, report.FailedDiscounts)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"rename", "too-many"}, ack.ids)

	jane, err := env.repo.FindPlayerInOperation(ctx, johnSmithOp, "Jane Doe")
	require.NoError(t, err)
	assert.Zero(t, jane.Deaths, "deaths never go below zero")

	john, err := env.repo.FindPlayerInOperation(ctx, johnSmithOp, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, 3, john.Deaths, "bot messages are ignored")
}

func TestCorrection_ExportsSnapshotFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	corrections := newTestCorrections(env)

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord("John Smith", 10, 2, 1, 0, 3)}, johnSmithOp)
	require.NoError(t, err)

	report, err := corrections.Apply(ctx, johnSmithOp, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.ExportedTo, 1)
	assert.Empty(t, report.ExportErrors)

	data, err := os.ReadFile(report.ExportedTo[0])
	require.NoError(t, err)
	var exported []domain.RawRecord
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "John Smith", exported[0].Name)

	// The snapshot is a valid import file for the same operation.
	op, ok := ParseFilename(report.ExportedTo[0])
	require.True(t, ok)
	assert.Equal(t, johnSmithOp, op)
}

type fakeThreads struct {
	channel  api.DiscordChannel
	messages []api.DiscordMessage
	members  map[string]api.DiscordMember
	reacted  []string
}

func (f *fakeThreads) GetChannel(_ context.Context, channelID string) (*api.DiscordChannel, error) {
	if channelID != f.channel.ID {
		return nil, &api.APIError{Status: 404, Body: "Unknown Channel"}
	}
	return &f.channel, nil
}

func (f *fakeThreads) GetMessages(context.Context, string, int) ([]api.DiscordMessage, error) {
	return f.messages, nil
}

func (f *fakeThreads) GetMember(_ context.Context, _, userID string) (*api.DiscordMember, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return &m, nil
}

func (f *fakeThreads) React(_ context.Context, _, messageID, emoji string) error {
	f.reacted = append(f.reacted, messageID+emoji)
	return nil
}

func TestCorrection_RunForThread(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	corrections := newTestCorrections(env)

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{
		rawRecord("John Smith", 10, 2, 1, 0, 3),
		rawRecord("Jane Doe", 4, 0, 0, 0, 2),
	}, johnSmithOp)
	require.NoError(t, err)

	now := time.Date(2026, time.January, 8, 1, 0, 0, 0, time.UTC)
	threads := &fakeThreads{
		channel: api.DiscordChannel{ID: "t1", Name: "Main Operation: 2026-01-07", GuildID: "g1"},
		messages: []api.DiscordMessage{
			{ID: "1", Content: "Death discount: 1", Timestamp: now, Author: api.DiscordUser{ID: "u1", Username: "jsmith"}},
			{ID: "2", Content: "Death discount: 2", Timestamp: now, Author: api.DiscordUser{ID: "u2", Username: "jdoe", GlobalName: "Jane Doe"}},
		},
		members: map[string]api.DiscordMember{"u1": {Nick: "John Smith (Medic)"}},
	}
	corrections.threads = threads

	report, err := corrections.RunForThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, johnSmithOp, report.Operation)
	assert.Equal(t, 2, report.DiscountsApplied)
	assert.Equal(t, []string{"1" + ackEmoji, "2" + ackEmoji}, threads.reacted)

	jane, err := env.repo.FindPlayerInOperation(ctx, johnSmithOp, "Jane Doe")
	require.NoError(t, err)
	assert.Zero(t, jane.Deaths)

	threads.channel.Name = "general chat"
	_, err = corrections.RunForThread(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrInvalidThreadTitle)
}

func TestCorrection_RunForThreadWithoutDiscord(t *testing.T) {
	env := newTestEnv(t)
	_, err := newTestCorrections(env).RunForThread(context.Background(), "t1")
	assert.Error(t, err)
}

func TestStatsService_ScoreboardAndRanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.stats.now = func() time.Time { return time.Date(2026, time.February, 20, 12, 0, 0, 0, time.UTC) }

	_, err := env.repo.InsertMany(ctx, []domain.RawRecord{
		rawRecord("John Smith", 10, 2, 1, 0, 3),
		rawRecord("Jane Smith", 20, 0, 0, 0, 1),
		rawRecord("Solo Wolff", 1, 0, 0, 0, 9),
	}, johnSmithOp)
	require.NoError(t, err)
	_, err = env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord("Jane Smith", 1, 0, 0, 0, 0)}, domain.Operation{Date: "2026-02-01", Type: "Incursion"})
	require.NoError(t, err)

	view, err := env.stats.Scoreboard(ctx, "2026-01", GroupPlayers, stats.CategoryScore)
	require.NoError(t, err)
	require.Len(t, view.Players, 3)
	assert.Equal(t, "Jane Smith", view.Players[0].Name)
	assert.Equal(t, 20, view.Players[0].Score)

	view, err = env.stats.Scoreboard(ctx, "", GroupFamilies, stats.CategoryOps)
	require.NoError(t, err)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "Smith", view.Groups[0].Name)

	_, err = env.stats.Scoreboard(ctx, "", "squads", stats.CategoryScore)
	assert.Error(t, err)

	ranged, err := env.stats.OperationsBetween(ctx, "2026-01-01", "2026-02-28")
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	_, err = env.stats.OperationsBetween(ctx, "2026-02-28", "2026-01-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	_, err = env.stats.OperationsBetween(ctx, "yesterday", "2026-01-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	inactive, err := env.stats.Inactive(ctx, 30)
	require.NoError(t, err)
	names := make([]string, len(inactive))
	for i, p := range inactive {
		names[i] = p.Name
	}
	assert.ElementsMatch(t, []string{"John Smith", "Solo Wolff"}, names)

	_, err = env.stats.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.stats.Operation(ctx, domain.Operation{Date: "2020-01-01", Type: "Incursion"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatsService_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ids, err := env.repo.InsertMany(ctx, []domain.RawRecord{rawRecord("John Smith", 10, 2, 1, 0, 3)}, johnSmithOp)
	require.NoError(t, err)

	air := 2
	rec, err := env.stats.UpdateRecord(ctx, ids[0], domain.RecordUpdate{Air: &air})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Air)
	assert.Equal(t, 3, rec.Deaths)

	_, err = env.stats.UpdateRecord(ctx, 9999, domain.RecordUpdate{Air: &air})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
