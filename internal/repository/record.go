package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unit-tracker/internal/db"
	"unit-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// RecordRepository is the store of operation records. It enforces no
// uniqueness; duplicate suppression belongs to the ingestion layer.
type RecordRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRecordRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RecordRepository {
	return &RecordRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// InsertMany appends the batch for one operation in a single transaction and
// returns the new ids in batch order.
func (r *RecordRepository) InsertMany(ctx context.Context, records []domain.RawRecord, op domain.Operation) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id, err := qtx.InsertScoreboard(ctx, db.InsertScoreboardParams{
			OperationDate: op.Date,
			OperationType: op.Type,
			PlayerName:    rec.Name,
			Rank:          int64(rec.Rank),
			InfKills:      int64(rec.InfKills),
			SoftVeh:       int64(rec.SoftVeh),
			ArmorVeh:      int64(rec.ArmorVeh),
			Air:           int64(rec.Air),
			Deaths:        int64(rec.Deaths),
			Score:         int64(rec.Score),
		})
		if err != nil {
			r.logger.Error().Err(err).
				Str("op_date", op.Date).
				Str("op_type", op.Type).
				Str("player", rec.Name).
				Msg("failed to insert record")
			return nil, fmt.Errorf("failed to insert record for %s: %w", rec.Name, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	r.logger.Debug().
		Str("op_date", op.Date).
		Str("op_type", op.Type).
		Int("count", len(ids)).
		Msg("records inserted")
	return ids, nil
}

func (r *RecordRepository) FindByID(ctx context.Context, id int64) (*domain.OperationRecord, error) {
	row, err := r.queries.GetScoreboardByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		r.logger.Error().Err(err).Int64("record_id", id).Msg("failed to get record")
		return nil, err
	}
	rec := toDomain(row)
	return &rec, nil
}

// FindByOperation returns the operation's rows, highest score first.
func (r *RecordRepository) FindByOperation(ctx context.Context, op domain.Operation) ([]domain.OperationRecord, error) {
	rows, err := r.queries.ListScoreboardsByOperation(ctx, db.OperationParams{
		OperationDate: op.Date,
		OperationType: op.Type,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("op_date", op.Date).Str("op_type", op.Type).Msg("failed to list operation records")
		return nil, err
	}
	return toDomainSlice(rows), nil
}

// FindByPlayer matches the name exactly, or as a substring when exact is
// false. Rows come newest operation first.
func (r *RecordRepository) FindByPlayer(ctx context.Context, name string, exact bool) ([]domain.OperationRecord, error) {
	var (
		rows []db.Scoreboard
		err  error
	)
	if exact {
		rows, err = r.queries.ListScoreboardsByPlayer(ctx, name)
	} else {
		rows, err = r.queries.SearchScoreboardsByPlayer(ctx, containsPattern(name))
	}
	if err != nil {
		r.logger.Error().Err(err).Str("player", name).Bool("exact", exact).Msg("failed to list player records")
		return nil, err
	}
	return toDomainSlice(rows), nil
}

// FindPlayerInOperation returns the first record for an exact name within
// one operation.
func (r *RecordRepository) FindPlayerInOperation(ctx context.Context, op domain.Operation, name string) (*domain.OperationRecord, error) {
	row, err := r.queries.GetPlayerOperationRecord(ctx, db.PlayerOperationParams{
		OperationDate: op.Date,
		OperationType: op.Type,
		PlayerName:    name,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s in %s: %w", name, op, domain.ErrNotFound)
	}
	if err != nil {
		r.logger.Error().Err(err).
			Str("op_date", op.Date).
			Str("op_type", op.Type).
			Str("player", name).
			Msg("failed to get player operation record")
		return nil, err
	}
	rec := toDomain(row)
	return &rec, nil
}

func (r *RecordRepository) All(ctx context.Context) ([]domain.OperationRecord, error) {
	rows, err := r.queries.ListAllScoreboards(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list records")
		return nil, err
	}
	return toDomainSlice(rows), nil
}

// ByDatePrefix restricts rows to dates starting with prefix ("2026",
// "2026-01"). An empty prefix returns everything.
func (r *RecordRepository) ByDatePrefix(ctx context.Context, prefix string) ([]domain.OperationRecord, error) {
	if prefix == "" {
		return r.All(ctx)
	}
	rows, err := r.queries.ListScoreboardsByDatePrefix(ctx, prefix)
	if err != nil {
		r.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to list records by date")
		return nil, err
	}
	return toDomainSlice(rows), nil
}

// ExistsExact reports whether the operation already holds a row for the
// same name with all six counters identical.
func (r *RecordRepository) ExistsExact(ctx context.Context, op domain.Operation, rec domain.RawRecord) (bool, error) {
	count, err := r.queries.CountExactDuplicates(ctx, db.CountExactDuplicatesParams{
		OperationDate: op.Date,
		OperationType: op.Type,
		PlayerName:    rec.Name,
		InfKills:      int64(rec.InfKills),
		SoftVeh:       int64(rec.SoftVeh),
		ArmorVeh:      int64(rec.ArmorVeh),
		Air:           int64(rec.Air),
		Deaths:        int64(rec.Deaths),
		Score:         int64(rec.Score),
	})
	if err != nil {
		r.logger.Error().Err(err).
			Str("op_date", op.Date).
			Str("op_type", op.Type).
			Str("player", rec.Name).
			Msg("failed to check duplicate")
		return false, err
	}
	return count > 0, nil
}

// UpdateFields applies a partial update; nil fields keep their stored value.
func (r *RecordRepository) UpdateFields(ctx context.Context, id int64, upd domain.RecordUpdate) (int64, error) {
	changed, err := r.queries.UpdateScoreboardFields(ctx, db.UpdateScoreboardFieldsParams{
		InfKills: nullInt(upd.InfKills),
		SoftVeh:  nullInt(upd.SoftVeh),
		ArmorVeh: nullInt(upd.ArmorVeh),
		Air:      nullInt(upd.Air),
		Deaths:   nullInt(upd.Deaths),
		Score:    nullInt(upd.Score),
		ID:       id,
	})
	if err != nil {
		r.logger.Error().Err(err).Int64("record_id", id).Msg("failed to update record")
		return 0, err
	}
	return changed, nil
}

// UpdateScores rewrites the score of each id in one transaction.
func (r *RecordRepository) UpdateScores(ctx context.Context, scores map[int64]int) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	var total int64
	for id, score := range scores {
		n, err := qtx.UpdateScoreboardScore(ctx, id, int64(score))
		if err != nil {
			r.logger.Error().Err(err).Int64("record_id", id).Msg("failed to update score")
			return 0, fmt.Errorf("failed to update score for record %d: %w", id, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit score repair: %w", err)
	}
	return total, nil
}

func (r *RecordRepository) RenamePlayer(ctx context.Context, oldName, newName string) (int64, error) {
	changed, err := r.queries.RenamePlayer(ctx, db.RenamePlayerParams{NewName: newName, OldName: oldName})
	if err != nil {
		r.logger.Error().Err(err).Str("old_name", oldName).Str("new_name", newName).Msg("failed to rename player")
		return 0, err
	}
	return changed, nil
}

func (r *RecordRepository) DeleteByPlayer(ctx context.Context, name string) (int64, error) {
	deleted, err := r.queries.DeleteScoreboardsByPlayer(ctx, name)
	if err != nil {
		r.logger.Error().Err(err).Str("player", name).Msg("failed to delete player records")
		return 0, err
	}
	return deleted, nil
}

func (r *RecordRepository) DeleteByOperation(ctx context.Context, op domain.Operation) (int64, error) {
	deleted, err := r.queries.DeleteScoreboardsByOperation(ctx, db.OperationParams{
		OperationDate: op.Date,
		OperationType: op.Type,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("op_date", op.Date).Str("op_type", op.Type).Msg("failed to delete operation records")
		return 0, err
	}
	return deleted, nil
}

// PurgeBlankNames removes rows whose name is empty or whitespace.
func (r *RecordRepository) PurgeBlankNames(ctx context.Context) (int64, error) {
	deleted, err := r.queries.DeleteBlankPlayerNames(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to purge blank names")
		return 0, err
	}
	if deleted > 0 {
		r.logger.Info().Int64("count", deleted).Msg("purged blank player names")
	}
	return deleted, nil
}

func (r *RecordRepository) DistinctPlayerNames(ctx context.Context) ([]string, error) {
	return r.queries.ListDistinctPlayerNames(ctx)
}

func (r *RecordRepository) SearchPlayerNames(ctx context.Context, partial string, limit int) ([]string, error) {
	return r.queries.SearchPlayerNames(ctx, db.SearchParams{
		Pattern: containsPattern(partial),
		Limit:   int64(limit),
	})
}

func (r *RecordRepository) SearchPlayersInOperation(ctx context.Context, op domain.Operation, partial string, limit int) ([]string, error) {
	return r.queries.SearchPlayersInOperation(ctx, db.SearchPlayersInOperationParams{
		OperationDate: op.Date,
		OperationType: op.Type,
		Pattern:       containsPattern(partial),
		Limit:         int64(limit),
	})
}

// SearchOperations matches the term against both date and type.
func (r *RecordRepository) SearchOperations(ctx context.Context, term string, limit int) ([]domain.Operation, error) {
	rows, err := r.queries.SearchOperations(ctx, db.SearchParams{
		Pattern: containsPattern(term),
		Limit:   int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return toOperations(rows), nil
}

func (r *RecordRepository) RecentOperations(ctx context.Context, limit int) ([]domain.Operation, error) {
	rows, err := r.queries.ListRecentOperations(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	return toOperations(rows), nil
}

// OperationsByDateRange lists operations between two inclusive dates with
// their distinct attendee counts, newest first.
func (r *RecordRepository) OperationsByDateRange(ctx context.Context, start, end string) ([]domain.OperationSummary, error) {
	rows, err := r.queries.ListOperationsByDateRange(ctx, db.DateRangeParams{StartDate: start, EndDate: end})
	if err != nil {
		r.logger.Error().Err(err).Str("start", start).Str("end", end).Msg("failed to list operations by range")
		return nil, err
	}
	result := make([]domain.OperationSummary, len(rows))
	for i, row := range rows {
		result[i] = domain.OperationSummary{
			Operation: domain.Operation{Date: row.OperationDate, Type: row.OperationType},
			Players:   int(row.Players),
		}
	}
	return result, nil
}

func toDomain(row db.Scoreboard) domain.OperationRecord {
	return domain.OperationRecord{
		ID:            row.ID,
		OperationDate: row.OperationDate,
		OperationType: row.OperationType,
		PlayerName:    row.PlayerName,
		Rank:          int(row.Rank),
		Stats: domain.Stats{
			InfKills: int(row.InfKills),
			SoftVeh:  int(row.SoftVeh),
			ArmorVeh: int(row.ArmorVeh),
			Air:      int(row.Air),
			Deaths:   int(row.Deaths),
			Score:    int(row.Score),
		},
	}
}

func toDomainSlice(rows []db.Scoreboard) []domain.OperationRecord {
	result := make([]domain.OperationRecord, len(rows))
	for i, row := range rows {
		result[i] = toDomain(row)
	}
	return result
}

func toOperations(rows []db.OperationRow) []domain.Operation {
	result := make([]domain.Operation, len(rows))
	for i, row := range rows {
		result[i] = domain.Operation{Date: row.OperationDate, Type: row.OperationType}
	}
	return result
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
