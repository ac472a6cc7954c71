package db

import (
	"context"
	"database/sql"
)

const scoreboardColumns = `id, operation_date, operation_type, player_name, rank, inf_kills, soft_veh, armor_veh, air, deaths, score`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScoreboard(row rowScanner) (Scoreboard, error) {
	var i Scoreboard
	err := row.Scan(
		&i.ID,
		&i.OperationDate,
		&i.OperationType,
		&i.PlayerName,
		&i.Rank,
		&i.InfKills,
		&i.SoftVeh,
		&i.ArmorVeh,
		&i.Air,
		&i.Deaths,
		&i.Score,
	)
	return i, err
}

func (q *Queries) listScoreboards(ctx context.Context, query string, args ...interface{}) ([]Scoreboard, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Scoreboard
	for rows.Next() {
		i, err := scanScoreboard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) listStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertScoreboard = `
INSERT INTO scoreboards (
	operation_date, operation_type, player_name, rank, inf_kills, soft_veh, armor_veh, air, deaths, score
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertScoreboardParams struct {
	OperationDate string
	OperationType string
	PlayerName    string
	Rank          int64
	InfKills      int64
	SoftVeh       int64
	ArmorVeh      int64
	Air           int64
	Deaths        int64
	Score         int64
}

func (q *Queries) InsertScoreboard(ctx context.Context, arg InsertScoreboardParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertScoreboard,
		arg.OperationDate,
		arg.OperationType,
		arg.PlayerName,
		arg.Rank,
		arg.InfKills,
		arg.SoftVeh,
		arg.ArmorVeh,
		arg.Air,
		arg.Deaths,
		arg.Score,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getScoreboardByID = `SELECT ` + scoreboardColumns + ` FROM scoreboards WHERE id = ?`

func (q *Queries) GetScoreboardByID(ctx context.Context, id int64) (Scoreboard, error) {
	return scanScoreboard(q.db.QueryRowContext(ctx, getScoreboardByID, id))
}

const listScoreboardsByOperation = `
SELECT ` + scoreboardColumns + ` FROM scoreboards
WHERE operation_date = ? AND operation_type = ?
ORDER BY score DESC, id ASC
`

type OperationParams struct {
	OperationDate string
	OperationType string
}

func (q *Queries) ListScoreboardsByOperation(ctx context.Context, arg OperationParams) ([]Scoreboard, error) {
	return q.listScoreboards(ctx, listScoreboardsByOperation, arg.OperationDate, arg.OperationType)
}

const listScoreboardsByPlayer = `
SELECT ` + scoreboardColumns + ` FROM scoreboards
WHERE player_name = ?
ORDER BY operation_date DESC, operation_type DESC, id ASC
`

func (q *Queries) ListScoreboardsByPlayer(ctx context.Context, playerName string) ([]Scoreboard, error) {
	return q.listScoreboards(ctx, listScoreboardsByPlayer, playerName)
}

const searchScoreboardsByPlayer = `
SELECT ` + scoreboardColumns + ` FROM scoreboards
WHERE player_name LIKE ? ESCAPE '\'
ORDER BY operation_date DESC, operation_type DESC, id ASC
`

func (q *Queries) SearchScoreboardsByPlayer(ctx context.Context, pattern string) ([]Scoreboard, error) {
	return q.listScoreboards(ctx, searchScoreboardsByPlayer, pattern)
}

const listAllScoreboards = `SELECT ` + scoreboardColumns + ` FROM scoreboards ORDER BY id ASC`

func (q *Queries) ListAllScoreboards(ctx context.Context) ([]Scoreboard, error) {
	return q.listScoreboards(ctx, listAllScoreboards)
}

const listScoreboardsByDatePrefix = `
SELECT ` + scoreboardColumns + ` FROM scoreboards
WHERE substr(operation_date, 1, length(?1)) = ?1
ORDER BY id ASC
`

func (q *Queries) ListScoreboardsByDatePrefix(ctx context.Context, prefix string) ([]Scoreboard, error) {
	return q.listScoreboards(ctx, listScoreboardsByDatePrefix, prefix)
}

const getPlayerOperationRecord = `
SELECT ` + scoreboardColumns + ` FROM scoreboards
WHERE operation_date = ? AND operation_type = ? AND player_name = ?
ORDER BY id ASC
LIMIT 1
`

type PlayerOperationParams struct {
	OperationDate string
	OperationType string
	PlayerName    string
}

func (q *Queries) GetPlayerOperationRecord(ctx context.Context, arg PlayerOperationParams) (Scoreboard, error) {
	return scanScoreboard(q.db.QueryRowContext(ctx, getPlayerOperationRecord, arg.OperationDate, arg.OperationType, arg.PlayerName))
}

const countExactDuplicates = `
SELECT COUNT(*) FROM scoreboards
WHERE operation_date = ?
  AND operation_type = ?
  AND player_name = ?
  AND inf_kills = ?
  AND soft_veh = ?
  AND armor_veh = ?
  AND air = ?
  AND deaths = ?
  AND score = ?
`

type CountExactDuplicatesParams struct {
	OperationDate string
	OperationType string
	PlayerName    string
	InfKills      int64
	SoftVeh       int64
	ArmorVeh      int64
	Air           int64
	Deaths        int64
	Score         int64
}

func (q *Queries) CountExactDuplicates(ctx context.Context, arg CountExactDuplicatesParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countExactDuplicates,
		arg.OperationDate,
		arg.OperationType,
		arg.PlayerName,
		arg.InfKills,
		arg.SoftVeh,
		arg.ArmorVeh,
		arg.Air,
		arg.Deaths,
		arg.Score,
	).Scan(&count)
	return count, err
}

const updateScoreboardFields = `
UPDATE scoreboards
SET inf_kills = COALESCE(?, inf_kills),
    soft_veh  = COALESCE(?, soft_veh),
    armor_veh = COALESCE(?, armor_veh),
    air       = COALESCE(?, air),
    deaths    = COALESCE(?, deaths),
    score     = COALESCE(?, score)
WHERE id = ?
`

type UpdateScoreboardFieldsParams struct {
	InfKills sql.NullInt64
	SoftVeh  sql.NullInt64
	ArmorVeh sql.NullInt64
	Air      sql.NullInt64
	Deaths   sql.NullInt64
	Score    sql.NullInt64
	ID       int64
}

func (q *Queries) UpdateScoreboardFields(ctx context.Context, arg UpdateScoreboardFieldsParams) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, updateScoreboardFields,
		arg.InfKills,
		arg.SoftVeh,
		arg.ArmorVeh,
		arg.Air,
		arg.Deaths,
		arg.Score,
		arg.ID,
	))
}

const updateScoreboardScore = `UPDATE scoreboards SET score = ? WHERE id = ?`

func (q *Queries) UpdateScoreboardScore(ctx context.Context, id, score int64) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, updateScoreboardScore, score, id))
}

const renamePlayer = `UPDATE scoreboards SET player_name = ? WHERE player_name = ?`

type RenamePlayerParams struct {
	NewName string
	OldName string
}

func (q *Queries) RenamePlayer(ctx context.Context, arg RenamePlayerParams) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, renamePlayer, arg.NewName, arg.OldName))
}

const deleteScoreboardsByPlayer = `DELETE FROM scoreboards WHERE player_name = ?`

func (q *Queries) DeleteScoreboardsByPlayer(ctx context.Context, playerName string) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, deleteScoreboardsByPlayer, playerName))
}

const deleteScoreboardsByOperation = `DELETE FROM scoreboards WHERE operation_date = ? AND operation_type = ?`

func (q *Queries) DeleteScoreboardsByOperation(ctx context.Context, arg OperationParams) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, deleteScoreboardsByOperation, arg.OperationDate, arg.OperationType))
}

const deleteBlankPlayerNames = `DELETE FROM scoreboards WHERE player_name IS NULL OR TRIM(player_name) = ''`

func (q *Queries) DeleteBlankPlayerNames(ctx context.Context) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, deleteBlankPlayerNames))
}

const listDistinctPlayerNames = `SELECT DISTINCT player_name FROM scoreboards ORDER BY player_name ASC`

func (q *Queries) ListDistinctPlayerNames(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listDistinctPlayerNames)
}

const searchPlayerNames = `
SELECT DISTINCT player_name FROM scoreboards
WHERE player_name LIKE ? ESCAPE '\'
ORDER BY player_name ASC
LIMIT ?
`

type SearchParams struct {
	Pattern string
	Limit   int64
}

func (q *Queries) SearchPlayerNames(ctx context.Context, arg SearchParams) ([]string, error) {
	return q.listStrings(ctx, searchPlayerNames, arg.Pattern, arg.Limit)
}

const searchPlayersInOperation = `
SELECT player_name FROM scoreboards
WHERE operation_date = ? AND operation_type = ? AND player_name LIKE ? ESCAPE '\'
ORDER BY player_name ASC
LIMIT ?
`

type SearchPlayersInOperationParams struct {
	OperationDate string
	OperationType string
	Pattern       string
	Limit         int64
}

func (q *Queries) SearchPlayersInOperation(ctx context.Context, arg SearchPlayersInOperationParams) ([]string, error) {
	return q.listStrings(ctx, searchPlayersInOperation, arg.OperationDate, arg.OperationType, arg.Pattern, arg.Limit)
}

func (q *Queries) listOperations(ctx context.Context, query string, args ...interface{}) ([]OperationRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OperationRow
	for rows.Next() {
		var i OperationRow
		if err := rows.Scan(&i.OperationDate, &i.OperationType); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const searchOperations = `
SELECT DISTINCT operation_date, operation_type FROM scoreboards
WHERE operation_date LIKE ?1 ESCAPE '\' OR operation_type LIKE ?1 ESCAPE '\'
ORDER BY operation_date DESC, operation_type DESC
LIMIT ?2
`

func (q *Queries) SearchOperations(ctx context.Context, arg SearchParams) ([]OperationRow, error) {
	return q.listOperations(ctx, searchOperations, arg.Pattern, arg.Limit)
}

const listRecentOperations = `
SELECT DISTINCT operation_date, operation_type FROM scoreboards
ORDER BY operation_date DESC, operation_type DESC
LIMIT ?
`

func (q *Queries) ListRecentOperations(ctx context.Context, limit int64) ([]OperationRow, error) {
	return q.listOperations(ctx, listRecentOperations, limit)
}

const listOperationsByDateRange = `
SELECT operation_date, operation_type, COUNT(DISTINCT player_name) AS players
FROM scoreboards
WHERE operation_date >= ? AND operation_date <= ?
GROUP BY operation_date, operation_type
ORDER BY operation_date DESC, operation_type DESC
`

type DateRangeParams struct {
	StartDate string
	EndDate   string
}

func (q *Queries) ListOperationsByDateRange(ctx context.Context, arg DateRangeParams) ([]OperationSummaryRow, error) {
	rows, err := q.db.QueryContext(ctx, listOperationsByDateRange, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OperationSummaryRow
	for rows.Next() {
		var i OperationSummaryRow
		if err := rows.Scan(&i.OperationDate, &i.OperationType, &i.Players); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
