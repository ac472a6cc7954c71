package db

type Scoreboard struct {
	ID            int64
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

type OperationRow struct {
	OperationDate string
	OperationType string
}

type OperationSummaryRow struct {
	OperationDate string
	OperationType string
	Players       int64
}
