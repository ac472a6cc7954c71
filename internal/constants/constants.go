package constants

import "time"

const (
	ExternalAPITimeout = 60 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SearchSuggestionLimit = 25
	RecentOperationsLimit = 25
	StreakDisplayLimit    = 10
	DefaultInactiveDays   = 30
	MaxScreenshots        = 5
	ThreadMessageLimit    = 100
)

// Operation identity used when a file name carries no metadata.
const (
	UnknownOperationDate = "1970-01-01"
	UnknownOperationType = "Unknown Operation"
)

const (
	MainOperationType = "Main Operation"
	IncursionType     = "Incursion"
)

const (
	BloomExpectedItems = 10000
	BloomFalsePositive = 0.001
)

const JSONIndent = 4
