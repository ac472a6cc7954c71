package domain

import (
	"fmt"
	"strings"
)

// Stats holds the six scoreboard counters shared by stored rows, raw
// extractor output and every aggregate view.
type Stats struct {
	InfKills int `json:"inf_kills"`
	SoftVeh  int `json:"soft_veh"`
	ArmorVeh int `json:"armor_veh"`
	Air      int `json:"air"`
	Deaths   int `json:"deaths"`
	Score    int `json:"score"`
}

func (s *Stats) Add(o Stats) {
	s.InfKills += o.InfKills
	s.SoftVeh += o.SoftVeh
	s.ArmorVeh += o.ArmorVeh
	s.Air += o.Air
	s.Deaths += o.Deaths
	s.Score += o.Score
}

// OperationRecord is one player's line on one operation's scoreboard.
type OperationRecord struct {
	ID            int64  `json:"id"`
	OperationDate string `json:"operation_date"`
	OperationType string `json:"operation_type"`
	PlayerName    string `json:"player_name"`
	Rank          int    `json:"rank"`
	Stats
}

func (r OperationRecord) Operation() Operation {
	return Operation{Date: r.OperationDate, Type: r.OperationType}
}

// Raw returns the record in the ingestion/export shape.
func (r OperationRecord) Raw() RawRecord {
	return RawRecord{Name: r.PlayerName, Rank: r.Rank, Stats: r.Stats}
}

// RawRecord is the shape produced by the extractor and stored in JSON
// scoreboard files.
type RawRecord struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Stats
}

// RecordUpdate is a partial update; nil fields keep their stored value.
type RecordUpdate struct {
	InfKills *int `json:"inf_kills,omitempty"`
	SoftVeh  *int `json:"soft_veh,omitempty"`
	ArmorVeh *int `json:"armor_veh,omitempty"`
	Air      *int `json:"air,omitempty"`
	Deaths   *int `json:"deaths,omitempty"`
	Score    *int `json:"score,omitempty"`
}

func (u RecordUpdate) Empty() bool {
	return u.InfKills == nil && u.SoftVeh == nil && u.ArmorVeh == nil &&
		u.Air == nil && u.Deaths == nil && u.Score == nil
}

// Operation identifies one game session. It is a grouping over records,
// never stored on its own.
type Operation struct {
	Date string `json:"operation_date"`
	Type string `json:"operation_type"`
}

// Key renders the "<date>|<type>" form used for autocomplete and deletion.
func (o Operation) Key() string {
	return o.Date + "|" + o.Type
}

// Month returns the YYYY-MM bucket of the operation date.
func (o Operation) Month() string {
	if len(o.Date) < 7 {
		return o.Date
	}
	return o.Date[:7]
}

func (o Operation) String() string {
	return fmt.Sprintf("%s: %s", o.Type, o.Date)
}

func ParseOperationKey(key string) (Operation, error) {
	date, opType, ok := strings.Cut(key, "|")
	if !ok || date == "" || opType == "" {
		return Operation{}, fmt.Errorf("%w: %q", ErrInvalidOperationKey, key)
	}
	return Operation{Date: date, Type: opType}, nil
}

// OperationSummary is an operation with its distinct attendee count.
type OperationSummary struct {
	Operation
	Players int `json:"players"`
}
