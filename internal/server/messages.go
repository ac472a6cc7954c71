package server

import (
	"encoding/json"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/stats"
)

type Empty struct{}

type ScoreboardRequest struct {
	Period string `json:"period,omitempty"` // "2026" or "2026-01"
	Group  string `json:"group,omitempty"`  // "", "families" or "twins"
	Sort   string `json:"sort,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type NamesResponse struct {
	Names []string `json:"names"`
}

type PlayerRequest struct {
	Name string `json:"name"`
}

type CompareRequest struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

type MonthsResponse struct {
	Months []stats.MonthTotal `json:"months"`
}

type InactiveRequest struct {
	Days int `json:"days,omitempty"`
}

type InactiveResponse struct {
	Players []stats.InactivePlayer `json:"players"`
}

type RenamePlayerRequest struct {
	Name    string `json:"name"`
	NewName string `json:"new_name"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type OperationRequest struct {
	OperationDate string `json:"operation_date"`
	OperationType string `json:"operation_type"`
}

func (r OperationRequest) operation() domain.Operation {
	return domain.Operation{Date: r.OperationDate, Type: r.OperationType}
}

type OperationsResponse struct {
	Operations []domain.Operation `json:"operations"`
}

type OperationRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type OperationSummariesResponse struct {
	Operations []domain.OperationSummary `json:"operations"`
}

type OperationRecordsResponse struct {
	Records []domain.OperationRecord `json:"records"`
}

type OperationPlayersRequest struct {
	OperationRequest
	Query string `json:"query"`
}

// IngestRecordsRequest carries a raw scoreboard array. Records is validated
// by the ingestion pipeline, not by the codec.
type IngestRecordsRequest struct {
	OperationRequest
	Records json.RawMessage `json:"records"`
}

type CorrectionMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Bot     bool   `json:"bot,omitempty"`
}

type ApplyCorrectionsRequest struct {
	OperationRequest
	Messages []CorrectionMessage `json:"messages"`
}

type UpdateRecordRequest struct {
	ID     int64               `json:"id"`
	Fields domain.RecordUpdate `json:"fields"`
}

// PathRequest names a file or directory relative to the JSON data directory.
// Empty means the directory itself.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

type ThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

type ScreenshotRequest struct {
	ChannelID     string `json:"channel_id"`
	MessageID     string `json:"message_id"`
	OperationDate string `json:"operation_date,omitempty"`
	OperationType string `json:"operation_type,omitempty"`
}
