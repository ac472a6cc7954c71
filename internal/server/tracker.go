package server

import (
	"context"
	"os"
	"path/filepath"
	"unit-tracker/internal/config"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/service"
	"unit-tracker/internal/stats"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const maxMessageBytes = 8 << 20

type TrackerServer struct {
	stats       *service.StatsService
	identity    *service.IdentityService
	scores      *service.ScoreService
	ingest      *service.IngestService
	corrections *service.CorrectionService
	screenshots *service.ScreenshotService
	cfg         *config.Config
	logger      zerolog.Logger
}

func NewTrackerServer(
	statsSvc *service.StatsService,
	identity *service.IdentityService,
	scores *service.ScoreService,
	ingest *service.IngestService,
	corrections *service.CorrectionService,
	screenshots *service.ScreenshotService,
	cfg *config.Config,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		stats:       statsSvc,
		identity:    identity,
		scores:      scores,
		ingest:      ingest,
		corrections: corrections,
		screenshots: screenshots,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *TrackerServer) GetScoreboard(ctx context.Context, req *connect.Request[ScoreboardRequest]) (*connect.Response[service.ScoreboardView], error) {
	sortBy, err := stats.ParseCategory(req.Msg.Sort)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(s.stats.Scoreboard(ctx, req.Msg.Period, req.Msg.Group, sortBy))
}

func (s *TrackerServer) SearchPlayers(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[NamesResponse], error) {
	found, err := s.stats.SearchPlayers(ctx, req.Msg.Query)
	return respond(&NamesResponse{Names: nonNil(found)}, err)
}

func (s *TrackerServer) GetPlayer(ctx context.Context, req *connect.Request[PlayerRequest]) (*connect.Response[service.PlayerView], error) {
	return respond(s.stats.Profile(ctx, req.Msg.Name))
}

func (s *TrackerServer) GetAttendance(ctx context.Context, req *connect.Request[PlayerRequest]) (*connect.Response[service.AttendanceView], error) {
	return respond(s.stats.Attendance(ctx, req.Msg.Name))
}

func (s *TrackerServer) GetUnitMonths(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[MonthsResponse], error) {
	months, err := s.stats.UnitMonths(ctx)
	return respond(&MonthsResponse{Months: nonNil(months)}, err)
}

func (s *TrackerServer) ComparePlayers(ctx context.Context, req *connect.Request[CompareRequest]) (*connect.Response[stats.Comparison], error) {
	return respond(s.stats.Compare(ctx, req.Msg.First, req.Msg.Second))
}

func (s *TrackerServer) GetRecords(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[stats.UnitRecords], error) {
	return respond(s.stats.Records(ctx))
}

// ListInactive uses the default window when days is zero.
func (s *TrackerServer) ListInactive(ctx context.Context, req *connect.Request[InactiveRequest]) (*connect.Response[InactiveResponse], error) {
	if req.Msg.Days < 0 {
		return nil, toConnectError(badRequest("days must not be negative"))
	}
	players, err := s.stats.Inactive(ctx, req.Msg.Days)
	return respond(&InactiveResponse{Players: nonNil(players)}, err)
}

func (s *TrackerServer) RenamePlayer(ctx context.Context, req *connect.Request[RenamePlayerRequest]) (*connect.Response[CountResponse], error) {
	n, err := s.identity.Rename(ctx, req.Msg.Name, req.Msg.NewName)
	return respond(&CountResponse{Count: n}, err)
}

func (s *TrackerServer) DeletePlayer(ctx context.Context, req *connect.Request[PlayerRequest]) (*connect.Response[CountResponse], error) {
	n, err := s.identity.DeleteAll(ctx, req.Msg.Name)
	return respond(&CountResponse{Count: n}, err)
}

// SearchOperations lists the most recent operations for an empty query.
func (s *TrackerServer) SearchOperations(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[OperationsResponse], error) {
	ops, err := s.stats.SearchOperations(ctx, req.Msg.Query)
	return respond(&OperationsResponse{Operations: nonNil(ops)}, err)
}

func (s *TrackerServer) ListOperationsInRange(ctx context.Context, req *connect.Request[OperationRangeRequest]) (*connect.Response[OperationSummariesResponse], error) {
	ops, err := s.stats.OperationsBetween(ctx, req.Msg.Start, req.Msg.End)
	return respond(&OperationSummariesResponse{Operations: nonNil(ops)}, err)
}

func (s *TrackerServer) GetOperation(ctx context.Context, req *connect.Request[OperationRequest]) (*connect.Response[OperationRecordsResponse], error) {
	records, err := s.stats.Operation(ctx, req.Msg.operation())
	return respond(&OperationRecordsResponse{Records: records}, err)
}

func (s *TrackerServer) SearchOperationPlayers(ctx context.Context, req *connect.Request[OperationPlayersRequest]) (*connect.Response[NamesResponse], error) {
	found, err := s.stats.SearchPlayersInOperation(ctx, req.Msg.operation(), req.Msg.Query)
	return respond(&NamesResponse{Names: nonNil(found)}, err)
}

func (s *TrackerServer) DeleteOperation(ctx context.Context, req *connect.Request[OperationRequest]) (*connect.Response[CountResponse], error) {
	n, err := s.stats.DeleteOperation(ctx, req.Msg.operation())
	return respond(&CountResponse{Count: n}, err)
}

func (s *TrackerServer) IngestRecords(ctx context.Context, req *connect.Request[IngestRecordsRequest]) (*connect.Response[service.IngestReport], error) {
	return respond(s.ingest.IngestJSON(ctx, req.Msg.operation(), req.Msg.Records))
}

// ApplyCorrections runs directives posted directly rather than read from a
// Discord thread.
func (s *TrackerServer) ApplyCorrections(ctx context.Context, req *connect.Request[ApplyCorrectionsRequest]) (*connect.Response[service.CorrectionReport], error) {
	messages := make([]service.ThreadMessage, len(req.Msg.Messages))
	for i, m := range req.Msg.Messages {
		author := m.Author
		messages[i] = service.ThreadMessage{
			ID:      m.ID,
			Content: m.Content,
			Bot:     m.Bot,
			Author:  func(context.Context) (string, error) { return author, nil },
		}
	}
	return respond(s.corrections.Apply(ctx, req.Msg.operation(), messages, nil))
}

func (s *TrackerServer) UpdateRecord(ctx context.Context, req *connect.Request[UpdateRecordRequest]) (*connect.Response[domain.OperationRecord], error) {
	return respond(s.stats.UpdateRecord(ctx, req.Msg.ID, req.Msg.Fields))
}

// ImportFiles ingests one scoreboard file or every file in a directory under
// the JSON data directory.
func (s *TrackerServer) ImportFiles(ctx context.Context, req *connect.Request[PathRequest]) (*connect.Response[service.IngestReport], error) {
	path, err := s.dataPath(req.Msg.Path)
	if err != nil {
		return nil, toConnectError(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, toConnectError(badRequest("cannot read %s: %v", req.Msg.Path, err))
	}
	if info.IsDir() {
		return respond(s.ingest.ImportDir(ctx, path))
	}
	return respond(s.ingest.IngestFile(ctx, path))
}

func (s *TrackerServer) CleanDatabase(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[service.MaintenanceReport], error) {
	return respond(s.identity.MaintainFromFiles(ctx, s.cfg.RenamePath, s.cfg.BlacklistPath))
}

func (s *TrackerServer) RecalculateScores(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[CountResponse], error) {
	n, err := s.scores.Repair(ctx)
	return respond(&CountResponse{Count: n}, err)
}

func (s *TrackerServer) FixScoreFiles(_ context.Context, req *connect.Request[PathRequest]) (*connect.Response[service.FileRepairReport], error) {
	dir, err := s.dataPath(req.Msg.Path)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(s.scores.RepairDir(dir))
}

func (s *TrackerServer) RunThreadCorrections(ctx context.Context, req *connect.Request[ThreadRequest]) (*connect.Response[service.CorrectionReport], error) {
	if req.Msg.ThreadID == "" {
		return nil, toConnectError(badRequest("thread_id is required"))
	}
	return respond(s.corrections.RunForThread(ctx, req.Msg.ThreadID))
}

func (s *TrackerServer) ImportScreenshot(ctx context.Context, req *connect.Request[ScreenshotRequest]) (*connect.Response[service.IngestReport], error) {
	if req.Msg.ChannelID == "" || req.Msg.MessageID == "" {
		return nil, toConnectError(badRequest("channel_id and message_id are required"))
	}

	var op *domain.Operation
	if req.Msg.OperationDate != "" && req.Msg.OperationType != "" {
		op = &domain.Operation{Date: req.Msg.OperationDate, Type: req.Msg.OperationType}
	}
	return respond(s.screenshots.ImportMessage(ctx, req.Msg.ChannelID, req.Msg.MessageID, op))
}

// dataPath resolves a client supplied path inside the JSON data directory.
// Absolute paths and paths escaping the directory are rejected.
func (s *TrackerServer) dataPath(rel string) (string, error) {
	if rel == "" {
		return s.cfg.JSONDir, nil
	}
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", badRequest("path %q must be relative to the data directory", rel)
	}
	return filepath.Join(s.cfg.JSONDir, rel), nil
}

// nonNil renders a nil slice as [] instead of null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
