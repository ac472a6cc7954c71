package server

import (
	"net/http"

	"connectrpc.com/connect"
)

// TrackerPath is the path prefix every Tracker procedure is served under.
const TrackerPath = "/unit.v1.Tracker/"

const (
	TrackerGetScoreboardProcedure          = "/unit.v1.Tracker/GetScoreboard"
	TrackerSearchPlayersProcedure          = "/unit.v1.Tracker/SearchPlayers"
	TrackerGetPlayerProcedure              = "/unit.v1.Tracker/GetPlayer"
	TrackerGetAttendanceProcedure          = "/unit.v1.Tracker/GetAttendance"
	TrackerGetUnitMonthsProcedure          = "/unit.v1.Tracker/GetUnitMonths"
	TrackerComparePlayersProcedure         = "/unit.v1.Tracker/ComparePlayers"
	TrackerGetRecordsProcedure             = "/unit.v1.Tracker/GetRecords"
	TrackerListInactiveProcedure           = "/unit.v1.Tracker/ListInactive"
	TrackerRenamePlayerProcedure           = "/unit.v1.Tracker/RenamePlayer"
	TrackerDeletePlayerProcedure           = "/unit.v1.Tracker/DeletePlayer"
	TrackerSearchOperationsProcedure       = "/unit.v1.Tracker/SearchOperations"
	TrackerListOperationsInRangeProcedure  = "/unit.v1.Tracker/ListOperationsInRange"
	TrackerGetOperationProcedure           = "/unit.v1.Tracker/GetOperation"
	TrackerSearchOperationPlayersProcedure = "/unit.v1.Tracker/SearchOperationPlayers"
	TrackerDeleteOperationProcedure        = "/unit.v1.Tracker/DeleteOperation"
	TrackerIngestRecordsProcedure          = "/unit.v1.Tracker/IngestRecords"
	TrackerApplyCorrectionsProcedure       = "/unit.v1.Tracker/ApplyCorrections"
	TrackerUpdateRecordProcedure           = "/unit.v1.Tracker/UpdateRecord"
	TrackerImportFilesProcedure            = "/unit.v1.Tracker/ImportFiles"
	TrackerCleanDatabaseProcedure          = "/unit.v1.Tracker/CleanDatabase"
	TrackerRecalculateScoresProcedure      = "/unit.v1.Tracker/RecalculateScores"
	TrackerFixScoreFilesProcedure          = "/unit.v1.Tracker/FixScoreFiles"
	TrackerRunThreadCorrectionsProcedure   = "/unit.v1.Tracker/RunThreadCorrections"
	TrackerImportScreenshotProcedure       = "/unit.v1.Tracker/ImportScreenshot"
)

// NewTrackerHandler builds an HTTP handler serving every Tracker procedure
// over the Connect protocol with JSON bodies. It returns the path to mount
// the handler on.
func NewTrackerHandler(svc *TrackerServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newLoggingInterceptor(), newAuthInterceptor(svc.cfg.AdminToken)),
		connect.WithReadMaxBytes(maxMessageBytes),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(TrackerGetScoreboardProcedure, connect.NewUnaryHandler(TrackerGetScoreboardProcedure, svc.GetScoreboard, opts...))
	mux.Handle(TrackerSearchPlayersProcedure, connect.NewUnaryHandler(TrackerSearchPlayersProcedure, svc.SearchPlayers, opts...))
	mux.Handle(TrackerGetPlayerProcedure, connect.NewUnaryHandler(TrackerGetPlayerProcedure, svc.GetPlayer, opts...))
	mux.Handle(TrackerGetAttendanceProcedure, connect.NewUnaryHandler(TrackerGetAttendanceProcedure, svc.GetAttendance, opts...))
	mux.Handle(TrackerGetUnitMonthsProcedure, connect.NewUnaryHandler(TrackerGetUnitMonthsProcedure, svc.GetUnitMonths, opts...))
	mux.Handle(TrackerComparePlayersProcedure, connect.NewUnaryHandler(TrackerComparePlayersProcedure, svc.ComparePlayers, opts...))
	mux.Handle(TrackerGetRecordsProcedure, connect.NewUnaryHandler(TrackerGetRecordsProcedure, svc.GetRecords, opts...))
	mux.Handle(TrackerListInactiveProcedure, connect.NewUnaryHandler(TrackerListInactiveProcedure, svc.ListInactive, opts...))
	mux.Handle(TrackerRenamePlayerProcedure, connect.NewUnaryHandler(TrackerRenamePlayerProcedure, svc.RenamePlayer, opts...))
	mux.Handle(TrackerDeletePlayerProcedure, connect.NewUnaryHandler(TrackerDeletePlayerProcedure, svc.DeletePlayer, opts...))
	mux.Handle(TrackerSearchOperationsProcedure, connect.NewUnaryHandler(TrackerSearchOperationsProcedure, svc.SearchOperations, opts...))
	mux.Handle(TrackerListOperationsInRangeProcedure, connect.NewUnaryHandler(TrackerListOperationsInRangeProcedure, svc.ListOperationsInRange, opts...))
	mux.Handle(TrackerGetOperationProcedure, connect.NewUnaryHandler(TrackerGetOperationProcedure, svc.GetOperation, opts...))
	mux.Handle(TrackerSearchOperationPlayersProcedure, connect.NewUnaryHandler(TrackerSearchOperationPlayersProcedure, svc.SearchOperationPlayers, opts...))
	mux.Handle(TrackerDeleteOperationProcedure, connect.NewUnaryHandler(TrackerDeleteOperationProcedure, svc.DeleteOperation, opts...))
	mux.Handle(TrackerIngestRecordsProcedure, connect.NewUnaryHandler(TrackerIngestRecordsProcedure, svc.IngestRecords, opts...))
	mux.Handle(TrackerApplyCorrectionsProcedure, connect.NewUnaryHandler(TrackerApplyCorrectionsProcedure, svc.ApplyCorrections, opts...))
	mux.Handle(TrackerUpdateRecordProcedure, connect.NewUnaryHandler(TrackerUpdateRecordProcedure, svc.UpdateRecord, opts...))
	mux.Handle(TrackerImportFilesProcedure, connect.NewUnaryHandler(TrackerImportFilesProcedure, svc.ImportFiles, opts...))
	mux.Handle(TrackerCleanDatabaseProcedure, connect.NewUnaryHandler(TrackerCleanDatabaseProcedure, svc.CleanDatabase, opts...))
	mux.Handle(TrackerRecalculateScoresProcedure, connect.NewUnaryHandler(TrackerRecalculateScoresProcedure, svc.RecalculateScores, opts...))
	mux.Handle(TrackerFixScoreFilesProcedure, connect.NewUnaryHandler(TrackerFixScoreFilesProcedure, svc.FixScoreFiles, opts...))
	mux.Handle(TrackerRunThreadCorrectionsProcedure, connect.NewUnaryHandler(TrackerRunThreadCorrectionsProcedure, svc.RunThreadCorrections, opts...))
	mux.Handle(TrackerImportScreenshotProcedure, connect.NewUnaryHandler(TrackerImportScreenshotProcedure, svc.ImportScreenshot, opts...))
	return TrackerPath, mux
}
