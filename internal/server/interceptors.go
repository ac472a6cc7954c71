package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// adminProcedures change stored records or files on disk.
var adminProcedures = map[string]bool{
	TrackerRenamePlayerProcedure:         true,
	TrackerDeletePlayerProcedure:         true,
	TrackerDeleteOperationProcedure:      true,
	TrackerIngestRecordsProcedure:        true,
	TrackerApplyCorrectionsProcedure:     true,
	TrackerUpdateRecordProcedure:         true,
	TrackerImportFilesProcedure:          true,
	TrackerCleanDatabaseProcedure:        true,
	TrackerRecalculateScoresProcedure:    true,
	TrackerFixScoreFilesProcedure:        true,
	TrackerRunThreadCorrectionsProcedure: true,
	TrackerImportScreenshotProcedure:     true,
}

// newAuthInterceptor requires "Authorization: Bearer <token>" on admin
// procedures. With no token configured they are refused outright.
func newAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !adminProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}
			if token == "" {
				return nil, connect.NewError(connect.CodePermissionDenied, errors.New("admin procedures are disabled"))
			}

			got, ok := strings.CutPrefix(req.Header().Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing or invalid admin token"))
			}
			return next(ctx, req)
		}
	}
}

func newLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			res, err := next(ctx, req)
			if err == nil {
				return res, nil
			}

			log := zerolog.Ctx(ctx)
			switch code := connect.CodeOf(err); code {
			case connect.CodeInternal, connect.CodeUnknown, connect.CodeUnavailable:
				log.Error().Err(err).Str("procedure", req.Spec().Procedure).Str("code", code.String()).Msg("procedure failed")
			default:
				log.Debug().Err(err).Str("procedure", req.Spec().Procedure).Str("code", code.String()).Msg("procedure rejected")
			}
			return nil, err
		}
	}
}
