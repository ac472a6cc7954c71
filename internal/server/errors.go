package server

import (
	"errors"
	"fmt"
	"unit-tracker/internal/api"
	"unit-tracker/internal/domain"
	"unit-tracker/internal/service"
	"unit-tracker/internal/stats"

	"connectrpc.com/connect"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// toConnectError maps domain and service errors to connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var apiErr *api.APIError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrMalformedBatch),
		errors.Is(err, domain.ErrMalformedDictionary),
		errors.Is(err, domain.ErrInvalidOperationKey),
		errors.Is(err, domain.ErrInvalidThreadTitle),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, stats.ErrUnknownCategory),
		errors.Is(err, service.ErrUnknownGrouping),
		errors.Is(err, service.ErrNoScreenshots):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, service.ErrDiscordOffline),
		errors.Is(err, service.ErrExtractorOffline),
		errors.As(err, &apiErr):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// respond wraps a service result, mapping its error.
func respond[T any](msg *T, err error) (*connect.Response[T], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(msg), nil
}
