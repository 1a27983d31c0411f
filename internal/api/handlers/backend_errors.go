package handlers

import (
	"errors"

	"odoodeploy.io/console/internal/backend"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
)

// backendError maps a backend client failure to a 502. A backend that
// answered keeps its message; a transport failure gets fallback.
func backendError(err error, fallback string) *apperrors.AppError {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apperrors.BadGateway(apperrors.CodeBackendRejected, backend.MessageOr(err, fallback)).
			WithCause(err).
			WithParam("backend_status", apiErr.Status)
	}
	return apperrors.BadGateway(apperrors.CodeBackendUnavailable, fallback).WithCause(err)
}
