package errcode

import (
	"errors"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

// Process exit codes used by the docqa command.
const (
	OK = iota
	ErrUnknown
	ErrUnauthenticated
	ErrInvalid
	ErrNotFound
	ErrTransport
	ErrServer
	ErrMalformed
	ErrBusy
)

func FromError(err error) int {
	if err == nil {
		return OK
	}
	var apiErr *appErr.APIError
	var transportErr *appErr.TransportError
	switch {
	case appErr.IsUnauthenticated(err):
		return ErrUnauthenticated
	case appErr.IsNotFound(err):
		return ErrNotFound
	case errors.Is(err, appErr.ErrMalformedResponse):
		return ErrMalformed
	case appErr.IsValidation(err),
		errors.Is(err, appErr.ErrEmptyQuestion),
		errors.Is(err, appErr.ErrNoSelection),
		errors.Is(err, appErr.ErrCompareNeedsTwo):
		return ErrInvalid
	case errors.Is(err, appErr.ErrUploadInProgress), errors.Is(err, appErr.ErrRequestInFlight):
		return ErrBusy
	case errors.As(err, &transportErr):
		return ErrTransport
	case errors.As(err, &apiErr):
		return ErrServer
	default:
		return ErrUnknown
	}
}
