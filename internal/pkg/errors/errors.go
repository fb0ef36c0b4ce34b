package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFile            = errors.New("no file selected")
	ErrUploadInProgress  = errors.New("upload in progress")
	ErrEmptyQuestion     = errors.New("empty question")
	ErrRequestInFlight   = errors.New("request in flight")
	ErrNoSelection       = errors.New("no document selected")
	ErrCompareNeedsTwo   = errors.New("compare needs at least two documents")
	ErrNothingToRetry    = errors.New("nothing to retry")
	ErrClosed            = errors.New("closed")
)

// APIError is a non-2xx response from the backend. Message is what the
// payload said, empty when it said nothing usable.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, msg)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// TransportError means the request never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response: %s: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFileType) || errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrNoFile)
}

// Message returns the server supplied message when err carries one.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
