package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: OK},
		{name: "401", err: &appErr.APIError{Status: 401}, want: ErrUnauthenticated},
		{name: "404 wrapped", err: fmt.Errorf("delete: %w", &appErr.APIError{Status: 404}), want: ErrNotFound},
		{name: "500", err: &appErr.APIError{Status: 500}, want: ErrServer},
		{name: "transport", err: &appErr.TransportError{Op: "ask", Err: errors.New("refused")}, want: ErrTransport},
		{name: "malformed", err: &appErr.MalformedResponseError{Op: "ask", Reason: "bad"}, want: ErrMalformed},
		{name: "too large", err: appErr.ErrFileTooLarge, want: ErrInvalid},
		{name: "busy", err: appErr.ErrRequestInFlight, want: ErrBusy},
		{name: "other", err: errors.New("boom"), want: ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromError(tt.err))
		})
	}
}
