package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(req)
			}
			reqID := RequestIDFromContext(req.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}
			ctx := WithRequestID(req.Context(), reqID)
			clone := req.Clone(ctx)
			clone.Header.Set(HeaderRequestID, reqID)
			return next.RoundTrip(clone)
		})
	}
}
