package middleware

import (
	"context"
	"net/http"
)

const HeaderAuthorization = "Authorization"

type tokenKey struct{}

// WithToken attaches the bearer token to use for requests made with ctx.
// An empty token means the request goes out unauthenticated.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok
}

func BearerAuth() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			token, ok := TokenFromContext(req.Context())
			if !ok || token == "" || req.Header.Get(HeaderAuthorization) != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set(HeaderAuthorization, "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}
