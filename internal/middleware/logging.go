package middleware

import (
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func Logging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			logger := logutil.GetLogger(req.Context()).With(
				zap.String("request_id", RequestIDFromContext(req.Context())),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
			)
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("backend request failed", zap.Error(err), zap.Duration("duration", elapsed))
				return nil, err
			}
			logger.Debug("backend request finished", zap.Int("status", resp.StatusCode), zap.Duration("duration", elapsed))
			return resp, nil
		})
	}
}
