// Package middleware provides client middleware for use with
// [option.WithMiddleware].
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/broady/orb/option"
)

// Logging creates a middleware that logs API calls using slog.
// It logs the start and end of each call, including status and duration.
func Logging(logger *slog.Logger) option.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		ctx := req.Context()
		start := time.Now()

		logger.InfoContext(ctx, "request started",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)

		res, err := next(req)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "request failed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "request completed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.StatusCode),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}
