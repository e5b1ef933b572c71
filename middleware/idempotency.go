package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/broady/orb/option"
)

// IdempotencyKeyHeader is the header Orb uses to deduplicate writes.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyKey creates a middleware that adds a fresh UUIDv7
// Idempotency-Key to POST requests that don't already carry one.
//
// The key is generated once per request, before any inner middleware runs,
// so a retrying middleware placed after this one resends the same key.
func IdempotencyKey() option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		if req.Method == http.MethodPost && req.Header.Get(IdempotencyKeyHeader) == "" {
			key, err := uuid.NewV7()
			if err != nil {
				return nil, err
			}
			req.Header.Set(IdempotencyKeyHeader, key.String())
		}
		return next(req)
	}
}
