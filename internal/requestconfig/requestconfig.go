// Package requestconfig builds, sends and decodes a single API request.
package requestconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/broady/orb/internal"
	"github.com/broady/orb/internal/apierror"
	"github.com/broady/orb/internal/apijson"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.withorb.com/v1/"

// MiddlewareNext sends the request to the next middleware, or to the network.
type MiddlewareNext = func(*http.Request) (*http.Response, error)

// Middleware wraps the round trip of every request.
//
//	func timing(req *http.Request, next requestconfig.MiddlewareNext) (*http.Response, error) {
//	    start := time.Now()
//	    res, err := next(req)
//	    log.Printf("%s %s took %v", req.Method, req.URL.Path, time.Since(start))
//	    return res, err
//	}
//
// Middlewares may inspect or modify the request before calling next, inspect
// the response after, or short-circuit by returning without calling next.
type Middleware = func(*http.Request, MiddlewareNext) (*http.Response, error)

// RequestOption configures a [RequestConfig].
type RequestOption = func(*RequestConfig) error

// URLQuerier is implemented by params that contribute query parameters.
type URLQuerier interface {
	URLQuery() (url.Values, error)
}

// RequestConfig holds everything needed to send one request.
type RequestConfig struct {
	Context           context.Context
	Request           *http.Request
	BaseURL           *url.URL
	APIKey            string
	HTTPClient        *http.Client
	Logger            *slog.Logger
	Middlewares       []Middleware
	ValidateParams    bool
	ValidateResponses bool

	// Body is the encoded request body, or nil.
	Body []byte
	// ResponseBodyInto receives the decoded response. A nil value discards it.
	ResponseBodyInto any
}

// NewRequestConfig encodes params into a request for path, then applies opts
// in order. path is relative to the base URL.
func NewRequestConfig(ctx context.Context, method, path string, params any, dst any, opts ...RequestOption) (*RequestConfig, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	// Resolving against the base URL would drop dot segments and send the
	// request to another endpoint.
	for _, seg := range strings.Split(rel.EscapedPath(), "/") {
		if seg == "." || seg == ".." {
			return nil, fmt.Errorf("invalid path parameter %q in %q", seg, path)
		}
	}

	var body []byte
	if params != nil {
		if err := apijson.CheckRequired(params); err != nil {
			return nil, err
		}
		if q, ok := params.(URLQuerier); ok {
			values, err := q.URLQuery()
			if err != nil {
				return nil, fmt.Errorf("encoding query: %w", err)
			}
			rel.RawQuery = values.Encode()
		}
		if hasBody(method) {
			body, err = json.Marshal(params)
			if err != nil {
				return nil, fmt.Errorf("encoding body: %w", err)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, "", nil)
	if err != nil {
		return nil, err
	}
	req.URL = rel
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "orb-go/"+internal.PackageVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	base, _ := url.Parse(DefaultBaseURL)
	cfg := &RequestConfig{
		Context:          ctx,
		Request:          req,
		BaseURL:          base,
		HTTPClient:       http.DefaultClient,
		Logger:           slog.Default(),
		Body:             body,
		ResponseBodyInto: dst,
	}
	if err := cfg.Apply(opts...); err != nil {
		return nil, err
	}
	if cfg.ValidateParams && params != nil {
		if err := apijson.ValidateParams(params); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func hasBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return false
	}
	return true
}

// Apply runs each option against cfg, stopping at the first error.
func (cfg *RequestConfig) Apply(opts ...RequestOption) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Execute sends the request and decodes the response into ResponseBodyInto.
// Non-2xx responses become *apierror.Error. Nothing is retried.
func (cfg *RequestConfig) Execute() error {
	base := *cfg.BaseURL
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}
	req := cfg.Request
	req.URL = base.ResolveReference(req.URL)
	req.Host = req.URL.Host
	if cfg.Body != nil {
		body := cfg.Body
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	handler := chainMiddlewares(cfg.Middlewares, client.Do)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := req.Context()

	start := time.Now()
	res, err := handler(req)
	if err != nil {
		logger.DebugContext(ctx, "request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", apierror.ErrConnection, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %w", apierror.ErrConnection, err)
	}
	logger.DebugContext(ctx, "request completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apierror.New(req, res, data)
	}

	dst := cfg.ResponseBodyInto
	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := dst.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		var derr *apijson.DecodeError
		if !errors.As(err, &derr) {
			err = &apijson.DecodeError{Type: typeName(dst), Err: err}
		}
		logger.WarnContext(ctx, "response decode failed",
			slog.String("path", req.URL.Path),
			slog.Any("error", err),
		)
		return err
	}

	if cfg.ValidateResponses {
		if err := apijson.Validate(dst); err != nil {
			logger.WarnContext(ctx, "response validation failed",
				slog.String("path", req.URL.Path),
				slog.Any("error", err),
			)
			return err
		}
	}
	return nil
}

// chainMiddlewares combines middlewares around send.
// The first middleware in the slice is the outer-most one (runs first).
func chainMiddlewares(middlewares []Middleware, send MiddlewareNext) MiddlewareNext {
	chain := send
	for i := len(middlewares) - 1; i >= 0; i-- {
		current := middlewares[i]
		next := chain
		chain = func(req *http.Request) (*http.Response, error) {
			return current(req, next)
		}
	}
	return chain
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "value"
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// ExecuteNewRequest builds a request with [NewRequestConfig] and executes it.
func ExecuteNewRequest(ctx context.Context, method, path string, params any, dst any, opts ...RequestOption) error {
	cfg, err := NewRequestConfig(ctx, method, path, params, dst, opts...)
	if err != nil {
		return err
	}
	return cfg.Execute()
}
