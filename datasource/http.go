package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Default retry policy for the HTTP source. Retries here are transport-level
// (connection resets, 5xx); a request that exhausts them still surfaces as a
// single fetch failure to the cache.
const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

// ErrEmptyBaseURL is returned when an HTTP source is created without a URL.
var ErrEmptyBaseURL = errors.New("http source base URL cannot be empty")

// retryLogger adapts zerolog to the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...any) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

// HTTPSource fetches windows from a JSON endpoint. Requests are issued as
//
//	GET {base}?offset=N&limit=M&sort=key:asc,other:desc
//
// and the endpoint answers with an envelope:
//
//	{"items": [...], "total": 123}        // exact-count backend
//	{"items": [...], "hasMore": true}     // streaming backend
//
// Transport retries use hashicorp/go-retryablehttp with conservative
// defaults; override via HTTPOption values.
type HTTPSource[T any] struct {
	base   *url.URL
	client *retryablehttp.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*retryablehttp.Client)

// WithRetryMax overrides the maximum number of transport retries.
func WithRetryMax(n int) HTTPOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithHTTPLogger routes transport retry logging to the given zerolog logger.
func WithHTTPLogger(log zerolog.Logger) HTTPOption {
	return func(c *retryablehttp.Client) {
		c.Logger = &retryLogger{log: log}
	}
}

// NewHTTPSource creates a source for the given base URL.
func NewHTTPSource[T any](baseURL string, opts ...HTTPOption) (*HTTPSource[T], error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrEmptyBaseURL
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.RetryWaitMin = defaultRetryWaitMin
	client.RetryWaitMax = defaultRetryWaitMax
	client.Logger = nil

	for _, opt := range opts {
		opt(client)
	}

	return &HTTPSource[T]{base: base, client: client}, nil
}

// envelope is the wire shape of a fetch response. Pointer fields distinguish
// "absent" from zero values so the counting style is unambiguous.
type envelope[T any] struct {
	Items   []T   `json:"items"`
	Total   *int  `json:"total"`
	HasMore *bool `json:"hasMore"`
}

// Fetch implements Source.
func (s *HTTPSource[T]) Fetch(ctx context.Context, req Request) (Result[T], error) {
	u := *s.base
	q := u.Query()
	q.Set("offset", strconv.Itoa(req.Offset))
	q.Set("limit", strconv.Itoa(req.Limit))
	if len(req.Sort) > 0 {
		keys := make([]string, 0, len(req.Sort))
		for _, k := range req.Sort {
			keys = append(keys, k.String())
		}
		q.Set("sort", strings.Join(keys, ","))
	}
	u.RawQuery = q.Encode()

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result[T]{}, fmt.Errorf("failed to build fetch request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Result[T]{}, fmt.Errorf("fetch request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the transport can reuse the connection.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result[T]{}, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	var env envelope[T]
	if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil {
		return Result[T]{}, fmt.Errorf("failed to decode fetch response: %w", decodeErr)
	}

	result := Result[T]{Items: env.Items}
	switch {
	case env.Total != nil:
		result.Total = *env.Total
		result.HasTotal = true
	case env.HasMore != nil:
		result.HasMore = *env.HasMore
	}

	return result, nil
}
