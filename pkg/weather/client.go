package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lox/vcweather/internal/httputil"
	"github.com/lox/vcweather/internal/metrics"
)

var tracer = otel.Tracer("vcweather-timeline-client")

// maxErrorBody caps the response text kept on a StatusError.
const maxErrorBody = 512

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchResult describes the most recent fetch attempt, successful or not.
type FetchResult struct {
	URL          string // API key redacted
	Kind         string // "forecast" or "range"
	StartedAt    time.Time
	Duration     time.Duration
	HTTPStatus   int
	ResponseSize int
	Body         []byte
	DayCount     int
	Err          error
}

// Success reports whether the attempt replaced the client's result.
func (f FetchResult) Success() bool {
	return f.Err == nil && !f.StartedAt.IsZero()
}

// Client fetches timeline data for one API key and holds the last result.
// It is safe for concurrent use; a fetch replaces the stored result only
// after the whole response has been mapped.
type Client struct {
	baseURL    string
	httpClient Doer
	log        *slog.Logger

	mu     sync.RWMutex
	apiKey string
	result *QueryResult
	last   FetchResult
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client. An empty apiKey is allowed; fetches fail with
// ErrConfiguration until SetAPIKey is called.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = httputil.NewClient()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
}

func (c *Client) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch requests timeline data for location and replaces the stored result.
// On any error the previous result is left untouched.
func (c *Client) Fetch(ctx context.Context, location string, opts ...QueryOption) (err error) {
	q := newQuery(opts)
	apiKey := c.APIKey()

	rawURL, err := buildURL(c.baseURL, apiKey, location, q)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "fetch-timeline", trace.WithAttributes(
		attribute.String("weather.location", location),
		attribute.String("weather.kind", q.kind()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fr := FetchResult{
		URL:       redactKey(rawURL, apiKey),
		Kind:      q.kind(),
		StartedAt: time.Now(),
	}
	defer func() {
		fr.Duration = time.Since(fr.StartedAt)
		fr.Err = err
		c.mu.Lock()
		c.last = fr
		c.mu.Unlock()
	}()

	log := c.log.With("location", location, "kind", fr.Kind)
	log.Debug("fetching timeline", "url", fr.URL)

	body, status, err := c.get(ctx, rawURL, apiKey, fr.Kind)
	fr.HTTPStatus = status
	fr.ResponseSize = len(body)
	fr.Body = body
	if err != nil {
		log.Warn("timeline request failed", "status", status, "error", err)
		return err
	}
	span.SetAttributes(attribute.Int("http.response_size", len(body)))

	result, err := Parse(body)
	if err != nil {
		metrics.ParseFailures.Inc()
		log.Warn("timeline response rejected", "bytes", len(body), "error", err)
		return err
	}
	fr.DayCount = len(result.Days)
	metrics.DaysParsed.Add(float64(len(result.Days)))

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()

	log.Debug("timeline mapped",
		"status", status,
		"bytes", len(body),
		"days", len(result.Days),
		"stations", len(result.Stations),
	)
	return nil
}

// FetchForecast requests the service's default forecast period for location.
func (c *Client) FetchForecast(ctx context.Context, location string) error {
	return c.Fetch(ctx, location)
}

// Load maps a previously saved response body and replaces the stored result.
func (c *Client) Load(body []byte) error {
	result, err := Parse(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.result = result
	c.mu.Unlock()
	return nil
}

// get performs the request. Errors and error bodies never carry apiKey.
func (c *Client) get(ctx context.Context, rawURL, apiKey, kind string) ([]byte, int, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.APICallsTotal.WithLabelValues(kind, status).Inc()
		metrics.APILatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactKey(uerr.URL, apiKey)
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, redactError(err, apiKey))
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if apiKey != "" {
			body = bytes.ReplaceAll(body, []byte(apiKey), []byte(redacted))
		}
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return body, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: text}
	}
	return body, resp.StatusCode, nil
}

// LastFetch returns the audit record of the most recent Fetch. The zero value
// means no fetch has been attempted.
func (c *Client) LastFetch() FetchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Result returns a copy of the stored result, false before any successful fetch.
func (c *Client) Result() (QueryResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return QueryResult{}, false
	}
	return c.result.clone(), true
}
