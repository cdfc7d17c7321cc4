// Package httpapi implements the catalogx collaborator interfaces over
// the shop backend HTTP API: the search endpoint, the availability
// (enrichment) endpoint, and the cart endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/way7creation/catalogx"
)

const searchPath = "/api/search"

// Client talks to the shop backend API. It implements catalogx.Fetcher.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	getCredentials func() (Credentials, error)
	limiter        *rate.Limiter
	tracer         trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials sets the credential source used to authorize requests.
// Credentials are resolved lazily on the first request.
func WithCredentials(fetch FetchCredentials) ClientOption {
	return func(c *Client) {
		c.getCredentials = lazyCredentials(fetch)
	}
}

// WithRateLimit bounds outgoing requests to r per second with the given
// burst. Zero disables the limiter.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, burst)
		} else {
			c.limiter = nil
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		getCredentials: lazyCredentials(NoCredentials()),
		limiter:        rate.NewLimiter(10, 20),
		tracer:         otel.Tracer("catalogx-httpapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search implements catalogx.Fetcher over GET /api/search.
func (c *Client) Search(ctx context.Context, params url.Values) (*catalogx.SearchData, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.search",
		trace.WithAttributes(
			attribute.String("catalog.query", params.Get("q")),
			attribute.String("catalog.page", params.Get("page")),
			attribute.String("catalog.sort", params.Get("sort")),
		),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter wait failed")
			return nil, mapContextErr(err)
		}
	}

	body, err := c.get(ctx, searchPath, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, err
	}

	var envelope catalogx.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		span.SetStatus(codes.Error, "undecodable search response")
		return nil, errors.WithSecondaryError(
			catalogx.ErrProtocol,
			errors.Wrap(err, "failed to decode search response"),
		)
	}
	// A falsy success indicator or a missing data member is a failure
	// regardless of transport status.
	if !envelope.Success || envelope.Data == nil {
		span.SetStatus(codes.Error, "search response reported failure")
		return nil, errors.WithSecondaryError(
			catalogx.ErrProtocol,
			errors.Newf("response envelope success=%t data=%t", envelope.Success, envelope.Data != nil),
		)
	}

	span.SetAttributes(attribute.Int("catalog.total", envelope.Data.Total))
	span.SetStatus(codes.Ok, "search succeeded")
	return envelope.Data, nil
}

// get performs one GET request and returns the raw response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Wrap(err, "failed to build request"),
		)
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapContextErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Newf("request to %s returned HTTP %d", path, resp.StatusCode),
		)
	}
	return readAll(resp)
}

// postJSON performs one JSON POST and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return mapContextErr(err)
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(encoded)))
	if err != nil {
		return errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Wrap(err, "failed to build request"),
		)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.setHeaders(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapContextErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Newf("request to %s returned HTTP %d", path, resp.StatusCode),
		)
	}

	body, err := readAll(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WithSecondaryError(
			catalogx.ErrProtocol,
			errors.Wrapf(err, "failed to decode %s response", path),
		)
	}
	return nil
}

// setHeaders applies the headers every API request carries, including a
// fresh request id and optional bearer credentials.
func (c *Client) setHeaders(req *http.Request) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", ksuid.New().String())

	creds, err := c.getCredentials()
	if err != nil {
		return errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Wrap(err, "failed to resolve API credentials"),
		)
	}
	if creds.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	}
	return nil
}

func readAll(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithSecondaryError(
			catalogx.ErrTransport,
			errors.Wrap(err, "failed to read response body"),
		)
	}
	return body, nil
}

// mapContextErr maps context-driven failures onto the catalogx timeout
// and cancellation sentinels; everything else is a transport failure.
func mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return catalogx.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return catalogx.ErrCanceled
	}
	return errors.WithSecondaryError(
		catalogx.ErrTransport,
		errors.Wrap(err, "request failed"),
	)
}
