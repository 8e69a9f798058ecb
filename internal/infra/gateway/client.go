package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/metrics"
	"github.com/PropertyListing/internal/infra/transformer"
	"github.com/PropertyListing/pkg/logging"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the properties API used when none is configured.
	DefaultBaseURL = "http://localhost:5058/api"

	DefaultRequestTimeout = 10 * time.Second

	breakerName = "properties-api"

	// Error bodies are truncated to this many bytes in StatusError.
	maxErrorBody = 512
)

// Client talks to the properties API. It never retries: a failed request is reported to the caller as is.
type Client struct {
	baseURL     string
	client      *http.Client
	transformer *transformer.PropertyTransformer
	cb          *gobreaker.CircuitBreaker
	group       singleflight.Group
	sampler     *logging.ErrorSampler
}

func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: DefaultRequestTimeout})
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cbSettings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes and cancellations say nothing about upstream health.
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return !statusErr.Temporary()
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      httpClient,
		transformer: transformer.NewPropertyTransformer(),
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		sampler:     logging.NewErrorSampler(10),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPage requests one page of GET /properties. Input is validated before any I/O.
func (c *Client) FetchPage(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
	if err := q.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	ctx, span := otel.Tracer("gateway").Start(ctx, "FetchPage", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int("page", q.Page),
		attribute.Int("page_size", q.PageSize),
		attribute.String("sort_by", string(q.Sort.By)),
	)

	reqURL := c.baseURL + "/properties?" + q.Values().Encode()

	var page *domain.Page
	err := c.do(ctx, "list", reqURL, func(body io.Reader) error {
		var decodeErr error
		page, decodeErr = c.transformer.TransformPage(body)
		return decodeErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.sampler.Error("fetch_page", "Failed to fetch properties page", "page", q.Page, "error", err)
		return nil, err
	}
	c.sampler.Reset("fetch_page")

	span.SetAttributes(attribute.Int("items", len(page.Data)), attribute.Bool("has_next_page", page.HasNextPage))
	slog.Debug("Fetched properties page",
		"page", page.Page, "items", len(page.Data), "total", page.Total, "has_next_page", page.HasNextPage)
	return page, nil
}

// GetProperty requests GET /properties/{id}. Concurrent lookups of the same ID share one request.
func (c *Client) GetProperty(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Err: fmt.Errorf("%w: property id is required", domain.ErrInvalidQuery)}
	}

	ctx, span := otel.Tracer("gateway").Start(ctx, "GetProperty", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("property_id", id))

	v, err, shared := c.group.Do(id, func() (interface{}, error) {
		var detail *domain.PropertyDetail
		err := c.do(ctx, "detail", c.baseURL+"/properties/"+url.PathEscape(id), func(body io.Reader) error {
			var decodeErr error
			detail, decodeErr = c.transformer.TransformDetail(body)
			return decodeErr
		})
		return detail, err
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return v.(*domain.PropertyDetail), nil
}

// Ping sends the smallest possible list request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.FetchPage(ctx, domain.Query{}.WithPage(1, 1))
	return err
}

func (c *Client) do(ctx context.Context, endpoint, reqURL string, decode func(io.Reader) error) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if endpoint == "list" {
			metrics.PagesFetched.WithLabelValues(status).Inc()
		}
	}()

	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Warn("Failed to close response body", "error", err)
			}
		}()

		status = strconv.Itoa(resp.StatusCode)
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		if err := decode(resp.Body); err != nil {
			status = "decode_error"
			return nil, err
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		status = "breaker_open"
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return err
}
