package hydroweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxErrorBody bounds how much of a failed response is kept in a FetchError.
const maxErrorBody = 4 << 10

var tracer = otel.Tracer("hydroweb-feed-client")

// RawWriter persists the raw payload of a feed.
type RawWriter interface {
	WriteRaw(feed string, payload []byte) error
}

// Client downloads hydroweb feeds with HTTP basic credentials.
type Client struct {
	httpClient *http.Client
	user       string
	password   string
	raw        RawWriter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client. Every request is bounded by cfg.FetchTimeout.
func NewClient(cfg *config.Config, raw RawWriter, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		user:     cfg.FeedUser,
		password: cfg.FeedPassword,
		raw:      raw,
		metrics:  metrics,
		logger:   logger,
	}
}

// Ingest fetches one feed and stores the payload before returning it. Upstream
// failures are *domain.FetchError; a failed raw write is returned as is.
func (c *Client) Ingest(ctx context.Context, feed config.Feed) ([]byte, error) {
	payload, err := c.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}
	if err := c.raw.WriteRaw(feed.Name, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Fetch performs a single GET of the feed URL.
func (c *Client) Fetch(ctx context.Context, feed config.Feed) (payload []byte, err error) {
	ctx, span := tracer.Start(ctx, "fetch-feed")
	span.SetAttributes(attribute.String("feed", feed.Name))
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.metrics.FeedFetches.WithLabelValues(feed.Name, outcome).Inc()
		c.metrics.FeedFetchDuration.WithLabelValues(feed.Name).Observe(time.Since(start).Seconds())
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, &domain.FetchError{Feed: feed.Name, Err: fmt.Errorf("create request: %w", err)}
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Feed: feed.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.FetchError{
			Feed:       feed.Name,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	payload, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Feed: feed.Name, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("feed fetched", "feed", feed.Name, "bytes", len(payload))
	return payload, nil
}
