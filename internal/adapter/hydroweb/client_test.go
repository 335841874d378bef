package hydroweb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "hydro"
	testPassword = "secret"
	feedBody     = `<?xml version="1.0" encoding="UTF-8"?><locations><station number="2135" name="Aare - Bern"/></locations>`
)

type memoryWriter struct {
	files map[string][]byte
	err   error
}

func (m *memoryWriter) WriteRaw(feed string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[feed] = payload
	return nil
}

func testClient(raw RawWriter, timeout time.Duration) *Client {
	cfg := &config.Config{FeedUser: testUser, FeedPassword: testPassword, FetchTimeout: timeout}
	return NewClient(cfg, raw, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Ingest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testUser, user)
		assert.Equal(t, testPassword, pass)
		assert.Equal(t, http.MethodGet, r.Method)

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	raw := &memoryWriter{}
	c := testClient(raw, 5*time.Second)

	payload, err := c.Ingest(context.Background(), config.Feed{Name: config.FeedPrimary, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, feedBody, string(payload))
	assert.Equal(t, feedBody, string(raw.files[config.FeedPrimary]))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FeedFetches.WithLabelValues(config.FeedPrimary, "success")))
}

func TestClient_Ingest_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", maxErrorBody*2)))
	}))
	defer srv.Close()

	raw := &memoryWriter{}
	c := testClient(raw, 5*time.Second)

	_, err := c.Ingest(context.Background(), config.Feed{Name: config.FeedSecondary, URL: srv.URL})
	require.Error(t, err)

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, config.FeedSecondary, fe.Feed)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	assert.Len(t, fe.Body, maxErrorBody)
	assert.Contains(t, err.Error(), "401")
	assert.Empty(t, raw.files, "failed fetch must not overwrite the raw file")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FeedFetches.WithLabelValues(config.FeedSecondary, "error")))
}

func TestClient_Ingest_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(&memoryWriter{}, 50*time.Millisecond)

	_, err := c.Ingest(context.Background(), config.Feed{Name: config.FeedPrimary, URL: srv.URL})
	require.Error(t, err)

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}

func TestClient_Ingest_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(&memoryWriter{}, time.Second)

	_, err := c.Ingest(context.Background(), config.Feed{Name: config.FeedPrimary, URL: url})
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, err.Error(), "fetch feed bafu_url_2")
}

func TestClient_Ingest_RawWriteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	diskErr := errors.New("disk full")
	c := testClient(&memoryWriter{err: diskErr}, time.Second)

	_, err := c.Ingest(context.Background(), config.Feed{Name: config.FeedPrimary, URL: srv.URL})
	require.ErrorIs(t, err, diskErr)

	var fe *domain.FetchError
	assert.False(t, errors.As(err, &fe))
}
