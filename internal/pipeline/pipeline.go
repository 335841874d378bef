package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hydro-refresh")

// FeedIngestor downloads one feed and persists its raw payload.
type FeedIngestor interface {
	Ingest(ctx context.Context, feed config.Feed) ([]byte, error)
}

// Parser decodes a feed payload and merges its stations into ws.
type Parser interface {
	Parse(feed string, payload []byte, ws *domain.WorkingSet) (domain.BuildStats, error)
}

// SnapshotWriter persists a finished snapshot.
type SnapshotWriter interface {
	WriteSnapshot(snap *domain.Snapshot) error
}

// SnapshotCache receives every persisted snapshot.
type SnapshotCache interface {
	Publish(snap *domain.Snapshot)
	Ready() bool
}

// StationPublisher forwards a snapshot to downstream consumers.
type StationPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// State is the phase of the refresh loop.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateParsing
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateWriting:
		return "writing"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clk clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = clk }
}

// WithStationPublisher enables publishing after each successful refresh.
func WithStationPublisher(pub StationPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// Pipeline runs the fetch-parse-write refresh loop.
type Pipeline struct {
	feeds     []config.Feed
	interval  time.Duration
	ingestor  FeedIngestor
	parser    Parser
	writer    SnapshotWriter
	cache     SnapshotCache
	publisher StationPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	state     atomic.Int32
}

// New creates a Pipeline that refreshes feeds, in order, every interval.
func New(feeds []config.Feed, interval time.Duration, in FeedIngestor, parser Parser, w SnapshotWriter, c SnapshotCache, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		feeds:    feeds,
		interval: interval,
		ingestor: in,
		parser:   parser,
		writer:   w,
		cache:    c,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current phase of the loop.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// CheckReadiness returns nil once a snapshot is available, either restored
// from storage or built by a refresh.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.cache.Ready() {
		return errors.New("no station snapshot available yet")
	}
	return nil
}

// Run refreshes immediately and then once per interval until ctx is
// cancelled. Cancellation is only observed between cycles; a running cycle
// always completes. Upstream and parse failures keep the previous snapshot
// and the loop going. A storage failure stops the loop and is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	p.logger.Info("refresh loop started", "interval", p.interval, "feeds", len(p.feeds))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.cycle(context.WithoutCancel(ctx)); err != nil && !isTransient(err) {
			p.logger.Error("refresh loop stopped", "error", err)
			return err
		}

		select {
		case <-ctx.Done():
			p.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce executes a single refresh cycle and returns its error, if any.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	return p.cycle(ctx)
}

func (p *Pipeline) cycle(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "refresh-cycle")
	start := p.clock.Now()
	defer func() {
		p.setState(StateIdle)
		outcome := "success"
		if err != nil {
			outcome = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if isTransient(err) {
				p.logger.Warn("refresh failed, keeping previous snapshot", "error", err)
			}
		}
		p.metrics.RefreshCycles.WithLabelValues(outcome).Inc()
		p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
		span.End()
	}()

	ws := domain.NewWorkingSet()
	for _, feed := range p.feeds {
		if err := p.refreshFeed(ctx, feed, ws); err != nil {
			return err
		}
	}

	snap := ws.Snapshot()
	span.SetAttributes(attribute.Int("stations", len(snap.List)))

	p.setState(StateWriting)
	if err := p.writer.WriteSnapshot(snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	p.cache.Publish(snap)

	p.metrics.SnapshotStations.Set(float64(len(snap.List)))
	p.metrics.LastRefreshTimestamp.Set(float64(snap.BuiltAt.Unix()))
	p.logger.Info("snapshot refreshed",
		"stations", len(snap.List),
		"duration", p.clock.Since(start),
	)

	if p.publisher != nil {
		if err := p.publisher.PublishSnapshot(ctx, snap); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Warn("publish station updates failed", "error", err)
		}
	}
	return nil
}

func (p *Pipeline) refreshFeed(ctx context.Context, feed config.Feed, ws *domain.WorkingSet) error {
	ctx, span := tracer.Start(ctx, "refresh-feed")
	defer span.End()
	span.SetAttributes(attribute.String("feed", feed.Name))

	p.setState(StateFetching)
	payload, err := p.ingestor.Ingest(ctx, feed)
	if err != nil {
		return err
	}

	p.setState(StateParsing)
	stats, err := p.parser.Parse(feed.Name, payload, ws)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("stations.built", stats.Built), attribute.Int("stations.failed", stats.Failed))
	return nil
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
	p.metrics.PipelineState.Set(float64(s))
}

// isTransient reports failures that only cost the current cycle.
func isTransient(err error) bool {
	var fe *domain.FetchError
	var pe *domain.ParseError
	return errors.As(err, &fe) || errors.As(err, &pe)
}
