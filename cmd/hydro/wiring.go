package main

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/swiss-hydro-service/internal/adapter/filestore"
	"github.com/couchcryptid/swiss-hydro-service/internal/adapter/hydroweb"
	kafkaadapter "github.com/couchcryptid/swiss-hydro-service/internal/adapter/kafka"
	"github.com/couchcryptid/swiss-hydro-service/internal/cache"
	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/couchcryptid/swiss-hydro-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

const serviceName = "swiss-hydro"

// newLogger installs the shared slog setup as the default logger and returns
// it tagged with the service name.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
}

// refreshStack is everything a refresh cycle needs.
type refreshStack struct {
	store     *filestore.Store
	snapshots *cache.Cache
	pipeline  *pipeline.Pipeline
	publisher *kafkaadapter.Publisher // nil unless KAFKA_ENABLED
}

func newRefreshStack(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *refreshStack {
	clk := clockwork.NewRealClock()
	store := filestore.New(cfg.DataDir)
	snapshots := cache.New(store, cfg.CacheTTL, clk, metrics, logger)

	rs := &refreshStack{store: store, snapshots: snapshots}

	opts := []pipeline.Option{pipeline.WithClock(clk)}
	if cfg.KafkaEnabled {
		rs.publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, pipeline.WithStationPublisher(rs.publisher))
		logger.Info("station update publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	rs.pipeline = pipeline.New(
		cfg.Feeds,
		cfg.RefreshInterval,
		hydroweb.NewClient(cfg, store, metrics, logger),
		pipeline.NewStationParser(logger, metrics),
		store,
		snapshots,
		logger,
		metrics,
		opts...,
	)
	return rs
}

func (rs *refreshStack) close(logger *slog.Logger) {
	if rs.publisher == nil {
		return
	}
	if err := rs.publisher.Close(); err != nil {
		logger.Error("kafka publisher close error", "error", err)
	}
}
