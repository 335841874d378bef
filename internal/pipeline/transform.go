package pipeline

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
)

// StationParser implements Parser on top of the domain feed decoder and
// station builder.
type StationParser struct {
	builder *domain.Builder
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStationParser creates a StationParser.
func NewStationParser(logger *slog.Logger, metrics *observability.Metrics) *StationParser {
	return &StationParser{
		builder: domain.NewBuilder(logger),
		logger:  logger,
		metrics: metrics,
	}
}

func (p *StationParser) Parse(feed string, payload []byte, ws *domain.WorkingSet) (domain.BuildStats, error) {
	raws, err := domain.DecodeFeed(bytes.NewReader(payload))
	if err != nil {
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			pe.Feed = feed
		}
		return domain.BuildStats{}, err
	}

	stats := p.builder.BuildInto(ws, feed, raws)
	p.metrics.StationFailures.Add(float64(stats.Failed))
	p.metrics.DroppedParameters.Add(float64(stats.DroppedParameters))

	p.logger.Info("feed parsed",
		"feed", feed,
		"stations", stats.Built,
		"failed", stats.Failed,
		"dropped_parameters", stats.DroppedParameters,
	)
	return stats, nil
}
