package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var errMissingNumber = errors.New("station has no number attribute")

// NormalizeParameter coerces one raw parameter into a reading. Each statistic
// is parsed on its own; an unavailable one never affects its siblings.
func NormalizeParameter(raw RawParameter) ParameterReading {
	return ParameterReading{
		Unit:        strings.TrimSpace(raw.Unit),
		Datetime:    strings.TrimSpace(raw.Datetime.Text),
		Value:       ParseValue(raw.Value.Text),
		Previous24h: ParseValue(raw.Previous24h.Text),
		Delta24h:    ParseValue(raw.Delta24h.Text),
		Max24h:      ParseValue(raw.Max24h.Text),
		Mean24h:     ParseValue(raw.Mean24h.Text),
		Min24h:      ParseValue(raw.Min24h.Text),
		Max1h:       ParseValue(raw.Max1h.Text),
		Mean1h:      ParseValue(raw.Mean1h.Text),
		Min1h:       ParseValue(raw.Min1h.Text),
	}
}

// BuildStats summarizes one BuildInto call.
type BuildStats struct {
	Built             int
	Failed            int
	DroppedParameters int
}

// Builder assembles stations from raw feed records.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder that reports skipped records to logger.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build converts one raw station. Parameters with an unknown name are dropped
// with a warning. A station without parameters is valid and gets an empty map.
func (b *Builder) Build(raw RawStation) (Station, error) {
	st, _, err := b.build(raw)
	return st, err
}

func (b *Builder) build(raw RawStation) (Station, int, error) {
	id := strings.TrimSpace(raw.Number)
	if id == "" {
		return Station{}, 0, &ParseError{Err: fmt.Errorf("%w (name %q)", errMissingNumber, raw.Name)}
	}

	st := Station{
		ID:            id,
		Name:          raw.Name,
		WaterBodyName: raw.WaterBodyName,
		WaterBodyType: raw.WaterBodyType,
		Coordinates:   ToGeoPoint(ParseValue(raw.Easting), ParseValue(raw.Northing)),
		Parameters:    make(map[Category]ParameterReading, len(raw.Parameters)),
	}

	if len(raw.Parameters) == 0 {
		b.logger.Info("station provides no parameters", "station_id", id, "station", raw.Name)
		return st, 0, nil
	}

	dropped := 0
	for _, p := range raw.Parameters {
		category, ok := CategoryFor(p.Name)
		if !ok {
			b.logger.Warn("unknown parameter name, skipping",
				"station_id", id,
				"station", raw.Name,
				"parameter", p.Name,
			)
			dropped++
			continue
		}
		st.Parameters[category] = NormalizeParameter(p)
	}
	return st, dropped, nil
}

// BuildInto builds every raw station into ws. Stations are isolated from each
// other: a failure, including a panic, is logged and the batch continues.
func (b *Builder) BuildInto(ws *WorkingSet, feed string, raws []RawStation) BuildStats {
	var stats BuildStats
	for i := range raws {
		st, dropped, err := b.safeBuild(raws[i])
		stats.DroppedParameters += dropped
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) && pe.Feed == "" {
				pe.Feed = feed
			}
			b.logger.Warn("skipping station", "feed", feed, "index", i, "error", err)
			stats.Failed++
			continue
		}
		ws.Put(st)
		stats.Built++
	}
	return stats
}

func (b *Builder) safeBuild(raw RawStation) (st Station, dropped int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{StationID: raw.Number, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return b.build(raw)
}
