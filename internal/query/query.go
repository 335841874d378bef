package query

import (
	"sort"
	"strings"

	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
)

// SnapshotSource supplies the snapshot a lookup runs against.
type SnapshotSource interface {
	Get() *domain.Snapshot
}

// Service answers read queries. Every call works on exactly one snapshot, so
// a refresh landing mid-request is never observed partially.
type Service struct {
	source SnapshotSource
}

// NewService creates a query service over source.
func NewService(source SnapshotSource) *Service {
	return &Service{source: source}
}

// Stations returns the station list in snapshot order.
func (s *Service) Stations() []domain.StationSummary {
	return s.source.Get().List
}

// StationData returns the full id to station mapping.
func (s *Service) StationData() map[string]domain.Station {
	return s.source.Get().Stations
}

// Station looks a station up by id, then by exact name. When several stations
// share the name the one with the lowest id wins.
func (s *Service) Station(idOrName string) (domain.Station, error) {
	return lookup(s.source.Get(), idOrName)
}

// Resolve narrows a station down along path, e.g.
// ("2135", "parameters", "level", "mean1h").
func (s *Service) Resolve(idOrName string, path ...string) (any, error) {
	st, err := lookup(s.source.Get(), idOrName)
	if err != nil {
		return nil, err
	}
	return resolveStation(st, trimPath(path))
}

func lookup(snap *domain.Snapshot, idOrName string) (domain.Station, error) {
	if st, ok := snap.Stations[idOrName]; ok {
		return st, nil
	}
	var matches []string
	for id, st := range snap.Stations {
		if st.Name == idOrName {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		return domain.Station{}, domain.ErrStationNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return lessID(matches[i], matches[j]) })
	return snap.Stations[matches[0]], nil
}

// lessID orders numeric ids numerically and falls back to string order.
func lessID(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func trimPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, p := range path {
		for _, seg := range strings.Split(p, "/") {
			if seg != "" {
				out = append(out, seg)
			}
		}
	}
	return out
}

func resolveStation(st domain.Station, path []string) (any, error) {
	if len(path) == 0 {
		return st, nil
	}
	head, rest := path[0], path[1:]
	switch head {
	case "name":
		return leaf(st.Name, rest)
	case "water-body-name":
		return leaf(st.WaterBodyName, rest)
	case "water-body-type":
		return leaf(st.WaterBodyType, rest)
	case "coordinates":
		return resolveCoordinates(st.Coordinates, rest)
	case "parameters":
		return resolveParameters(st.Parameters, rest)
	}
	return nil, domain.ErrUnknownField
}

func leaf(v any, rest []string) (any, error) {
	if len(rest) > 0 {
		return nil, domain.ErrUnknownField
	}
	return v, nil
}

func resolveCoordinates(p domain.GeoPoint, path []string) (any, error) {
	if len(path) == 0 {
		return p, nil
	}
	switch path[0] {
	case "latitude":
		return leaf(p.Latitude, path[1:])
	case "longitude":
		return leaf(p.Longitude, path[1:])
	}
	return nil, domain.ErrUnknownField
}

func resolveParameters(params map[domain.Category]domain.ParameterReading, path []string) (any, error) {
	if len(path) == 0 {
		return params, nil
	}
	category, ok := domain.ParseCategory(path[0])
	if !ok {
		return nil, domain.ErrUnknownField
	}
	reading, ok := params[category]
	if !ok {
		return nil, &domain.CategoryNotFoundError{Category: category}
	}
	if len(path) == 1 {
		return reading, nil
	}
	v, ok := readingField(reading, path[1])
	if !ok {
		return nil, domain.ErrUnknownField
	}
	return leaf(v, path[2:])
}

// readingField accepts the JSON key ("mean-1h") and the compact URL form ("mean1h").
func readingField(r domain.ParameterReading, name string) (any, bool) {
	switch strings.ReplaceAll(name, "-", "") {
	case "unit":
		return r.Unit, true
	case "datetime":
		return r.Datetime, true
	case "value":
		return r.Value, true
	case "previous24h":
		return r.Previous24h, true
	case "delta24h":
		return r.Delta24h, true
	case "max24h":
		return r.Max24h, true
	case "mean24h":
		return r.Mean24h, true
	case "min24h":
		return r.Min24h, true
	case "max1h":
		return r.Max1h, true
	case "mean1h":
		return r.Mean1h, true
	case "min1h":
		return r.Min1h, true
	}
	return nil, false
}
