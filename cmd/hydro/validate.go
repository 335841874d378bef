package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/swiss-hydro-service/internal/adapter/filestore"
	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/spf13/cobra"
)

// Rough WGS84 envelope of Switzerland with a small margin.
const (
	minLat, maxLat = 45.7, 47.9
	minLon, maxLon = 5.8, 10.6
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Cross-check the persisted snapshot against the raw feed files",
		Long: `Validate decodes the raw feed files in DATA_DIR, loads station_list.json and
station_data.json, and verifies that both agree: every station in the feeds is
present with the values of the last feed that carried it, the list and the data
file describe the same stations, and coordinates fall inside Switzerland.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return validate(cmd.OutOrStdout(), filestore.New(cfg.DataDir), cfg.FeedNames())
		},
	}
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var errValidationFailed = errors.New("validation failed")

func validate(out io.Writer, store *filestore.Store, feeds []string) error {
	raw, err := loadRawFeeds(store, feeds)
	if err != nil {
		return err
	}
	snap, err := store.ReadSnapshotFiles()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	phases := []*phase{
		validateSnapshotShape(snap),
		validateFeedCoverage(raw, snap),
		validateCoordinates(snap),
	}

	fmt.Fprintf(out, "%d stations in %d feeds, %d in snapshot\n\n", len(raw.List), len(feeds), len(snap.List))
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if !allPassed {
		return errValidationFailed
	}
	fmt.Fprintln(out, "\nAll validations passed.")
	return nil
}

// loadRawFeeds rebuilds the expected station set from the raw files, merged
// in ingestion order.
func loadRawFeeds(store *filestore.Store, feeds []string) (*domain.Snapshot, error) {
	builder := domain.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ws := domain.NewWorkingSet()
	for _, feed := range feeds {
		payload, err := os.ReadFile(store.RawPath(feed))
		if err != nil {
			return nil, fmt.Errorf("read raw feed %s: %w", feed, err)
		}
		raws, err := domain.DecodeFeed(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("decode raw feed %s: %w", feed, err)
		}
		builder.BuildInto(ws, feed, raws)
	}
	return ws.Snapshot(), nil
}

func validateSnapshotShape(snap *domain.Snapshot) *phase {
	p := &phase{name: "List and data files agree"}
	seen := make(map[string]bool, len(snap.List))
	for _, s := range snap.List {
		if seen[s.ID] {
			p.errorf("station %s listed twice", s.ID)
		}
		seen[s.ID] = true

		st, ok := snap.Stations[s.ID]
		if !ok {
			p.errorf("station %s listed but missing from %s", s.ID, filestore.StationDataFile)
			continue
		}
		if st.Summary() != s {
			p.errorf("station %s: list entry %+v differs from data %+v", s.ID, s, st.Summary())
		}
	}
	for id := range snap.Stations {
		if !seen[id] {
			p.errorf("station %s in %s but not listed", id, filestore.StationDataFile)
		}
	}
	return p
}

func validateFeedCoverage(expected, snap *domain.Snapshot) *phase {
	p := &phase{name: "Snapshot matches raw feeds"}
	for i, want := range expected.List {
		got, ok := snap.Stations[want.ID]
		if !ok {
			p.errorf("station %s (%s) missing from snapshot", want.ID, want.Name)
			continue
		}
		if i < len(snap.List) && snap.List[i].ID != want.ID {
			p.errorf("position %d: want station %s, got %s", i, want.ID, snap.List[i].ID)
		}
		if got.Summary() != want {
			p.errorf("station %s: metadata %+v, feed says %+v", want.ID, got.Summary(), want)
		}
		compareParameters(p, want.ID, expected.Stations[want.ID].Parameters, got.Parameters)
	}
	if len(snap.List) != len(expected.List) {
		p.errorf("snapshot has %d stations, feeds have %d", len(snap.List), len(expected.List))
	}
	return p
}

func compareParameters(p *phase, id string, want, got map[domain.Category]domain.ParameterReading) {
	for _, c := range domain.Categories() {
		w, inWant := want[c]
		g, inGot := got[c]
		switch {
		case inWant && !inGot:
			p.errorf("station %s: %s reading missing", id, c)
		case !inWant && inGot:
			p.errorf("station %s: unexpected %s reading", id, c)
		case inWant && inGot && !readingsEqual(w, g):
			p.errorf("station %s: %s reading differs from feed", id, c)
		}
	}
}

func readingsEqual(a, b domain.ParameterReading) bool {
	return a.Unit == b.Unit &&
		a.Datetime == b.Datetime &&
		a.Value.Equal(b.Value) &&
		a.Previous24h.Equal(b.Previous24h) &&
		a.Delta24h.Equal(b.Delta24h) &&
		a.Max24h.Equal(b.Max24h) &&
		a.Mean24h.Equal(b.Mean24h) &&
		a.Min24h.Equal(b.Min24h) &&
		a.Max1h.Equal(b.Max1h) &&
		a.Mean1h.Equal(b.Mean1h) &&
		a.Min1h.Equal(b.Min1h)
}

func validateCoordinates(snap *domain.Snapshot) *phase {
	p := &phase{name: "Coordinates inside Switzerland"}
	for _, s := range snap.List {
		c := snap.Stations[s.ID].Coordinates
		lat, latOK := c.Latitude.Get()
		lon, lonOK := c.Longitude.Get()
		if latOK != lonOK {
			p.errorf("station %s: only one coordinate present", s.ID)
			continue
		}
		if !latOK {
			continue
		}
		if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
			p.errorf("station %s: (%.5f, %.5f) outside Switzerland", s.ID, lat, lon)
		}
	}
	return p
}
