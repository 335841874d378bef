package filestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *domain.Snapshot {
	ws := domain.NewWorkingSet()
	ws.Put(domain.Station{
		ID:            "2023",
		Name:          "Rhône - Porte du Scex",
		WaterBodyName: "Rhône",
		WaterBodyType: "river",
		Coordinates:   domain.ToGeoPoint(domain.Float(565000), domain.Float(128200)),
		Parameters: map[domain.Category]domain.ParameterReading{
			domain.CategoryTemperature: {
				Unit:     "°C",
				Datetime: "2024-05-02T10:50:00+01:00",
				Value:    domain.Float(12.3),
				Delta24h: domain.Empty(),
			},
		},
	})
	ws.Put(domain.Station{ID: "2099", Name: "Zürichsee - Zürich", WaterBodyName: "Zürichsee", WaterBodyType: "lake", Parameters: map[domain.Category]domain.ParameterReading{}})
	return ws.Snapshot()
}

func TestStore_WriteRaw(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir)

	require.NoError(t, s.WriteRaw("bafu_url_2", []byte("<locations/>")))

	got, err := os.ReadFile(filepath.Join(dir, "bafu_url_2.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<locations/>", string(got))

	require.NoError(t, s.WriteRaw("bafu_url_2", []byte("<locations></locations>")))
	got, err = os.ReadFile(s.RawPath("bafu_url_2"))
	require.NoError(t, err)
	assert.Equal(t, "<locations></locations>", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_WriteSnapshot_FileFormat(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.WriteSnapshot(testSnapshot()))

	list, err := os.ReadFile(filepath.Join(dir, StationListFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"2023","name":"Rhône - Porte du Scex","water-body-name":"Rhône","water-body-type":"river"},
		{"id":"2099","name":"Zürichsee - Zürich","water-body-name":"Zürichsee","water-body-type":"lake"}
	]`, string(list))

	raw, err := os.ReadFile(filepath.Join(dir, StationDataFile))
	require.NoError(t, err)

	var data map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Contains(t, data, "2023")
	rhone := data["2023"]
	for _, key := range []string{"name", "water-body-name", "water-body-type", "coordinates", "parameters"} {
		assert.Contains(t, rhone, key)
	}
	assert.NotContains(t, rhone, "id")

	var params map[string]map[string]any
	require.NoError(t, json.Unmarshal(rhone["parameters"], &params))
	temp := params["temperature"]
	for _, key := range []string{"unit", "datetime", "value", "previous-24h", "delta-24h", "max-24h", "mean-24h", "min-24h", "max-1h", "mean-1h", "min-1h"} {
		assert.Contains(t, temp, key)
	}
	assert.Equal(t, 12.3, temp["value"])
	assert.Nil(t, temp["delta-24h"])

	assert.JSONEq(t, `{}`, string(data["2099"]["parameters"]))
}

func TestStore_LoadSnapshot_RoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := testSnapshot()
	require.NoError(t, s.WriteSnapshot(want))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)

	assert.Equal(t, want.List, got.List)
	require.Contains(t, got.Stations, "2023")
	rhone := got.Stations["2023"]
	assert.Equal(t, "2023", rhone.ID)
	assert.True(t, rhone.Parameters[domain.CategoryTemperature].Value.Equal(domain.Float(12.3)))
	assert.True(t, rhone.Parameters[domain.CategoryTemperature].Delta24h.IsEmpty())
	assert.False(t, got.BuiltAt.IsZero())
}

func TestStore_LoadSnapshot_LegacyEmptyStrings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationListFile), []byte(`[{"id":"1","name":"A","water-body-name":"B","water-body-type":"river"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationDataFile), []byte(`{"1":{"name":"A","water-body-name":"B","water-body-type":"river","coordinates":{"latitude":46.9,"longitude":7.4},"parameters":{"level":{"unit":"m","datetime":"x","value":"","max-24h":"NaN","min-1h":501.2}}}}`), 0o644))

	snap, err := New(dir).LoadSnapshot()
	require.NoError(t, err)

	level := snap.Stations["1"].Parameters[domain.CategoryLevel]
	assert.True(t, level.Value.IsEmpty())
	assert.True(t, level.Max24h.IsEmpty())
	assert.True(t, level.Min1h.Equal(domain.Float(501.2)))
}

func TestStore_LoadSnapshot_Missing(t *testing.T) {
	_, err := New(t.TempDir()).LoadSnapshot()
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestStore_LoadSnapshot_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationDataFile), []byte(`{`), 0o644))

	_, err := New(dir).LoadSnapshot()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSnapshot))
}

func TestStore_WriteSnapshot_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := New(filepath.Join(blocker, "sub")).WriteSnapshot(testSnapshot())
	require.Error(t, err)
}

func TestStore_CheckFreshness(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.WriteRaw("bafu_url_2", []byte("<locations/>")))
	require.NoError(t, s.WriteRaw("bafu_url_6", []byte("<locations/>")))

	now := time.Now()
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(s.RawPath("bafu_url_6"), old, old))

	clk := clockwork.NewFakeClockAt(now)

	t.Run("fresh feed passes", func(t *testing.T) {
		assert.NoError(t, s.CheckFreshness(clk, time.Hour, []string{"bafu_url_2"}))
	})

	t.Run("old feed is stale", func(t *testing.T) {
		err := s.CheckFreshness(clk, time.Hour, []string{"bafu_url_2", "bafu_url_6"})
		require.Error(t, err)
		var stale *StaleError
		require.True(t, errors.As(err, &stale))
		assert.Equal(t, s.RawPath("bafu_url_6"), stale.Path)
		assert.Contains(t, err.Error(), "older than 1h0m0s")
	})

	t.Run("missing feed is stale", func(t *testing.T) {
		err := s.CheckFreshness(clk, time.Hour, []string{"unknown"})
		var stale *StaleError
		require.True(t, errors.As(err, &stale))
		assert.True(t, stale.ModTime.IsZero())
	})

	t.Run("time moving forward makes a fresh feed stale", func(t *testing.T) {
		clk.Advance(61 * time.Minute)
		assert.Error(t, s.CheckFreshness(clk, time.Hour, []string{"bafu_url_2"}))
	})
}

func TestStore_WriteSnapshot_KeepsBuiltAt(t *testing.T) {
	s := New(t.TempDir())
	builtAt := time.Date(2024, 5, 2, 9, 50, 0, 0, time.UTC)
	snap := domain.NewSnapshot(testSnapshot().List, testSnapshot().Stations, builtAt)

	require.NoError(t, s.WriteSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.WithinDuration(t, builtAt, got.BuiltAt, time.Second)
}

func TestStore_LoadSnapshot_ListDataMismatch(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.WriteSnapshot(testSnapshot()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationListFile),
		[]byte(`[{"id":"2023","name":"Rhône - Porte du Scex","water-body-name":"Rhône","water-body-type":"river"}]`), 0o644))

	_, err := s.LoadSnapshot()
	require.ErrorIs(t, err, ErrInconsistentSnapshot)

	snap, err := s.ReadSnapshotFiles()
	require.NoError(t, err)
	assert.Len(t, snap.List, 1)
	assert.Len(t, snap.Stations, 2)
}

func TestStore_LoadSnapshot_RenamedStationIsInconsistent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.WriteSnapshot(testSnapshot()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, StationListFile), []byte(`[
		{"id":"2023","name":"Rhône - Sion","water-body-name":"Rhône","water-body-type":"river"},
		{"id":"2099","name":"Zürichsee - Zürich","water-body-name":"Zürichsee","water-body-type":"lake"}
	]`), 0o644))

	_, err := s.LoadSnapshot()
	assert.ErrorIs(t, err, ErrInconsistentSnapshot)
}

func TestStore_ConcurrentWriteAndLoad(t *testing.T) {
	s := New(t.TempDir())
	snapshotWith := func(ids ...string) *domain.Snapshot {
		ws := domain.NewWorkingSet()
		for _, id := range ids {
			ws.Put(domain.Station{ID: id, Name: "Station " + id, Parameters: map[domain.Category]domain.ParameterReading{}})
		}
		return ws.Snapshot()
	}
	a := snapshotWith("1", "2")
	b := snapshotWith("3")
	require.NoError(t, s.WriteSnapshot(a))

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				done <- nil
				return
			default:
			}
			next := a
			if i%2 == 0 {
				next = b
			}
			if err := s.WriteSnapshot(next); err != nil {
				done <- err
				return
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		assert.NoError(t, <-done)
	})

	for range 500 {
		snap, err := s.LoadSnapshot()
		require.NoError(t, err)
		require.Len(t, snap.List, len(snap.Stations))
		ids := make([]string, 0, len(snap.List))
		for _, item := range snap.List {
			require.Contains(t, snap.Stations, item.ID)
			ids = append(ids, item.ID)
		}
		if len(ids) == 1 {
			assert.Equal(t, []string{"3"}, ids)
		} else {
			assert.Equal(t, []string{"1", "2"}, ids)
		}
	}
}
