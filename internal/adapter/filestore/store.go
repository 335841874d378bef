package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
)

const (
	StationListFile = "station_list.json"
	StationDataFile = "station_data.json"
)

// loadAttempts bounds how often LoadSnapshot rereads a pair that another
// process is replacing.
const loadAttempts = 3

var (
	// ErrNoSnapshot is returned by LoadSnapshot before the first snapshot was written.
	ErrNoSnapshot = errors.New("no persisted snapshot")
	// ErrInconsistentSnapshot means the list and data files come from different builds.
	ErrInconsistentSnapshot = errors.New("station list does not match station data")
)

// Store persists raw feed payloads and the derived snapshot files in one directory.
// Every file is replaced by rename so readers never see a partial write. The
// list and data files are written and read as a pair under one lock.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// RawPath is the fixed location of a feed's last raw payload.
func (s *Store) RawPath(feed string) string {
	return filepath.Join(s.dir, feed+".xml")
}

// WriteRaw stores the raw payload of a feed.
func (s *Store) WriteRaw(feed string, payload []byte) error {
	if err := writeAtomic(s.RawPath(feed), payload, time.Time{}); err != nil {
		return fmt.Errorf("write raw feed %s: %w", feed, err)
	}
	return nil
}

// WriteSnapshot writes station_data.json, then station_list.json. Both files
// carry the snapshot's BuiltAt as modification time.
func (s *Store) WriteSnapshot(snap *domain.Snapshot) error {
	data, err := json.Marshal(snap.Stations)
	if err != nil {
		return fmt.Errorf("serialize station data: %w", err)
	}
	list, err := json.Marshal(snap.List)
	if err != nil {
		return fmt.Errorf("serialize station list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(filepath.Join(s.dir, StationDataFile), data, snap.BuiltAt); err != nil {
		return fmt.Errorf("write %s: %w", StationDataFile, err)
	}
	if err := writeAtomic(filepath.Join(s.dir, StationListFile), list, snap.BuiltAt); err != nil {
		return fmt.Errorf("write %s: %w", StationListFile, err)
	}
	return nil
}

// LoadSnapshot reads the persisted snapshot. BuiltAt is the data file's
// modification time. A list that does not match the data is reread, then
// reported as ErrInconsistentSnapshot.
func (s *Store) LoadSnapshot() (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	for range loadAttempts {
		var snap *domain.Snapshot
		snap, err = s.readPair()
		if err != nil {
			return nil, err
		}
		if err = checkPair(snap); err == nil {
			return snap, nil
		}
	}
	return nil, err
}

// ReadSnapshotFiles reads both files without checking that they agree.
func (s *Store) ReadSnapshotFiles() (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readPair()
}

func (s *Store) readPair() (*domain.Snapshot, error) {
	dataPath := filepath.Join(s.dir, StationDataFile)
	info, err := os.Stat(dataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", StationDataFile, err)
	}

	var stations map[string]domain.Station
	if err := readJSON(dataPath, &stations); err != nil {
		return nil, err
	}

	var list []domain.StationSummary
	err = readJSON(filepath.Join(s.dir, StationListFile), &list)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	return domain.NewSnapshot(list, stations, info.ModTime().UTC()), nil
}

// checkPair verifies that the list is exactly the projection of the data.
func checkPair(snap *domain.Snapshot) error {
	if len(snap.List) != len(snap.Stations) {
		return fmt.Errorf("%w: %d listed, %d stations", ErrInconsistentSnapshot, len(snap.List), len(snap.Stations))
	}
	for _, item := range snap.List {
		st, ok := snap.Stations[item.ID]
		if !ok || st.Summary() != item {
			return fmt.Errorf("%w: station %s", ErrInconsistentSnapshot, item.ID)
		}
	}
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeAtomic replaces path by rename. A non-zero modTime is applied before
// the rename so the file appears with it.
func writeAtomic(path string, payload []byte, modTime time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(tmpName, modTime, modTime); err != nil {
			return err
		}
	}
	return os.Rename(tmpName, path)
}
