package filestore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
)

// StaleError reports a raw feed file that is missing or older than the threshold.
type StaleError struct {
	Path    string
	ModTime time.Time // zero when the file is missing
	Age     time.Duration
	Limit   time.Duration
}

func (e *StaleError) Error() string {
	if e.ModTime.IsZero() {
		return fmt.Sprintf("file %q is missing", e.Path)
	}
	return fmt.Sprintf("file %q older than %s (age %s)", e.Path, e.Limit, e.Age.Truncate(time.Second))
}

// CheckFreshness verifies that every named feed's raw file was modified within
// threshold of the clock's current time.
func (s *Store) CheckFreshness(clk clockwork.Clock, threshold time.Duration, feeds []string) error {
	now := clk.Now()
	var errs []error
	for _, feed := range feeds {
		path := s.RawPath(feed)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			errs = append(errs, &StaleError{Path: path, Limit: threshold})
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", path, err))
			continue
		}
		age := now.Sub(info.ModTime())
		if age > threshold {
			errs = append(errs, &StaleError{Path: path, ModTime: info.ModTime(), Age: age, Limit: threshold})
		}
	}
	return errors.Join(errs...)
}
