package domain

import "time"

// WorkingSet collects stations during one refresh cycle. Put on an existing id
// replaces the station but keeps its original listing position, so a later
// feed overrides data without reshuffling the list.
type WorkingSet struct {
	stations map[string]Station
	order    []string
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{stations: make(map[string]Station)}
}

// Put adds or replaces a station.
func (w *WorkingSet) Put(s Station) {
	if _, ok := w.stations[s.ID]; !ok {
		w.order = append(w.order, s.ID)
	}
	w.stations[s.ID] = s
}

// Len returns the number of distinct stations.
func (w *WorkingSet) Len() int { return len(w.order) }

// Snapshot freezes the working set. The working set must not be used after.
func (w *WorkingSet) Snapshot() *Snapshot {
	list := make([]StationSummary, 0, len(w.order))
	for _, id := range w.order {
		list = append(list, w.stations[id].Summary())
	}
	return &Snapshot{
		Stations: w.stations,
		List:     list,
		BuiltAt:  clock.Now().UTC(),
	}
}

// Snapshot is one complete, immutable rebuild of the station dataset. It is
// replaced as a whole, never modified.
type Snapshot struct {
	Stations map[string]Station
	List     []StationSummary
	BuiltAt  time.Time
}

// NewSnapshot builds a snapshot from persisted parts. Station IDs are filled
// from the map keys since the data file does not repeat them.
func NewSnapshot(list []StationSummary, stations map[string]Station, builtAt time.Time) *Snapshot {
	for id, st := range stations {
		st.ID = id
		if st.Parameters == nil {
			st.Parameters = map[Category]ParameterReading{}
		}
		stations[id] = st
	}
	if list == nil {
		list = []StationSummary{}
	}
	return &Snapshot{Stations: stations, List: list, BuiltAt: builtAt}
}

// EmptySnapshot is served before the first refresh completes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Stations: map[string]Station{}, List: []StationSummary{}}
}

// Empty reports whether the snapshot holds no stations.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Stations) == 0
}
