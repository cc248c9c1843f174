// Package aggregate holds the running totals of accepted access-log records.
package aggregate

import (
	"math"
	"sort"
	"sync"

	"github.com/tinytelemetry/logstats/internal/model"
)

// State is the cumulative view over every record applied so far.
// Every field only ever grows.
type State struct {
	TotalBytes   int64
	StatusCounts map[int]int64
	Accepted     int64
}

// NewState returns an empty State.
func NewState() *State {
	return &State{StatusCounts: make(map[int]int64, len(model.StatusCodes))}
}

// Apply folds one record into s. Bytes and the accepted count always grow;
// the status counter only grows for whitelisted codes.
func Apply(s *State, r model.Record) {
	if s.StatusCounts == nil {
		s.StatusCounts = make(map[int]int64, len(model.StatusCodes))
	}
	if r.Bytes > 0 {
		if s.TotalBytes > math.MaxInt64-r.Bytes {
			s.TotalBytes = math.MaxInt64
		} else {
			s.TotalBytes += r.Bytes
		}
	}
	if model.IsTrackedStatus(r.StatusCode) {
		s.StatusCounts[r.StatusCode]++
	}
	s.Accepted++
}

// Snapshot copies the current totals. Codes with a zero count are omitted.
func (s *State) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		TotalBytes: s.TotalBytes,
		Accepted:   s.Accepted,
	}
	for code, count := range s.StatusCounts {
		if count > 0 {
			snap.Statuses = append(snap.Statuses, model.StatusCount{Code: code, Count: count})
		}
	}
	sort.Slice(snap.Statuses, func(i, j int) bool {
		return snap.Statuses[i].Code < snap.Statuses[j].Code
	})
	return snap
}

// Tracker publishes snapshots from the pipeline goroutine to concurrent readers.
type Tracker struct {
	mu   sync.RWMutex
	snap model.Snapshot
}

// NewTracker creates a Tracker holding an empty snapshot.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Publish replaces the current snapshot.
func (t *Tracker) Publish(snap model.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = snap
}

// Snapshot returns the last published snapshot.
func (t *Tracker) Snapshot() model.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
