package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/types"
)

// ComputeFunc turns the raw bytes of a production log into the original
// header and the analysis result.
type ComputeFunc func(data []byte) (header []string, res types.Result, err error)

// Entry is one memoized report. Entries are immutable once stored.
type Entry struct {
	ID          string
	Source      string
	Fingerprint string
	Header      []string
	Result      types.Result
	ComputedAt  time.Time
}

// Store is a thread-safe memo of reports keyed by input fingerprint.
type Store struct {
	mu       sync.RWMutex
	byKey    map[string]*Entry
	byID     map[string]*Entry
	sources  map[string]string    // source -> fingerprint
	accessed map[string]time.Time // fingerprint -> last read
	latest   string

	group   singleflight.Group
	compute ComputeFunc
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Store that runs compute on cache misses. A zero ttl
// disables eviction.
func New(ttl time.Duration, compute ComputeFunc) *Store {
	return &Store{
		byKey:    make(map[string]*Entry),
		byID:     make(map[string]*Entry),
		sources:  make(map[string]string),
		accessed: make(map[string]time.Time),
		compute:  compute,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Analyze returns the report for data, computing it only when no report
// with the same fingerprint is cached. cached is true when no computation
// ran on behalf of this call. The entry becomes the current report for
// source and the latest report overall.
func (s *Store) Analyze(source string, data []byte) (e *Entry, cached bool, err error) {
	fp := dataset.Fingerprint(data)

	s.mu.Lock()
	if hit, ok := s.byKey[fp]; ok {
		s.publish(source, hit)
		s.mu.Unlock()
		return hit, true, nil
	}
	s.mu.Unlock()

	computed := false
	v, err, _ := s.group.Do(fp, func() (any, error) {
		s.mu.RLock()
		hit, ok := s.byKey[fp]
		s.mu.RUnlock()
		if ok {
			return hit, nil
		}

		header, res, err := s.compute(data)
		if err != nil {
			return nil, err
		}
		computed = true
		entry := &Entry{
			ID:          uuid.NewString(),
			Source:      source,
			Fingerprint: fp,
			Header:      header,
			Result:      res,
			ComputedAt:  s.now(),
		}

		s.mu.Lock()
		s.byKey[fp] = entry
		s.byID[entry.ID] = entry
		s.accessed[fp] = entry.ComputedAt
		s.mu.Unlock()

		slog.Debug("store: report computed",
			"id", entry.ID,
			"source", source,
			"fingerprint", fp,
			"kept_rows", res.Stats.KeptRows,
		)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}

	e = v.(*Entry)
	s.mu.Lock()
	s.publish(source, e)
	s.mu.Unlock()
	return e, !computed, nil
}

// publish binds source to e, marks e as latest and refreshes its access
// time. Callers must hold s.mu for writing.
func (s *Store) publish(source string, e *Entry) {
	// e may have been evicted between computation and publication.
	if _, ok := s.byKey[e.Fingerprint]; !ok {
		s.byKey[e.Fingerprint] = e
		s.byID[e.ID] = e
	}
	s.accessed[e.Fingerprint] = s.now()
	s.latest = e.Fingerprint

	if source == "" {
		return
	}
	old, ok := s.sources[source]
	s.sources[source] = e.Fingerprint
	if ok && old != e.Fingerprint && !s.referenced(old) {
		s.remove(old)
		slog.Debug("store: invalidated superseded report", "source", source, "fingerprint", old)
	}
}

func (s *Store) referenced(fp string) bool {
	for _, v := range s.sources {
		if v == fp {
			return true
		}
	}
	return false
}

// remove deletes the entry for fp and any source bindings to it.
func (s *Store) remove(fp string) {
	e, ok := s.byKey[fp]
	if !ok {
		return
	}
	delete(s.byKey, fp)
	delete(s.byID, e.ID)
	delete(s.accessed, fp)
	for src, v := range s.sources {
		if v == fp {
			delete(s.sources, src)
		}
	}
	if s.latest == fp {
		s.latest = ""
	}
}

// Get returns the entry with the given report ID and refreshes its access
// time.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if ok {
		s.accessed[e.Fingerprint] = s.now()
	}
	return e, ok
}

// Latest returns the most recently analysed report, if it is still cached.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byKey[s.latest]
	if ok {
		s.accessed[e.Fingerprint] = s.now()
	}
	return e, ok
}

// List returns every cached entry, newest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ComputedAt.Equal(out[j].ComputedAt) {
			return out[i].ComputedAt.After(out[j].ComputedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of cached reports.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// TTL returns the configured idle lifetime of a report.
func (s *Store) TTL() time.Duration { return s.ttl }

// Evict removes entries not read since now minus TTL, together with the
// source bindings that point at them. It returns the number removed.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for fp, at := range s.accessed {
		if !at.After(cutoff) {
			s.remove(fp)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled. With a zero TTL it
// returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale reports", "count", n)
			}
		}
	}
}
