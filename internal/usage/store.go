// Package usage tracks per-app launch counters and last-used times.
package usage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/storage"
)

// Store holds one record per app ever launched, in first-seen order. Records
// are never removed and counts only grow.
type Store struct {
	storage storage.Storage
	now     func() time.Time

	// wmu serializes RecordUsage and Reload across storage I/O
	wmu sync.Mutex

	mu      sync.RWMutex
	records []model.UsageRecord
	index   map[string]int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New loads the store from s. An unreadable or malformed record behaves as an empty store.
func New(ctx context.Context, s storage.Storage, opts ...Option) *Store {
	st := &Store{
		storage: s,
		now:     time.Now,
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(st)
	}

	loaded, err := loadRecords(ctx, s)
	if err != nil {
		storage.LogLoadError(err)
		return st
	}
	st.set(loaded)
	return st
}

// Reload replaces the in-memory records with the stored ones, picking up
// launches recorded by other processes. On a read failure the records are kept.
func (s *Store) Reload(ctx context.Context) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	loaded, err := loadRecords(ctx, s.storage)
	if err != nil {
		storage.LogReloadError(err)
		return
	}
	s.set(loaded)
}

func loadRecords(ctx context.Context, s storage.Storage) ([]model.UsageRecord, error) {
	var stored []model.UsageRecord
	if _, err := storage.ReadJSON(ctx, s, storage.KeyUsage, &stored); err != nil {
		return nil, err
	}
	out := make([]model.UsageRecord, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, r := range stored {
		if r.AppRef == "" {
			continue
		}
		if i, ok := index[r.AppRef]; ok {
			// merge duplicates from hand-edited data rather than dropping counts
			out[i].UsageCount += r.UsageCount
			if r.LastUsedAt.After(out[i].LastUsedAt) {
				out[i].LastUsedAt = r.LastUsedAt
			}
			continue
		}
		index[r.AppRef] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) set(records []model.UsageRecord) {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.AppRef] = i
	}
	s.mu.Lock()
	s.records = records
	s.index = index
	s.mu.Unlock()
}

// RecordUsage counts one launch of appRef at the current time and persists the
// store. The count is added to the latest stored records under the storage write
// lock, so launches recorded by other processes are never lost.
func (s *Store) RecordUsage(ctx context.Context, appRef string) (model.UsageRecord, error) {
	if appRef == "" {
		return model.UsageRecord{}, errors.NewInvalidRequest("app reference must not be empty")
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	var rec model.UsageRecord
	_ = storage.Update(ctx, s.storage, func(tx storage.Storage) error {
		records, err := loadRecords(ctx, tx)
		if err != nil {
			storage.LogReloadError(err)
			records = s.Records()
		}

		i := slices.IndexFunc(records, func(r model.UsageRecord) bool { return r.AppRef == appRef })
		if i < 0 {
			i = len(records)
			records = append(records, model.UsageRecord{AppRef: appRef})
		}
		records[i].UsageCount++
		records[i].LastUsedAt = s.now().UTC()
		rec = records[i]

		s.set(records)
		storage.SaveJSON(ctx, tx, storage.KeyUsage, records)
		return nil
	})
	return rec, nil
}

// UsageCount returns the launch count of appRef, 0 if never recorded.
func (s *Store) UsageCount(appRef string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[appRef]; ok {
		return s.records[i].UsageCount
	}
	return 0
}

// LastUsedAt returns when appRef was last launched.
func (s *Store) LastUsedAt(appRef string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[appRef]; ok {
		return s.records[i].LastUsedAt, true
	}
	return time.Time{}, false
}

// AppsAtOrAbove returns apps with count >= threshold, in first-seen order.
func (s *Store) AppsAtOrAbove(threshold int) []string {
	return s.filter(func(r model.UsageRecord) bool { return r.UsageCount >= threshold })
}

// AppsBelow returns apps with count < threshold, in first-seen order.
func (s *Store) AppsBelow(threshold int) []string {
	return s.filter(func(r model.UsageRecord) bool { return r.UsageCount < threshold })
}

func (s *Store) filter(keep func(model.UsageRecord) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r.AppRef)
		}
	}
	return out
}

// MostUsed returns up to n apps by count descending; equal counts keep first-seen order.
func (s *Store) MostUsed(n int) []string {
	return s.top(n, func(a, b model.UsageRecord) bool { return a.UsageCount > b.UsageCount })
}

// RecentlyUsed returns up to n apps by last use descending; equal times keep first-seen order.
func (s *Store) RecentlyUsed(n int) []string {
	return s.top(n, func(a, b model.UsageRecord) bool { return a.LastUsedAt.After(b.LastUsedAt) })
}

func (s *Store) top(n int, less func(a, b model.UsageRecord) bool) []string {
	if n <= 0 {
		return []string{}
	}
	sorted := s.Records()
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = r.AppRef
	}
	return out
}

// Records returns a copy of every record in first-seen order.
func (s *Store) Records() []model.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Len returns the number of distinct apps recorded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
