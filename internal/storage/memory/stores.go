package memory

import (
	"context"
	"sort"
	"sync"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/storage"
)

// EventTimeStore is an in-memory implementation of
// storage.EventTimeStore.
type EventTimeStore struct {
	mu   sync.RWMutex
	data map[int32]map[int]domain.EventTimeRecord // run -> track index -> row
}

// NewEventTimeStore creates an empty store.
func NewEventTimeStore() *EventTimeStore {
	return &EventTimeStore{data: make(map[int32]map[int]domain.EventTimeRecord)}
}

// Compile-time interface check.
var _ storage.EventTimeStore = (*EventTimeStore)(nil)

// InsertBulk adds a batch of records. Fails the whole batch on any
// duplicate (run, track_index).
func (s *EventTimeStore) InsertBulk(_ context.Context, run int32, recs []domain.EventTimeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.data[run]
	if rows == nil {
		rows = make(map[int]domain.EventTimeRecord, len(recs))
		s.data[run] = rows
	}
	for _, r := range recs {
		if _, exists := rows[r.TrackIndex]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range recs {
		rows[r.TrackIndex] = r
	}
	return nil
}

// GetByRun retrieves all records of a run, ordered by track index.
func (s *EventTimeStore) GetByRun(_ context.Context, run int32) ([]domain.EventTimeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.data[run]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]domain.EventTimeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackIndex < out[j].TrackIndex })
	return out, nil
}

type nsigmaKey struct {
	track   int
	species domain.Species
}

// NsigmaStore is an in-memory implementation of storage.NsigmaStore.
type NsigmaStore struct {
	mu   sync.RWMutex
	data map[int32]map[nsigmaKey]domain.NsigmaFullRecord
}

// NewNsigmaStore creates an empty store.
func NewNsigmaStore() *NsigmaStore {
	return &NsigmaStore{data: make(map[int32]map[nsigmaKey]domain.NsigmaFullRecord)}
}

var _ storage.NsigmaStore = (*NsigmaStore)(nil)

// InsertBulk adds a batch of rows. Fails the whole batch on any
// duplicate (run, track_index, species).
func (s *NsigmaStore) InsertBulk(_ context.Context, run int32, rows []domain.NsigmaFullRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.data[run]
	if stored == nil {
		stored = make(map[nsigmaKey]domain.NsigmaFullRecord, len(rows))
		s.data[run] = stored
	}
	for _, r := range rows {
		if _, exists := stored[nsigmaKey{r.TrackIndex, r.Species}]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range rows {
		stored[nsigmaKey{r.TrackIndex, r.Species}] = r
	}
	return nil
}

// GetByRunSpecies retrieves one species' rows, ordered by track index.
func (s *NsigmaStore) GetByRunSpecies(_ context.Context, run int32, sp domain.Species) ([]domain.NsigmaFullRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.data[run]
	if !ok {
		return nil, storage.ErrNotFound
	}
	var out []domain.NsigmaFullRecord
	for k, r := range stored {
		if k.species == sp {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackIndex < out[j].TrackIndex })
	return out, nil
}

// BetaMassStore is an in-memory implementation of storage.BetaMassStore.
type BetaMassStore struct {
	mu   sync.RWMutex
	beta map[int32]map[int]domain.BetaRecord
	mass map[int32]map[int]domain.MassRecord
}

// NewBetaMassStore creates an empty store.
func NewBetaMassStore() *BetaMassStore {
	return &BetaMassStore{
		beta: make(map[int32]map[int]domain.BetaRecord),
		mass: make(map[int32]map[int]domain.MassRecord),
	}
}

var _ storage.BetaMassStore = (*BetaMassStore)(nil)

// InsertBetaBulk adds beta rows for a run.
func (s *BetaMassStore) InsertBetaBulk(_ context.Context, run int32, rows []domain.BetaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.beta[run]
	if stored == nil {
		stored = make(map[int]domain.BetaRecord, len(rows))
		s.beta[run] = stored
	}
	for _, r := range rows {
		if _, exists := stored[r.TrackIndex]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range rows {
		stored[r.TrackIndex] = r
	}
	return nil
}

// InsertMassBulk adds mass rows for a run.
func (s *BetaMassStore) InsertMassBulk(_ context.Context, run int32, rows []domain.MassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.mass[run]
	if stored == nil {
		stored = make(map[int]domain.MassRecord, len(rows))
		s.mass[run] = stored
	}
	for _, r := range rows {
		if _, exists := stored[r.TrackIndex]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, r := range rows {
		stored[r.TrackIndex] = r
	}
	return nil
}

// GetBetaByRun retrieves beta rows of a run, ordered by track index.
func (s *BetaMassStore) GetBetaByRun(_ context.Context, run int32) ([]domain.BetaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.beta[run]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]domain.BetaRecord, 0, len(stored))
	for _, r := range stored {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackIndex < out[j].TrackIndex })
	return out, nil
}

// GetMassByRun retrieves mass rows of a run, ordered by track index.
func (s *BetaMassStore) GetMassByRun(_ context.Context, run int32) ([]domain.MassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.mass[run]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]domain.MassRecord, 0, len(stored))
	for _, r := range stored {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackIndex < out[j].TrackIndex })
	return out, nil
}
