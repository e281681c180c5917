// Package memory provides the in-memory append-only tables the
// orchestrator emits into. One table per output channel; rows keep
// input-track order.
package memory

import (
	"slices"
	"sync"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/storage"
)

// SignalTable is an in-memory implementation of storage.SignalSink.
type SignalTable struct {
	mu   sync.RWMutex
	rows []domain.SignalRecord
}

// NewSignalTable creates an empty signal table.
func NewSignalTable() *SignalTable { return &SignalTable{} }

// Compile-time interface check.
var _ storage.SignalSink = (*SignalTable)(nil)

// Reserve pre-sizes the table for n more rows.
func (t *SignalTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

// Append adds one row.
func (t *SignalTable) Append(r domain.SignalRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *SignalTable) Rows() []domain.SignalRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.SignalRecord(nil), t.rows...)
}

// EventTimeTable is an in-memory implementation of
// storage.EventTimeSink.
type EventTimeTable struct {
	mu   sync.RWMutex
	rows []domain.EventTimeRecord
}

// NewEventTimeTable creates an empty event-time table.
func NewEventTimeTable() *EventTimeTable { return &EventTimeTable{} }

var _ storage.EventTimeSink = (*EventTimeTable)(nil)

func (t *EventTimeTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *EventTimeTable) Append(r domain.EventTimeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *EventTimeTable) Rows() []domain.EventTimeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.EventTimeRecord(nil), t.rows...)
}

// TOFOnlyTable is an in-memory implementation of storage.TOFOnlySink.
type TOFOnlyTable struct {
	mu   sync.RWMutex
	rows []domain.TOFOnlyRecord
}

// NewTOFOnlyTable creates an empty diagnostic table.
func NewTOFOnlyTable() *TOFOnlyTable { return &TOFOnlyTable{} }

var _ storage.TOFOnlySink = (*TOFOnlyTable)(nil)

func (t *TOFOnlyTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *TOFOnlyTable) Append(r domain.TOFOnlyRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *TOFOnlyTable) Rows() []domain.TOFOnlyRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.TOFOnlyRecord(nil), t.rows...)
}

// NsigmaTable is an in-memory implementation of storage.NsigmaSink,
// holding one species' tiny rows.
type NsigmaTable struct {
	mu   sync.RWMutex
	rows []domain.NsigmaRecord
}

// NewNsigmaTable creates an empty tiny species table.
func NewNsigmaTable() *NsigmaTable { return &NsigmaTable{} }

var _ storage.NsigmaSink = (*NsigmaTable)(nil)

func (t *NsigmaTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *NsigmaTable) Append(r domain.NsigmaRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *NsigmaTable) Rows() []domain.NsigmaRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.NsigmaRecord(nil), t.rows...)
}

// NsigmaFullTable is an in-memory implementation of
// storage.NsigmaFullSink, holding one species' full rows.
type NsigmaFullTable struct {
	mu   sync.RWMutex
	rows []domain.NsigmaFullRecord
}

// NewNsigmaFullTable creates an empty full species table.
func NewNsigmaFullTable() *NsigmaFullTable { return &NsigmaFullTable{} }

var _ storage.NsigmaFullSink = (*NsigmaFullTable)(nil)

func (t *NsigmaFullTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *NsigmaFullTable) Append(r domain.NsigmaFullRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *NsigmaFullTable) Rows() []domain.NsigmaFullRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.NsigmaFullRecord(nil), t.rows...)
}

// BetaTable is an in-memory implementation of storage.BetaSink.
type BetaTable struct {
	mu   sync.RWMutex
	rows []domain.BetaRecord
}

// NewBetaTable creates an empty beta table.
func NewBetaTable() *BetaTable { return &BetaTable{} }

var _ storage.BetaSink = (*BetaTable)(nil)

func (t *BetaTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *BetaTable) Append(r domain.BetaRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *BetaTable) Rows() []domain.BetaRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.BetaRecord(nil), t.rows...)
}

// MassTable is an in-memory implementation of storage.MassSink.
type MassTable struct {
	mu   sync.RWMutex
	rows []domain.MassRecord
}

// NewMassTable creates an empty mass table.
func NewMassTable() *MassTable { return &MassTable{} }

var _ storage.MassSink = (*MassTable)(nil)

func (t *MassTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = grow(t.rows, n)
}

func (t *MassTable) Append(r domain.MassRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, r)
}

// Rows returns a copy of all rows in append order.
func (t *MassTable) Rows() []domain.MassRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.MassRecord(nil), t.rows...)
}

// grow extends capacity without changing length.
func grow[T any](rows []T, n int) []T {
	if n <= 0 {
		return rows
	}
	return slices.Grow(rows, n)
}
