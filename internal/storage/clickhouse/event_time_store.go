package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
)

// EventTimeStore implements storage.EventTimeStore using ClickHouse.
type EventTimeStore struct {
	conn *Conn
}

// NewEventTimeStore creates a new EventTimeStore.
func NewEventTimeStore(conn *Conn) *EventTimeStore {
	return &EventTimeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventTimeStore = (*EventTimeStore)(nil)

// InsertBulk adds a batch of records for a run. MergeTree does not
// enforce uniqueness, so duplicates are rejected by an explicit check
// before the batch is sent.
func (s *EventTimeStore) InsertBulk(ctx context.Context, run int32, recs []domain.EventTimeRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "event_time_insert", time.Since(start).Seconds(), err)
	}()

	seen := make(map[int]struct{}, len(recs))
	for _, r := range recs {
		if _, dup := seen[r.TrackIndex]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.TrackIndex] = struct{}{}
	}

	exists, err := s.runExists(ctx, run)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tof_event_time (run_number, track_index, value, err, flags)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range recs {
		if err := batch.Append(run, int64(r.TrackIndex), r.Value, r.Err, r.Flags); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all records of a run, ordered by track index.
func (s *EventTimeStore) GetByRun(ctx context.Context, run int32) (_ []domain.EventTimeRecord, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "event_time_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, value, err, flags
		FROM tof_event_time
		WHERE run_number = ?
		ORDER BY track_index ASC
	`
	rows, err := s.conn.Query(ctx, query, run)
	if err != nil {
		return nil, fmt.Errorf("query event times by run: %w", err)
	}
	defer rows.Close()

	out, err := scanEventTimes(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// runExists checks whether the run already has event-time rows.
func (s *EventTimeStore) runExists(ctx context.Context, run int32) (bool, error) {
	query := `SELECT count(*) FROM tof_event_time WHERE run_number = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, run).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanEventTimes(rows chRows) ([]domain.EventTimeRecord, error) {
	var out []domain.EventTimeRecord
	for rows.Next() {
		var r domain.EventTimeRecord
		var trackIndex int64
		if err := rows.Scan(&trackIndex, &r.Value, &r.Err, &r.Flags); err != nil {
			return nil, fmt.Errorf("scan event time row: %w", err)
		}
		r.TrackIndex = int(trackIndex)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event time rows: %w", err)
	}
	return out, nil
}
