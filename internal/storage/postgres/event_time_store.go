package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
)

// EventTimeStore implements storage.EventTimeStore using PostgreSQL.
type EventTimeStore struct {
	pool *Pool
}

// NewEventTimeStore creates a new EventTimeStore.
func NewEventTimeStore(pool *Pool) *EventTimeStore {
	return &EventTimeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventTimeStore = (*EventTimeStore)(nil)

// InsertBulk adds a batch of records for a run inside one transaction.
// Returns ErrDuplicateKey if any (run, track_index) already exists.
func (s *EventTimeStore) InsertBulk(ctx context.Context, run int32, recs []domain.EventTimeRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "event_time_insert", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tof_event_time (run_number, track_index, value, err, flags)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, r := range recs {
		if _, err := tx.Exec(ctx, query, run, r.TrackIndex, r.Value, r.Err, int16(r.Flags)); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event time: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByRun retrieves all records of a run, ordered by track index.
func (s *EventTimeStore) GetByRun(ctx context.Context, run int32) (_ []domain.EventTimeRecord, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "event_time_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, value, err, flags
		FROM tof_event_time
		WHERE run_number = $1
		ORDER BY track_index ASC
	`
	rows, err := s.pool.Query(ctx, query, run)
	if err != nil {
		return nil, fmt.Errorf("get event times by run: %w", err)
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

func scanEventTimes(rows pgx.Rows) ([]domain.EventTimeRecord, error) {
	var out []domain.EventTimeRecord
	for rows.Next() {
		var r domain.EventTimeRecord
		var flags int16
		if err := rows.Scan(&r.TrackIndex, &r.Value, &r.Err, &flags); err != nil {
			return nil, fmt.Errorf("scan event time: %w", err)
		}
		r.Flags = uint8(flags)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event times: %w", err)
	}
	return out, nil
}
