package postgres

import (
	"context"
	"fmt"
	"time"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
)

// BetaMassStore implements storage.BetaMassStore using PostgreSQL.
type BetaMassStore struct {
	pool *Pool
}

// NewBetaMassStore creates a new BetaMassStore.
func NewBetaMassStore(pool *Pool) *BetaMassStore {
	return &BetaMassStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BetaMassStore = (*BetaMassStore)(nil)

// InsertBetaBulk adds beta rows for a run inside one transaction.
func (s *BetaMassStore) InsertBetaBulk(ctx context.Context, run int32, recs []domain.BetaRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "beta_insert", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tof_beta (run_number, track_index, beta, beta_err)
		VALUES ($1, $2, $3, $4)
	`
	for _, r := range recs {
		if _, err := tx.Exec(ctx, query, run, r.TrackIndex, r.Beta, r.BetaErr); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert beta: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertMassBulk adds mass rows for a run inside one transaction.
func (s *BetaMassStore) InsertMassBulk(ctx context.Context, run int32, recs []domain.MassRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "mass_insert", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tof_mass (run_number, track_index, mass)
		VALUES ($1, $2, $3)
	`
	for _, r := range recs {
		if _, err := tx.Exec(ctx, query, run, r.TrackIndex, r.Mass); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert mass: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetBetaByRun retrieves beta rows of a run, ordered by track index.
func (s *BetaMassStore) GetBetaByRun(ctx context.Context, run int32) (_ []domain.BetaRecord, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "beta_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, beta, beta_err
		FROM tof_beta
		WHERE run_number = $1
		ORDER BY track_index ASC
	`
	rows, err := s.pool.Query(ctx, query, run)
	if err != nil {
		return nil, fmt.Errorf("get beta by run: %w", err)
	}
	defer rows.Close()

	var out []domain.BetaRecord
	for rows.Next() {
		var r domain.BetaRecord
		if err := rows.Scan(&r.TrackIndex, &r.Beta, &r.BetaErr); err != nil {
			return nil, fmt.Errorf("scan beta: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate beta rows: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// GetMassByRun retrieves mass rows of a run, ordered by track index.
func (s *BetaMassStore) GetMassByRun(ctx context.Context, run int32) (_ []domain.MassRecord, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "mass_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, mass
		FROM tof_mass
		WHERE run_number = $1
		ORDER BY track_index ASC
	`
	rows, err := s.pool.Query(ctx, query, run)
	if err != nil {
		return nil, fmt.Errorf("get mass by run: %w", err)
	}
	defer rows.Close()

	var out []domain.MassRecord
	for rows.Next() {
		var r domain.MassRecord
		if err := rows.Scan(&r.TrackIndex, &r.Mass); err != nil {
			return nil, fmt.Errorf("scan mass: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mass rows: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}
