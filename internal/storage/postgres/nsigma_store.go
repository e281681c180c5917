package postgres

import (
	"context"
	"fmt"
	"time"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
)

// NsigmaStore implements storage.NsigmaStore using PostgreSQL.
type NsigmaStore struct {
	pool *Pool
}

// NewNsigmaStore creates a new NsigmaStore.
func NewNsigmaStore(pool *Pool) *NsigmaStore {
	return &NsigmaStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NsigmaStore = (*NsigmaStore)(nil)

// InsertBulk adds a batch of rows for a run inside one transaction.
// Returns ErrDuplicateKey if any (run, track_index, species) already
// exists.
func (s *NsigmaStore) InsertBulk(ctx context.Context, run int32, recs []domain.NsigmaFullRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "nsigma_insert", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tof_nsigma (run_number, track_index, species, resolution, nsigma)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, r := range recs {
		if !r.Species.Valid() {
			return fmt.Errorf("%w: species %d", storage.ErrInvalidInput, int(r.Species))
		}
		if _, err := tx.Exec(ctx, query, run, r.TrackIndex, int16(r.Species), r.Resolution, r.Nsigma); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert nsigma: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByRunSpecies retrieves one species' rows of a run, ordered by track
// index.
func (s *NsigmaStore) GetByRunSpecies(ctx context.Context, run int32, sp domain.Species) (_ []domain.NsigmaFullRecord, err error) {
	if !sp.Valid() {
		return nil, fmt.Errorf("%w: species %d", storage.ErrInvalidInput, int(sp))
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "nsigma_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, species, resolution, nsigma
		FROM tof_nsigma
		WHERE run_number = $1 AND species = $2
		ORDER BY track_index ASC
	`
	rows, err := s.pool.Query(ctx, query, run, int16(sp))
	if err != nil {
		return nil, fmt.Errorf("get nsigma by run and species: %w", err)
	}
	defer rows.Close()

	var out []domain.NsigmaFullRecord
	for rows.Next() {
		var r domain.NsigmaFullRecord
		var species int16
		if err := rows.Scan(&r.TrackIndex, &species, &r.Resolution, &r.Nsigma); err != nil {
			return nil, fmt.Errorf("scan nsigma: %w", err)
		}
		r.Species = domain.Species(species)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nsigma rows: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}
