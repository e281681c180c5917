package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/storage"
)

// NsigmaStore implements storage.NsigmaStore using ClickHouse.
type NsigmaStore struct {
	conn *Conn
}

// NewNsigmaStore creates a new NsigmaStore.
func NewNsigmaStore(conn *Conn) *NsigmaStore {
	return &NsigmaStore{conn: conn}
}

// Compile-time interface check.
var _ storage.NsigmaStore = (*NsigmaStore)(nil)

// InsertBulk adds a batch of rows for a run. Duplicates are rejected by
// an explicit check before the batch is sent.
func (s *NsigmaStore) InsertBulk(ctx context.Context, run int32, recs []domain.NsigmaFullRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "nsigma_insert", time.Since(start).Seconds(), err)
	}()

	type key struct {
		trackIndex int
		species    domain.Species
	}
	seen := make(map[key]struct{}, len(recs))
	for _, r := range recs {
		if !r.Species.Valid() {
			return fmt.Errorf("%w: species %d", storage.ErrInvalidInput, int(r.Species))
		}
		k := key{r.TrackIndex, r.Species}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := s.runExists(ctx, run)
	if err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tof_nsigma (run_number, track_index, species, resolution, nsigma)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range recs {
		if err := batch.Append(run, int64(r.TrackIndex), int16(r.Species), r.Resolution, r.Nsigma); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
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
		observability.RecordDBQuery("clickhouse", "nsigma_get", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT track_index, species, resolution, nsigma
		FROM tof_nsigma
		WHERE run_number = ? AND species = ?
		ORDER BY track_index ASC
	`
	rows, err := s.conn.Query(ctx, query, run, int16(sp))
	if err != nil {
		return nil, fmt.Errorf("query nsigma by run and species: %w", err)
	}
	defer rows.Close()

	var out []domain.NsigmaFullRecord
	for rows.Next() {
		var r domain.NsigmaFullRecord
		var trackIndex int64
		var species int16
		if err := rows.Scan(&trackIndex, &species, &r.Resolution, &r.Nsigma); err != nil {
			return nil, fmt.Errorf("scan nsigma row: %w", err)
		}
		r.TrackIndex = int(trackIndex)
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

// runExists checks whether the run already has nsigma rows.
func (s *NsigmaStore) runExists(ctx context.Context, run int32) (bool, error) {
	query := `SELECT count(*) FROM tof_nsigma WHERE run_number = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, run).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
