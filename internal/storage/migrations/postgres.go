package migrations

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"sort"

	"tof-pid-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema files in lexical
// order. Every file uses IF NOT EXISTS guards, so the runner is safe to
// call on each startup.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	names, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := fs.ReadFile(PostgresFS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if len(bytes.TrimSpace(ddl)) == 0 {
			continue
		}
		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
