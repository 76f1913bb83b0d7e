package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"solana-copy-watch/internal/storage/postgres"
)

// RunPostgresMigrations brings the wallet and trade schema up to
// date. Files apply in lexical order and each must be safe to re-run,
// since the daemon migrates on every start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	names, err := fs.Glob(PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := fs.ReadFile(PostgresFS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
