package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrationsForPool creates shard record tables for the given range.
func RunMigrationsForPool(ctx context.Context, pool *pgxpool.Pool, shardStart, shardEnd int) error {
	for i := shardStart; i <= shardEnd; i++ {
		table := ShardTable(i)
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				added_id   BIGSERIAL PRIMARY KEY,
				sheet_id   UUID NOT NULL,
				kind       TEXT NOT NULL,
				seq        BIGINT NOT NULL,
				body       JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),

				CONSTRAINT uq_%s_seq UNIQUE (sheet_id, kind, seq)
			);

			CREATE INDEX IF NOT EXISTS idx_%s_sheet_kind
				ON %s (sheet_id, kind, seq DESC);
		`, table, table, table, table)

		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate shard %d: %w", i, err)
		}
	}

	return nil
}

// ShardTable returns the table name for a given shard number.
func ShardTable(shardID int) string {
	return fmt.Sprintf("sheet_records_%04d", shardID)
}
