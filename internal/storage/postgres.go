package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `added_id, sheet_id, kind, seq, body, created_at`

// PostgresStore implements RecordStore for a single shard using PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	table        string
	queryTimeout time.Duration
}

// NewPostgresStore creates a RecordStore backed by a specific shard table.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, shardID int, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		table:        ShardTable(shardID),
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresStore) Write(ctx context.Context, req WriteRequest) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (sheet_id, kind, seq, body)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, s.table, recordColumns)

	r, err := scanRecord(s.pool.QueryRow(ctx, query, req.SheetID, string(req.Kind), req.Seq, req.Body))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("write %s %d of sheet %s: %w", req.Kind, req.Seq, req.SheetID, ErrDuplicateRecord)
		}
		return nil, fmt.Errorf("write record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Scan(ctx context.Context, cursor string, limit int) (*Page, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pos, limit, err := scanArgs(cursor, limit)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE added_id > $1
		ORDER BY added_id ASC
		LIMIT $2
	`, recordColumns, s.table)

	rows, err := s.pool.Query(ctx, query, pos.After, limit)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rows: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return newPage(records, limit), nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r    Record
		kind string
	)
	if err := row.Scan(&r.AddedID, &r.SheetID, &kind, &r.Seq, &r.Body, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	return &r, nil
}
