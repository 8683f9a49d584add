package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ port.QueryExecutor = (*Executor)(nil)

// Executor runs named queries in read-only transactions, capped at maxRows
// and bounded by queryTimeout both client and server side.
type Executor struct {
	pool         *pgxpool.Pool
	maxRows      int
	queryTimeout time.Duration
}

func NewExecutor(pool *pgxpool.Pool, maxRows int, queryTimeout time.Duration) *Executor {
	return &Executor{
		pool:         pool,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

func (e *Executor) Execute(ctx context.Context, sql string) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Scoped to the transaction, so PostgreSQL cancels the statement even if
	// the client context outlives it.
	if _, err := tx.Exec(ctx, "SELECT set_config('statement_timeout', $1, true)", strconv.FormatInt(e.queryTimeout.Milliseconds(), 10)); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, e.limit(sql))
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return results, nil
}

// limit wraps sql in a row-capping subquery. EXPLAIN cannot be wrapped and a
// non-positive maxRows disables the cap.
func (e *Executor) limit(sql string) string {
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	if e.maxRows <= 0 || isExplain(sql) {
		return sql
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", sql, e.maxRows)
}

func isExplain(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN")
}
