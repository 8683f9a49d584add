package port

import "context"

// QueryProvider resolves named SQL statements.
type QueryProvider interface {
	GetQuery(ctx context.Context, name string) (string, bool)
}

// QueryExecutor runs a SQL statement and returns rows keyed by column name.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) ([]map[string]any, error)
}

// NamedQueryExecutor resolves a named query and runs it.
type NamedQueryExecutor interface {
	ExecuteNamed(ctx context.Context, name string) ([]map[string]any, error)
}
