package domain

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyStatement = errors.New("empty statement")
	ErrNotReadOnly    = errors.New("named query is not a read-only statement")
	ErrMultiStatement = errors.New("named query contains multiple statements")
	ErrParseFailed    = errors.New("failed to parse named query")
)

// ReadOnlyError names the construct that made a statement unsafe to run.
type ReadOnlyError struct {
	Construct string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotReadOnly, e.Construct)
}

func (e *ReadOnlyError) Unwrap() error { return ErrNotReadOnly }

// ReadOnlyValidator checks named queries with PostgreSQL's own parser before
// they reach the database. Only a single SELECT (or EXPLAIN) is accepted.
type ReadOnlyValidator struct{}

func NewReadOnlyValidator() *ReadOnlyValidator {
	return &ReadOnlyValidator{}
}

func (v *ReadOnlyValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyStatement
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	switch len(tree.Stmts) {
	case 0:
		return ErrEmptyStatement
	case 1:
	default:
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyStatement
	}
	return checkReadOnly(stmt)
}

// checkReadOnly accepts a plain SELECT, or EXPLAIN of one. SELECT INTO and
// row locking clauses write or lock, so they are refused too.
func checkReadOnly(node *pg_query.Node) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if n.SelectStmt.GetIntoClause() != nil {
			return &ReadOnlyError{Construct: "SELECT INTO"}
		}
		if len(n.SelectStmt.GetLockingClause()) > 0 {
			return &ReadOnlyError{Construct: "row locking clause"}
		}
		return nil
	case *pg_query.Node_ExplainStmt:
		inner := n.ExplainStmt.GetQuery()
		if inner == nil {
			return ErrEmptyStatement
		}
		if _, ok := inner.Node.(*pg_query.Node_SelectStmt); !ok {
			return &ReadOnlyError{Construct: "EXPLAIN of a non-SELECT statement"}
		}
		return checkReadOnly(inner)
	default:
		return &ReadOnlyError{Construct: strings.TrimPrefix(fmt.Sprintf("%T", n), "*pg_query.Node_")}
	}
}
