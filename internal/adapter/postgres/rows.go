package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowsToMaps collects every row into a map keyed by column name and closes rows.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collecting rows: %w", err)
	}
	return result, nil
}
