package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name    string
		maxRows int
		sql     string
		want    string
	}{
		{"wraps select", 10, "SELECT 1", "SELECT * FROM (SELECT 1) AS _q LIMIT 10"},
		{"strips trailing semicolon", 5, "  SELECT 1;  ", "SELECT * FROM (SELECT 1) AS _q LIMIT 5"},
		{"explain untouched", 10, "explain SELECT 1", "explain SELECT 1"},
		{"no cap", 0, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Executor{maxRows: tt.maxRows}
			assert.Equal(t, tt.want, e.limit(tt.sql))
		})
	}
}
