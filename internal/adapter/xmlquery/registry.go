package xmlquery

import (
	"context"
	"slices"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
)

var _ port.QueryProvider = (*Registry)(nil)

// Registry maps query names to SQL text. It is never mutated after Load, so
// lookups need no locking.
type Registry struct {
	source  string
	queries map[string]string
	diag    port.QueryDiagnostics
}

// GetQuery returns the body of the named query. The request is always
// reported first, followed by exactly one found or not-found event.
func (r *Registry) GetQuery(ctx context.Context, name string) (string, bool) {
	r.diag.RequestedQuery(ctx, name)

	body, ok := r.queries[name]
	if !ok {
		r.diag.QueryNotFound(ctx, name)
		return "", false
	}

	r.diag.QueryFound(ctx, name)
	return body, true
}

// Source is the path the registry was loaded from.
func (r *Registry) Source() string { return r.source }

func (r *Registry) Len() int { return len(r.queries) }

// Names returns the registered query names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns every registered query, sorted by name.
func (r *Registry) Definitions() []domain.QueryDefinition {
	names := r.Names()
	defs := make([]domain.QueryDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, domain.QueryDefinition{Name: name, Body: r.queries[name]})
	}
	return defs
}
