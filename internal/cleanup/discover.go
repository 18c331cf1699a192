package cleanup

import (
	"context"
	"fmt"
	"strings"
)

// DiscoverArchiveTables lists archive tables (names carrying the archive
// prefix) present in the database, sorted by name.
func (r *Runner) DiscoverArchiveTables(ctx context.Context) ([]string, error) {
	query := r.db.Rebind(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name LIKE ? ORDER BY table_name",
	)

	var names []string
	if err := r.db.SelectContext(ctx, &names, query, r.prefix+"%"); err != nil {
		return nil, fmt.Errorf("error listing archive tables: %w", err)
	}
	return names, nil
}

// ArchiveEntity extracts the logical table name embedded in an archive
// table name: the segment between the archive prefix and the next "__"
// delimiter. Returns an empty string if the name does not carry the prefix.
func ArchiveEntity(prefix, archiveName string) string {
	rest, ok := strings.CutPrefix(archiveName, prefix)
	if !ok {
		return ""
	}
	if idx := strings.Index(rest, "__"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// MatchesScope reports whether an archive table belongs to one of the
// in-scope logical tables. Matching is exact on the delimiter-bounded
// entity segment, so "dag" never matches an archive of "dag_run".
func MatchesScope(prefix, archiveName string, scope map[string]RetentionConfig) bool {
	entity := ArchiveEntity(prefix, archiveName)
	if entity == "" {
		return false
	}
	_, ok := scope[entity]
	return ok
}
