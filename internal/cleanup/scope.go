package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
)

// ErrNoTablesSelected is returned when none of the requested table names
// are eligible for cleanup.
var ErrNoTablesSelected = errors.New("no tables selected for cleanup; choose valid table names")

// ResolveScope intersects the requested logical table names with the
// registry. An empty request selects the full registry. Names outside the
// registry are logged and skipped; an empty intersection is fatal.
func ResolveScope(ctx context.Context, requested []string) (map[string]RetentionConfig, error) {
	desired := make(map[string]struct{})
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		desired[name] = struct{}{}
	}
	if len(desired) == 0 {
		for name := range Registry {
			desired[name] = struct{}{}
		}
	}

	effective := make(map[string]RetentionConfig, len(desired))
	var skipped []string
	for name := range desired {
		if cfg, ok := Registry[name]; ok {
			effective[name] = cfg
		} else {
			skipped = append(skipped, name)
		}
	}

	if len(skipped) > 0 {
		sort.Strings(skipped)
		slog.WarnContext(ctx, "The following table(s) are not valid choices and will be skipped", "tables", skipped)
	}

	if len(effective) == 0 {
		return nil, ErrNoTablesSelected
	}

	return effective, nil
}

// ScopeTableNames returns the effective scope's table names, sorted.
func ScopeTableNames(scope map[string]RetentionConfig) []string {
	names := make([]string, 0, len(scope))
	for name := range scope {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
