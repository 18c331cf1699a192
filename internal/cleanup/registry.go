// Package cleanup implements retention cleanup of the Airflow metadata
// database: selecting eligible tables, moving aged rows into prefixed
// archive tables, and discovering those archives afterwards.
package cleanup

import "sort"

// RetentionConfig describes how a single metadata table is aged out.
type RetentionConfig struct {
	// RecencyColumn is the timestamp column compared against the cutoff.
	RecencyColumn string
}

// Registry is the fixed set of tables eligible for retention cleanup,
// keyed by logical table name. Read-only at runtime.
var Registry = map[string]RetentionConfig{
	"callback_request": {RecencyColumn: "created_at"},
	"celery_taskmeta":  {RecencyColumn: "date_done"},
	"dag":              {RecencyColumn: "last_parsed_time"},
	"dag_run":          {RecencyColumn: "start_date"},
	"dataset_event":    {RecencyColumn: "timestamp"},
	"import_error":     {RecencyColumn: "timestamp"},
	"job":              {RecencyColumn: "latest_heartbeat"},
	"log":              {RecencyColumn: "dttm"},
	"session":          {RecencyColumn: "expiry"},
	"sla_miss":         {RecencyColumn: "timestamp"},
	"task_fail":        {RecencyColumn: "start_date"},
	"task_instance":    {RecencyColumn: "start_date"},
	"task_reschedule":  {RecencyColumn: "start_date"},
	"trigger":          {RecencyColumn: "created_date"},
	"xcom":             {RecencyColumn: "timestamp"},
}

// RegistryTableNames returns all eligible table names, sorted.
func RegistryTableNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
