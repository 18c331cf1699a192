// Package api exposes the HTTP surface of the cleanup service.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/export"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/notifiers"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

// Handler routes cleanup requests to the export orchestrator.
type Handler struct {
	cfg      *config.Config
	exporter export.ExporterIface
	notifier notifiers.NotifierStoreIface
}

// NewHandler creates a new HTTP request handler.
func NewHandler(cfg *config.Config, exporter export.ExporterIface, notifier notifiers.NotifierStoreIface) *Handler {
	return &Handler{
		cfg:      cfg,
		exporter: exporter,
		notifier: notifier,
	}
}

// RegisterRoutes registers the API paths.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/dbcleanup", h.HandleDBCleanup).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/api/v1/health", h.HandleHealth).Methods(http.MethodGet)
}

type cleanupResponse struct {
	DeploymentName string `json:"deploymentName,omitempty"`
	JobStatus      string `json:"jobStatus"`
	StatusCode     int    `json:"statusCode"`
	Message        string `json:"message"`
}

// HandleDBCleanup triggers one synchronous cleanup and export run.
func (h *Handler) HandleDBCleanup(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Validation failed for request args", "error", err)
		h.respondWithJSON(w, http.StatusInternalServerError, cleanupResponse{
			JobStatus:  "failed",
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("db export failed with exception %v", err),
		})
		return
	}

	result := h.exporter.Run(r.Context(), params)
	if result.Success {
		h.notifySuccess(r, result)
		h.respondWithJSON(w, http.StatusOK, cleanupResponse{
			DeploymentName: result.ReleaseName,
			JobStatus:      "success",
			StatusCode:     http.StatusOK,
			Message:        result.Message,
		})
		return
	}

	h.notifyFailure(r, result)
	h.respondWithJSON(w, http.StatusInternalServerError, cleanupResponse{
		DeploymentName: result.ReleaseName,
		JobStatus:      "failed",
		StatusCode:     http.StatusInternalServerError,
		Message:        fmt.Sprintf("db export failed with exception %s", result.Err),
	})
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) parseParams(r *http.Request) (export.Params, error) {
	q := r.URL.Query()

	queryDefault := func(key, def string) string {
		if v := q.Get(key); v != "" {
			return v
		}
		return def
	}

	dryRun, err := parseBool(queryDefault("dryRun", "True"))
	if err != nil {
		return export.Params{}, fmt.Errorf("dryRun: %w", err)
	}

	dropArchives, err := parseBool(queryDefault("purgeTable", "False"))
	if err != nil {
		return export.Params{}, fmt.Errorf("purgeTable: %w", err)
	}

	olderThan := q.Get("olderThan")
	if olderThan == "" {
		return export.Params{}, fmt.Errorf("olderThan is required")
	}
	days, err := strconv.Atoi(olderThan)
	if err != nil {
		return export.Params{}, fmt.Errorf("olderThan: %w", err)
	}
	if days < 0 {
		days = -days
	}

	var tableNames []string
	for _, name := range strings.Split(q.Get("tableNames"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			tableNames = append(tableNames, name)
		}
	}

	release := q.Get("deploymentName")
	if release == "" {
		release = h.cfg.Cleanup.ReleaseName
	}
	if release == "" {
		release = constants.DefaultReleaseName
	}

	params := export.Params{
		DryRun:        dryRun,
		OlderThanDays: days,
		ExportFormat:  queryDefault("exportFormat", constants.DefaultExportFormat),
		OutputPath:    queryDefault("outputPath", h.cfg.Cleanup.OutputPath),
		ReleaseName:   release,
		DropArchives:  dropArchives,
		TableNames:    tableNames,
		Destination: storage.Destination{
			Provider:      q.Get("provider"),
			Bucket:        q.Get("bucketName"),
			ConnectionID:  q.Get("connectionId"),
			SecretEnvName: q.Get("providerEnvSecretName"),
		},
	}

	slog.InfoContext(r.Context(), "Export requested",
		"dry_run", params.DryRun,
		"days", params.OlderThanDays,
		"export_format", params.ExportFormat,
		"output_path", params.OutputPath,
		"provider", params.Destination.Provider,
		"bucket_name", params.Destination.Bucket,
		"drop_archives", params.DropArchives,
		"deployment_name", params.ReleaseName,
		"conn_id", params.Destination.ConnectionID,
		"provider_secret_env", params.Destination.SecretEnvName,
		"table_names", params.TableNames,
	)
	return params, nil
}

func (h *Handler) notifySuccess(r *http.Request, result export.Result) {
	if h.notifier == nil || !h.notifier.Enabled() {
		return
	}
	if err := h.notifier.NotifyRunSuccess(r.Context(), result.ReleaseName, result.Provider, result.Message); err != nil {
		slog.ErrorContext(r.Context(), "Failed to send NotifyRunSuccess", "error", err)
	}
}

func (h *Handler) notifyFailure(r *http.Request, result export.Result) {
	if h.notifier == nil || !h.notifier.Enabled() {
		return
	}
	if err := h.notifier.NotifyRunFailure(r.Context(), result.ReleaseName, result.Err); err != nil {
		slog.ErrorContext(r.Context(), "Failed to send NotifyRunFailure", "error", err)
	}
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// parseBool converts a boolean-as-string query value: trimmed and
// case-insensitive, accepting t/true/1 and f/false/0 only.
func parseBool(val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "t", "true", "1":
		return true, nil
	case "f", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("failed to convert value to bool, got %q", val)
	}
}
