package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/repo"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

// ListJobs возвращает job'ы, новые первыми.
// GET /api/v1/jobs?workflowId=...&status=...&limit=...
//
// limit: по умолчанию 20, не больше 100.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := repo.JobFilter{}
	query := r.URL.Query()

	// Парсим query параметры
	if s := query.Get("workflowId"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			badRequest(w, "invalid workflowId")
			return
		}
		filter.WorkflowID = &id
	}

	if s := query.Get("status"); s != "" {
		status, ok := domain.ParseJobStatus(strings.ToUpper(s))
		if !ok {
			badRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	logger := telemetry.FromContext(r.Context()).With(
		"workflow_filter", query.Get("workflowId"),
		"status_filter", filter.Status,
		"limit", repo.NormalizeLimit(filter.Limit),
	)

	jobs, err := h.jobs.List(r.Context(), filter)
	if writeStoreError(w, logger, err, "") {
		return
	}

	logger.Debug("jobs listed", "count", len(jobs))
	writeJSON(w, http.StatusOK, ListResponse{Data: jobs, Total: len(jobs)})
}

// GetJob возвращает job с результатами действий.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid job id")
		return
	}

	logger := telemetry.WithJobID(telemetry.FromContext(r.Context()), id)

	job, err := h.jobs.GetByID(r.Context(), id)
	if writeStoreError(w, logger, err, "job not found") {
		return
	}

	logger.Debug("job served", "status", job.Status)
	writeJSON(w, http.StatusOK, DataResponse{Data: job})
}
