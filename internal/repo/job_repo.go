package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shaiso/Hookflow/internal/domain"
)

// Ограничения выборки List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// JobRepo — репозиторий для работы с jobs.
type JobRepo struct {
	db DBTX
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(db DBTX) *JobRepo {
	return &JobRepo{db: db}
}

// jobColumns — порядок колонок для scanJob.
const jobColumns = `id, workflow_id, trigger_id, status, payload, attempts,
		       result, last_error, created_at, updated_at`

// Create создаёт job. ID, CreatedAt и UpdatedAt назначает БД.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job must be created in %s", ErrInvalidState, domain.JobStatusRunning)
	}

	payloadJSON, err := marshalNullable(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO jobs (workflow_id, trigger_id, status, payload, attempts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		job.WorkflowID,
		job.TriggerID,
		string(job.Status),
		payloadJSON,
		job.Attempts,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update записывает статус, результат, ошибку и счётчик попыток.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	var resultJSON []byte
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = b
	}

	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}

	query := `
		UPDATE jobs
		SET status = $2, result = $3, last_error = $4, attempts = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		job.ID,
		string(job.Status),
		resultJSON,
		nullString(job.LastError),
		job.Attempts,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1
	`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	WorkflowID *int64
	Status     domain.JobStatus
	Limit      int
}

// NormalizeLimit приводит лимит к диапазону 1..MaxListLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// List возвращает jobs, новые первыми.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ($1::bigint IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2::job_status)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query,
		filter.WorkflowID,
		nullString(string(filter.Status)),
		NormalizeLimit(filter.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

// scanJob сканирует одну строку в Job. pgx.Rows тоже реализует pgx.Row.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job         domain.Job
		status      string
		payloadJSON []byte
		resultJSON  []byte
		lastError   *string
	)

	err := row.Scan(
		&job.ID,
		&job.WorkflowID,
		&job.TriggerID,
		&status,
		&payloadJSON,
		&job.Attempts,
		&resultJSON,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	parsed, ok := domain.ParseJobStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan job: unknown status %q", status)
	}
	job.Status = parsed

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if resultJSON != nil {
		job.Result = &domain.JobResult{}
		if err := json.Unmarshal(resultJSON, job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if lastError != nil {
		job.LastError = *lastError
	}

	return &job, nil
}

// marshalNullable возвращает nil для nil map (NULL в БД).
func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
