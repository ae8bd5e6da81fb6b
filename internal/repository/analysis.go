package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/govocalstore/internal/domain/model"
)

// AnalysisJobRepository — доступ к таблице analysis_jobs.
//
// Инвариант «не более одного активного задания на запись» обеспечивается
// частичным уникальным индексом по recording_id для статусов
// pending и complete. CreateIfAbsent — единственная точка принятия
// решения: конкурентные вставки разрешает сама БД.
type AnalysisJobRepository interface {
	// CreateIfAbsent вставляет новое pending-задание.
	// Если для записи уже есть задание в статусе pending или complete —
	// возвращает ErrConflict, вставка не происходит.
	CreateIfAbsent(ctx context.Context, job *model.AnalysisJob) error
	// GetByID возвращает задание по UUID.
	GetByID(ctx context.Context, jobID string) (*model.AnalysisJob, error)
	// GetLatestByRecording возвращает последнее задание записи.
	GetLatestByRecording(ctx context.Context, recordingID string) (*model.AnalysisJob, error)
	// Complete переводит pending-задание в complete и сохраняет результат.
	Complete(ctx context.Context, job *model.AnalysisJob) error
	// Fail переводит pending-задание в failed с причиной.
	Fail(ctx context.Context, jobID, errorMessage string) error
}

// jobColumns — общий список колонок для SELECT.
const jobColumns = `job_id, recording_id, status, translation, behavioral_tags,
	accuracy, quality_issues, partial, error_message, created_at, completed_at`

// analysisJobRepo — реализация AnalysisJobRepository.
type analysisJobRepo struct {
	db DBTX
}

// NewAnalysisJobRepository создаёт репозиторий заданий анализа.
func NewAnalysisJobRepository(db DBTX) AnalysisJobRepository {
	return &analysisJobRepo{db: db}
}

func (r *analysisJobRepo) CreateIfAbsent(ctx context.Context, job *model.AnalysisJob) error {
	query := `
		INSERT INTO analysis_jobs (job_id, recording_id, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		job.JobID, job.RecordingID, model.JobStatusPending,
	).Scan(&job.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: для записи уже есть активное или завершённое задание", ErrConflict)
		}
		return fmt.Errorf("ошибка создания задания: %w", err)
	}
	job.Status = model.JobStatusPending
	return nil
}

func (r *analysisJobRepo) GetByID(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE job_id = $1`
	return r.scanJob(r.db.QueryRow(ctx, query, jobID))
}

func (r *analysisJobRepo) GetLatestByRecording(ctx context.Context, recordingID string) (*model.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + `
		FROM analysis_jobs
		WHERE recording_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanJob(r.db.QueryRow(ctx, query, recordingID))
}

func (r *analysisJobRepo) Complete(ctx context.Context, job *model.AnalysisJob) error {
	// Обновление только из pending: результат терминального задания неизменяем.
	query := `
		UPDATE analysis_jobs
		SET status = $2, translation = $3, behavioral_tags = $4, accuracy = $5,
			quality_issues = $6, partial = $7, completed_at = now()
		WHERE job_id = $1 AND status = $8
		RETURNING completed_at`

	err := r.db.QueryRow(ctx, query,
		job.JobID, model.JobStatusComplete, job.Translation, job.BehavioralTags,
		job.Accuracy, job.QualityIssues, job.Partial, model.JobStatusPending,
	).Scan(&job.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: pending-задание не найдено", ErrNotFound)
		}
		return fmt.Errorf("ошибка завершения задания: %w", err)
	}
	job.Status = model.JobStatusComplete
	return nil
}

func (r *analysisJobRepo) Fail(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE analysis_jobs
		SET status = $2, error_message = $3, completed_at = now()
		WHERE job_id = $1 AND status = $4`

	tag, err := r.db.Exec(ctx, query,
		jobID, model.JobStatusFailed, errorMessage, model.JobStatusPending)
	if err != nil {
		return fmt.Errorf("ошибка перевода задания в failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pending-задание не найдено", ErrNotFound)
	}
	return nil
}

// scanJob читает одну строку задания.
func (r *analysisJobRepo) scanJob(row pgx.Row) (*model.AnalysisJob, error) {
	job := &model.AnalysisJob{}
	err := row.Scan(
		&job.JobID, &job.RecordingID, &job.Status, &job.Translation,
		&job.BehavioralTags, &job.Accuracy, &job.QualityIssues, &job.Partial,
		&job.ErrorMessage, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения задания: %w", err)
	}
	return job, nil
}
