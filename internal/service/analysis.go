package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/repository"
)

// Enqueuer — очередь заданий, как её видит сервис анализа.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *queue.Task) error
}

// TriggerResult — итог запроса запуска анализа.
type TriggerResult struct {
	// Job — актуальное задание (новое или уже существующее)
	Job *model.AnalysisJob
	// Created — true, если задание создано этим запросом
	Created bool
}

// AnalysisService — идемпотентный запуск анализа и чтение результатов.
//
// Инвариант «не более одного активного задания на запись» держится
// на частичном уникальном индексе БД: CreateIfAbsent либо вставляет,
// либо возвращает ErrConflict — и тогда возвращается существующее
// задание. Повторный запуск возможен только после failed.
type AnalysisService struct {
	recordings repository.RecordingRepository
	jobs       repository.AnalysisJobRepository
	queue      Enqueuer
	cache      *ResultCache
	logger     *slog.Logger
}

// NewAnalysisService создаёт сервис анализа.
// cache может быть nil — тогда чтение всегда идёт в БД.
func NewAnalysisService(
	recordings repository.RecordingRepository,
	jobs repository.AnalysisJobRepository,
	q Enqueuer,
	cache *ResultCache,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		recordings: recordings,
		jobs:       jobs,
		queue:      q,
		cache:      cache,
		logger:     logger.With(slog.String("component", "analysis")),
	}
}

// GetOrTrigger возвращает существующее задание записи или создаёт новое.
//
// Семантика: pending и complete задания возвращаются как есть
// (идемпотентный запуск, Created=false); после failed создаётся
// свежее pending-задание и ставится в очередь. Проверка владения —
// только владелец, роль значения не имеет.
func (s *AnalysisService) GetOrTrigger(ctx context.Context, subject, recordingID string) (*TriggerResult, error) {
	rec, err := s.authorizeOwner(ctx, subject, recordingID)
	if err != nil {
		return nil, err
	}

	job := &model.AnalysisJob{
		JobID:       uuid.New().String(),
		RecordingID: recordingID,
	}

	err = s.jobs.CreateIfAbsent(ctx, job)
	if errors.Is(err, repository.ErrConflict) {
		// Активное или завершённое задание уже есть — возвращаем его.
		existing, getErr := s.jobs.GetLatestByRecording(ctx, recordingID)
		if getErr != nil {
			return nil, fmt.Errorf("получение существующего задания: %w", getErr)
		}
		triggerIdempotentTotal.Inc()
		return &TriggerResult{Job: existing, Created: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("создание задания: %w", err)
	}

	task := &queue.Task{
		JobID:       job.JobID,
		RecordingID: recordingID,
		ObjectKey:   rec.ObjectKey,
		Species:     rec.Species,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// Задание без воркера зависнет в pending — переводим в failed,
		// чтобы следующий запуск был возможен.
		if failErr := s.jobs.Fail(ctx, job.JobID, "постановка в очередь провалилась"); failErr != nil {
			s.logger.Error("не удалось перевести неотправленное задание в failed",
				slog.String("job_id", job.JobID),
				slog.String("error", failErr.Error()))
		}
		s.logger.Error("сбой постановки задания в очередь",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s", ErrDispatch, err.Error())
	}

	jobsCreatedTotal.Inc()
	s.logger.Info("задание анализа создано",
		slog.String("job_id", job.JobID),
		slog.String("recording_id", recordingID),
		slog.String("species", rec.Species))

	return &TriggerResult{Job: job, Created: true}, nil
}

// GetResult возвращает последнее задание записи с результатом.
// Завершённые результаты кэшируются: терминальное задание неизменяемо.
func (s *AnalysisService) GetResult(ctx context.Context, subject, recordingID string) (*model.AnalysisJob, error) {
	if _, err := s.authorizeOwner(ctx, subject, recordingID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if job, ok := s.cache.Get(recordingID); ok {
			return job, nil
		}
	}

	job, err := s.jobs.GetLatestByRecording(ctx, recordingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("получение задания: %w", err)
	}

	if s.cache != nil && job.Status == model.JobStatusComplete {
		s.cache.Set(recordingID, job)
	}
	return job, nil
}

// ListRecordings возвращает записи владельца.
func (s *AnalysisService) ListRecordings(ctx context.Context, subject string, limit, offset int) ([]*model.Recording, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	recordings, err := s.recordings.ListByOwner(ctx, subject, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список записей: %w", err)
	}
	total, err := s.recordings.CountByOwner(ctx, subject)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт записей: %w", err)
	}
	return recordings, total, nil
}

// GetRecording возвращает запись владельца.
func (s *AnalysisService) GetRecording(ctx context.Context, subject, recordingID string) (*model.Recording, error) {
	return s.authorizeOwner(ctx, subject, recordingID)
}

// authorizeOwner загружает запись и проверяет владение.
// Чужая запись — ErrOwnership независимо от ролей субъекта.
func (s *AnalysisService) authorizeOwner(ctx context.Context, subject, recordingID string) (*model.Recording, error) {
	rec, err := s.recordings.GetByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("получение записи: %w", err)
	}
	if rec.OwnerSubject != subject {
		return nil, ErrOwnership
	}
	return rec, nil
}
