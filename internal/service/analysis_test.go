package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/repository"
)

// --- Моки ---

type mockJobRepo struct {
	createIfAbsentFn       func(ctx context.Context, job *model.AnalysisJob) error
	getByIDFn              func(ctx context.Context, jobID string) (*model.AnalysisJob, error)
	getLatestByRecordingFn func(ctx context.Context, recordingID string) (*model.AnalysisJob, error)
	completeFn             func(ctx context.Context, job *model.AnalysisJob) error
	failFn                 func(ctx context.Context, jobID, errorMessage string) error
	failed                 []string
}

func (m *mockJobRepo) CreateIfAbsent(ctx context.Context, job *model.AnalysisJob) error {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, job)
	}
	job.Status = model.JobStatusPending
	job.CreatedAt = time.Now()
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, jobID string) (*model.AnalysisJob, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, jobID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockJobRepo) GetLatestByRecording(ctx context.Context, recordingID string) (*model.AnalysisJob, error) {
	if m.getLatestByRecordingFn != nil {
		return m.getLatestByRecordingFn(ctx, recordingID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockJobRepo) Complete(ctx context.Context, job *model.AnalysisJob) error {
	if m.completeFn != nil {
		return m.completeFn(ctx, job)
	}
	return nil
}

func (m *mockJobRepo) Fail(ctx context.Context, jobID, errorMessage string) error {
	m.failed = append(m.failed, jobID)
	if m.failFn != nil {
		return m.failFn(ctx, jobID, errorMessage)
	}
	return nil
}

type mockQueue struct {
	enqueueFn func(ctx context.Context, task *queue.Task) error
	tasks     []*queue.Task
}

func (m *mockQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	m.tasks = append(m.tasks, task)
	return nil
}

const (
	testRecordingID = "11111111-1111-1111-1111-111111111111"
	testOwner       = "researcher-1"
)

func ownedRecordingRepo() *mockRecordingRepo {
	return &mockRecordingRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Recording, error) {
			if id != testRecordingID {
				return nil, repository.ErrNotFound
			}
			return &model.Recording{
				RecordingID:  testRecordingID,
				ObjectKey:    "audio/canis_lupus/obj_howl.wav",
				OwnerSubject: testOwner,
				Species:      "canis_lupus",
			}, nil
		},
	}
}

// --- Тесты GetOrTrigger ---

func TestGetOrTrigger_CreatesNewJob(t *testing.T) {
	jobs := &mockJobRepo{}
	q := &mockQueue{}
	svc := NewAnalysisService(ownedRecordingRepo(), jobs, q, nil, testLogger())

	res, err := svc.GetOrTrigger(context.Background(), testOwner, testRecordingID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if !res.Created {
		t.Error("ожидалось Created=true для нового задания")
	}
	if res.Job.Status != model.JobStatusPending {
		t.Errorf("статус = %q, ожидался pending", res.Job.Status)
	}
	if len(q.tasks) != 1 {
		t.Fatalf("ожидалось 1 задание в очереди, получено %d", len(q.tasks))
	}
	if q.tasks[0].ObjectKey != "audio/canis_lupus/obj_howl.wav" {
		t.Errorf("неожиданный object_key в задании: %q", q.tasks[0].ObjectKey)
	}
}

// Повторный запуск при активном или завершённом задании возвращает его
// без постановки дубликата в очередь.
func TestGetOrTrigger_IdempotentOnExisting(t *testing.T) {
	for _, status := range []string{model.JobStatusPending, model.JobStatusComplete} {
		t.Run(status, func(t *testing.T) {
			existing := &model.AnalysisJob{
				JobID:       "existing-job",
				RecordingID: testRecordingID,
				Status:      status,
			}
			jobs := &mockJobRepo{
				createIfAbsentFn: func(context.Context, *model.AnalysisJob) error {
					return repository.ErrConflict
				},
				getLatestByRecordingFn: func(context.Context, string) (*model.AnalysisJob, error) {
					return existing, nil
				},
			}
			q := &mockQueue{}
			svc := NewAnalysisService(ownedRecordingRepo(), jobs, q, nil, testLogger())

			res, err := svc.GetOrTrigger(context.Background(), testOwner, testRecordingID)
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if res.Created {
				t.Error("ожидалось Created=false для существующего задания")
			}
			if res.Job.JobID != "existing-job" {
				t.Errorf("вернулось не существующее задание: %q", res.Job.JobID)
			}
			if len(q.tasks) != 0 {
				t.Errorf("дубликат поставлен в очередь: %d заданий", len(q.tasks))
			}
		})
	}
}

func TestGetOrTrigger_NotFound(t *testing.T) {
	svc := NewAnalysisService(ownedRecordingRepo(), &mockJobRepo{}, &mockQueue{}, nil, testLogger())

	_, err := svc.GetOrTrigger(context.Background(), testOwner, "22222222-2222-2222-2222-222222222222")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// Чужая запись недоступна независимо от ролей субъекта.
func TestGetOrTrigger_OwnershipViolation(t *testing.T) {
	svc := NewAnalysisService(ownedRecordingRepo(), &mockJobRepo{}, &mockQueue{}, nil, testLogger())

	_, err := svc.GetOrTrigger(context.Background(), "admin-9", testRecordingID)
	if !errors.Is(err, ErrOwnership) {
		t.Errorf("ожидался ErrOwnership, получено %v", err)
	}
}

// Сбой очереди переводит только что созданное задание в failed,
// чтобы повторный запуск остался возможен.
func TestGetOrTrigger_DispatchFault(t *testing.T) {
	jobs := &mockJobRepo{}
	q := &mockQueue{
		enqueueFn: func(context.Context, *queue.Task) error {
			return errors.New("redis недоступен")
		},
	}
	svc := NewAnalysisService(ownedRecordingRepo(), jobs, q, nil, testLogger())

	_, err := svc.GetOrTrigger(context.Background(), testOwner, testRecordingID)
	if !errors.Is(err, ErrDispatch) {
		t.Fatalf("ожидался ErrDispatch, получено %v", err)
	}
	if len(jobs.failed) != 1 {
		t.Errorf("неотправленное задание должно быть переведено в failed, переведено %d", len(jobs.failed))
	}
}

// --- Тесты GetResult ---

func TestGetResult_ReturnsLatestJob(t *testing.T) {
	translation := "территориальный сигнал"
	jobs := &mockJobRepo{
		getLatestByRecordingFn: func(context.Context, string) (*model.AnalysisJob, error) {
			return &model.AnalysisJob{
				JobID:       "job-1",
				RecordingID: testRecordingID,
				Status:      model.JobStatusComplete,
				Translation: &translation,
			}, nil
		},
	}
	svc := NewAnalysisService(ownedRecordingRepo(), jobs, &mockQueue{}, nil, testLogger())

	job, err := svc.GetResult(context.Background(), testOwner, testRecordingID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if job.Translation == nil || *job.Translation != translation {
		t.Errorf("неожиданный translation: %v", job.Translation)
	}
}

func TestGetResult_NoJob(t *testing.T) {
	svc := NewAnalysisService(ownedRecordingRepo(), &mockJobRepo{}, &mockQueue{}, nil, testLogger())

	_, err := svc.GetResult(context.Background(), testOwner, testRecordingID)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("ожидался ErrNotFound при отсутствии заданий, получено %v", err)
	}
}

func TestGetResult_OwnershipViolation(t *testing.T) {
	svc := NewAnalysisService(ownedRecordingRepo(), &mockJobRepo{}, &mockQueue{}, nil, testLogger())

	_, err := svc.GetResult(context.Background(), "other-user", testRecordingID)
	if !errors.Is(err, ErrOwnership) {
		t.Errorf("ожидался ErrOwnership, получено %v", err)
	}
}

// Завершённый результат попадает в кэш; второе чтение не ходит в БД.
func TestGetResult_CachesCompleteJobs(t *testing.T) {
	calls := 0
	jobs := &mockJobRepo{
		getLatestByRecordingFn: func(context.Context, string) (*model.AnalysisJob, error) {
			calls++
			return &model.AnalysisJob{
				JobID:       "job-1",
				RecordingID: testRecordingID,
				Status:      model.JobStatusComplete,
			}, nil
		},
	}
	cache := NewResultCache(16, time.Minute)
	svc := NewAnalysisService(ownedRecordingRepo(), jobs, &mockQueue{}, cache, testLogger())
	ctx := context.Background()

	if _, err := svc.GetResult(ctx, testOwner, testRecordingID); err != nil {
		t.Fatalf("первое чтение: %v", err)
	}
	if _, err := svc.GetResult(ctx, testOwner, testRecordingID); err != nil {
		t.Fatalf("второе чтение: %v", err)
	}
	if calls != 1 {
		t.Errorf("ожидалось 1 обращение к БД, было %d", calls)
	}
}

// Pending-задания не кэшируются: статус ещё изменится.
func TestGetResult_DoesNotCachePending(t *testing.T) {
	calls := 0
	jobs := &mockJobRepo{
		getLatestByRecordingFn: func(context.Context, string) (*model.AnalysisJob, error) {
			calls++
			return &model.AnalysisJob{
				JobID:       "job-1",
				RecordingID: testRecordingID,
				Status:      model.JobStatusPending,
			}, nil
		},
	}
	cache := NewResultCache(16, time.Minute)
	svc := NewAnalysisService(ownedRecordingRepo(), jobs, &mockQueue{}, cache, testLogger())
	ctx := context.Background()

	svc.GetResult(ctx, testOwner, testRecordingID) //nolint:errcheck
	svc.GetResult(ctx, testOwner, testRecordingID) //nolint:errcheck

	if calls != 2 {
		t.Errorf("pending не должен кэшироваться: ожидалось 2 обращения к БД, было %d", calls)
	}
}
