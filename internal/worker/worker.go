package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/domain/species"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/repository"
	"github.com/bigkaa/govocalstore/internal/storage/objectstore"
)

// Метрики воркера.
var (
	tasksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vm_worker_tasks_total",
		Help: "Количество обработанных заданий анализа по исходам.",
	}, []string{"outcome"}) // complete, partial, failed

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vm_worker_task_duration_seconds",
		Help:    "Длительность обработки одного задания анализа в секундах.",
		Buckets: prometheus.DefBuckets,
	})
)

// Dequeuer — очередь заданий, как её видит воркер.
type Dequeuer interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error)
}

// ObjectFetcher — шифрованное хранилище, как его видит воркер.
type ObjectFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Worker — консьюмер очереди заданий анализа.
// Запускает N горутин; каждая блокирующе читает очередь с ограниченным
// таймаутом и уважает отмену контекста.
type Worker struct {
	queue       Dequeuer
	jobs        repository.AnalysisJobRepository
	objects     ObjectFetcher
	analyzer    Analyzer
	concurrency int
	pollTimeout time.Duration
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New создаёт воркер.
func New(
	q Dequeuer,
	jobs repository.AnalysisJobRepository,
	objects ObjectFetcher,
	analyzer Analyzer,
	concurrency int,
	pollTimeout time.Duration,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		queue:       q,
		jobs:        jobs,
		objects:     objects,
		analyzer:    analyzer,
		concurrency: concurrency,
		pollTimeout: pollTimeout,
		logger:      logger.With(slog.String("component", "worker")),
	}
}

// Start запускает горутины-консьюмеры.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}

	w.logger.Info("Воркер запущен",
		slog.Int("concurrency", w.concurrency),
		slog.Duration("poll_timeout", w.pollTimeout))
}

// Stop останавливает консьюмеров и дожидается завершения текущих заданий.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("Воркер остановлен")
}

// run — цикл одного консьюмера.
func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	logger := w.logger.With(slog.Int("consumer", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			logger.Error("ошибка чтения из очереди", slog.String("error", err.Error()))
			// Пауза перед повтором, чтобы не крутить горячий цикл при лежащем Redis
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.Process(ctx, task)
	}
}

// Process выполняет одно задание: получает и расшифровывает объект,
// прогоняет анализ с гейтингом по виду и фиксирует терминальный статус.
//
// Неподдерживаемый вид — это complete с partial=true и null-полями,
// а не failed: «модели нет» отличимо от «обработка сломалась».
func (w *Worker) Process(ctx context.Context, task *queue.Task) {
	start := time.Now()
	logger := w.logger.With(
		slog.String("job_id", task.JobID),
		slog.String("recording_id", task.RecordingID))

	data, err := w.objects.Fetch(ctx, task.ObjectKey)
	if err != nil {
		reason := fmt.Sprintf("получение объекта: %v", err)
		if errors.Is(err, objectstore.ErrDecrypt) {
			reason = "объект не прошёл проверку целостности при расшифровке"
		}
		w.fail(ctx, logger, task.JobID, reason)
		taskDuration.Observe(time.Since(start).Seconds())
		return
	}

	job := &model.AnalysisJob{JobID: task.JobID, RecordingID: task.RecordingID}

	if !species.IsSupported(task.Species) {
		// Проверки качества выполняются до гейтинга по виду:
		// частичный результат без модели всё равно описывает запись.
		job.Partial = true
		job.QualityIssues = detectQualityIssues(data)
		w.complete(ctx, logger, job, "partial")
		taskDuration.Observe(time.Since(start).Seconds())
		return
	}

	res, err := w.analyzer.Analyze(ctx, data, task.Species)
	if err != nil {
		w.fail(ctx, logger, task.JobID, fmt.Sprintf("анализ: %v", err))
		taskDuration.Observe(time.Since(start).Seconds())
		return
	}

	// Интерпретация сохраняется и при проблемах качества: partial
	// помечает сниженную достоверность, null translation зарезервирован
	// за случаем «модели нет».
	job.Translation = &res.Translation
	job.BehavioralTags = res.BehavioralTags
	accuracy := res.Accuracy
	job.Accuracy = &accuracy

	outcome := "complete"
	if len(res.QualityIssues) > 0 {
		job.Partial = true
		job.QualityIssues = res.QualityIssues
		outcome = "partial"
	}

	w.complete(ctx, logger, job, outcome)
	taskDuration.Observe(time.Since(start).Seconds())
}

// complete фиксирует успешное завершение задания.
func (w *Worker) complete(ctx context.Context, logger *slog.Logger, job *model.AnalysisJob, outcome string) {
	if err := w.jobs.Complete(ctx, job); err != nil {
		logger.Error("не удалось зафиксировать завершение задания",
			slog.String("error", err.Error()))
		tasksProcessedTotal.WithLabelValues("failed").Inc()
		return
	}
	tasksProcessedTotal.WithLabelValues(outcome).Inc()
	logger.Info("задание завершено",
		slog.String("outcome", outcome),
		slog.Bool("partial", job.Partial))
}

// fail переводит задание в failed с причиной.
func (w *Worker) fail(ctx context.Context, logger *slog.Logger, jobID, reason string) {
	if err := w.jobs.Fail(ctx, jobID, reason); err != nil {
		logger.Error("не удалось перевести задание в failed",
			slog.String("error", err.Error()))
	}
	tasksProcessedTotal.WithLabelValues("failed").Inc()
	logger.Warn("задание провалено", slog.String("reason", reason))
}
