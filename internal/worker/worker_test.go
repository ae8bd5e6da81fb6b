package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/storage/objectstore"
)

// --- Моки ---

type mockJobRepo struct {
	completed []*model.AnalysisJob
	failed    map[string]string
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{failed: make(map[string]string)}
}

func (m *mockJobRepo) CreateIfAbsent(context.Context, *model.AnalysisJob) error { return nil }
func (m *mockJobRepo) GetByID(context.Context, string) (*model.AnalysisJob, error) {
	return nil, errors.New("не настроен")
}
func (m *mockJobRepo) GetLatestByRecording(context.Context, string) (*model.AnalysisJob, error) {
	return nil, errors.New("не настроен")
}

func (m *mockJobRepo) Complete(_ context.Context, job *model.AnalysisJob) error {
	job.Status = model.JobStatusComplete
	m.completed = append(m.completed, job)
	return nil
}

func (m *mockJobRepo) Fail(_ context.Context, jobID, msg string) error {
	m.failed[jobID] = msg
	return nil
}

type mockFetcher struct {
	data map[string][]byte
	err  error
}

func (m *mockFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return data, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTask() *queue.Task {
	return &queue.Task{
		JobID:       "job-1",
		RecordingID: "rec-1",
		ObjectKey:   "audio/canis_lupus/obj_howl.wav",
		Species:     "canis_lupus",
	}
}

// cleanAudio — данные без эвристических проблем качества.
func cleanAudio() []byte {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(0x40 + i%0x40) // средняя амплитуда, без клиппинга
	}
	return data
}

func newTestWorker(jobs *mockJobRepo, fetcher *mockFetcher) *Worker {
	return New(nil, jobs, fetcher, NewSimulatedAnalyzer(), 1, time.Second, testLogger())
}

// --- Тесты Process ---

func TestProcess_CompleteFullResult(t *testing.T) {
	jobs := newMockJobRepo()
	fetcher := &mockFetcher{data: map[string][]byte{
		"audio/canis_lupus/obj_howl.wav": cleanAudio(),
	}}

	newTestWorker(jobs, fetcher).Process(context.Background(), testTask())

	if len(jobs.completed) != 1 {
		t.Fatalf("ожидалось 1 завершённое задание, получено %d", len(jobs.completed))
	}
	job := jobs.completed[0]
	if job.Partial {
		t.Error("полный результат не должен быть partial")
	}
	if job.Translation == nil || *job.Translation == "" {
		t.Error("translation должен быть заполнен")
	}
	if job.Accuracy == nil || *job.Accuracy < 0 || *job.Accuracy > 1 {
		t.Errorf("accuracy вне [0,1]: %v", job.Accuracy)
	}
	if len(job.BehavioralTags) == 0 {
		t.Error("behavioral_tags должны быть заполнены")
	}
}

// Неподдерживаемый вид завершается как partial, не как failed.
func TestProcess_UnsupportedSpeciesPartial(t *testing.T) {
	jobs := newMockJobRepo()
	task := testTask()
	task.Species = "felis_catus"
	task.ObjectKey = "audio/felis_catus/obj_meow.wav"
	fetcher := &mockFetcher{data: map[string][]byte{task.ObjectKey: cleanAudio()}}

	newTestWorker(jobs, fetcher).Process(context.Background(), task)

	if len(jobs.failed) != 0 {
		t.Errorf("неподдерживаемый вид не должен давать failed: %v", jobs.failed)
	}
	if len(jobs.completed) != 1 {
		t.Fatalf("ожидалось 1 завершённое задание, получено %d", len(jobs.completed))
	}
	job := jobs.completed[0]
	if !job.Partial {
		t.Error("ожидался partial=true для неподдерживаемого вида")
	}
	if job.Translation != nil || job.Accuracy != nil || job.BehavioralTags != nil {
		t.Error("translation/accuracy/tags должны быть null для неподдерживаемого вида")
	}
}

// Проблемы качества дают partial с перечислением проблем,
// но интерпретация сохраняется: null translation — только для
// вида без модели.
func TestProcess_QualityIssuesPartial(t *testing.T) {
	jobs := newMockJobRepo()
	// Клиппинг: все сэмплы у потолка → эвристика noise
	noisy := bytes.Repeat([]byte{0xFE}, 1024)
	fetcher := &mockFetcher{data: map[string][]byte{
		"audio/canis_lupus/obj_howl.wav": noisy,
	}}

	newTestWorker(jobs, fetcher).Process(context.Background(), testTask())

	if len(jobs.completed) != 1 {
		t.Fatalf("ожидалось 1 завершённое задание, получено %d", len(jobs.completed))
	}
	job := jobs.completed[0]
	if !job.Partial {
		t.Error("ожидался partial=true при проблемах качества")
	}
	if len(job.QualityIssues) == 0 {
		t.Error("quality_issues должны быть заполнены")
	}
	if job.Translation == nil || *job.Translation == "" {
		t.Error("translation должен сохраняться при проблемах качества")
	}
	if job.Accuracy == nil {
		t.Error("accuracy должна сохраняться при проблемах качества")
	}
}

// Проверки качества выполняются и для вида без модели.
func TestProcess_UnsupportedSpeciesCarriesQualityIssues(t *testing.T) {
	jobs := newMockJobRepo()
	task := testTask()
	task.Species = "felis_catus"
	task.ObjectKey = "audio/felis_catus/obj_meow.wav"
	noisy := bytes.Repeat([]byte{0xFE}, 1024)
	fetcher := &mockFetcher{data: map[string][]byte{task.ObjectKey: noisy}}

	newTestWorker(jobs, fetcher).Process(context.Background(), task)

	if len(jobs.completed) != 1 {
		t.Fatalf("ожидалось 1 завершённое задание, получено %d", len(jobs.completed))
	}
	job := jobs.completed[0]
	if !job.Partial {
		t.Error("ожидался partial=true для неподдерживаемого вида")
	}
	if len(job.QualityIssues) == 0 {
		t.Error("quality_issues должны быть заполнены и без модели")
	}
	if job.Translation != nil {
		t.Error("translation должен быть null для вида без модели")
	}
}

func TestProcess_FetchFault(t *testing.T) {
	jobs := newMockJobRepo()
	fetcher := &mockFetcher{err: errors.New("хранилище недоступно")}

	newTestWorker(jobs, fetcher).Process(context.Background(), testTask())

	if len(jobs.completed) != 0 {
		t.Error("задание не должно завершаться при сбое хранилища")
	}
	if _, ok := jobs.failed["job-1"]; !ok {
		t.Error("задание должно быть переведено в failed")
	}
}

// Провал расшифровки — failed с указанием инцидента целостности.
func TestProcess_DecryptFault(t *testing.T) {
	jobs := newMockJobRepo()
	fetcher := &mockFetcher{err: objectstore.ErrDecrypt}

	newTestWorker(jobs, fetcher).Process(context.Background(), testTask())

	msg, ok := jobs.failed["job-1"]
	if !ok {
		t.Fatal("задание должно быть переведено в failed")
	}
	if msg == "" {
		t.Error("причина отказа пуста")
	}
}

// --- Тесты анализатора ---

func TestSimulatedAnalyzer_Deterministic(t *testing.T) {
	a := NewSimulatedAnalyzer()
	ctx := context.Background()
	data := cleanAudio()

	r1, err := a.Analyze(ctx, data, "panthera_leo")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	r2, err := a.Analyze(ctx, data, "panthera_leo")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if r1.Translation != r2.Translation || r1.Accuracy != r2.Accuracy {
		t.Error("анализатор недетерминирован для одинакового входа")
	}
}

func TestSimulatedAnalyzer_AccuracyRange(t *testing.T) {
	a := NewSimulatedAnalyzer()

	for _, seed := range []byte{0, 1, 42, 127, 255} {
		data := bytes.Repeat([]byte{0x40, seed % 0x60}, 256)
		res, err := a.Analyze(context.Background(), data, "gorilla_gorilla")
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if res.Accuracy < 0.70 || res.Accuracy > 0.99 {
			t.Errorf("accuracy %f вне диапазона [0.70, 0.99]", res.Accuracy)
		}
	}
}

func TestSimulatedAnalyzer_UnknownSpecies(t *testing.T) {
	a := NewSimulatedAnalyzer()
	if _, err := a.Analyze(context.Background(), cleanAudio(), "felis_catus"); err == nil {
		t.Error("ожидалась ошибка для вида вне таблицы модели")
	}
}

func TestDetectQualityIssues(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{"чистый сигнал", cleanAudio(), nil},
		{"клиппинг", bytes.Repeat([]byte{0xFF}, 512), []string{model.QualityIssueNoise}},
		{"наложение источников", bytes.Repeat([]byte{0x00, 0xFF}, 256), []string{model.QualityIssueOverlap}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectQualityIssues(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("получено %v, ожидалось %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("issue[%d] = %q, ожидалось %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
