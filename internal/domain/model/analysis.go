package model

import "time"

// Статусы задания анализа. Жизненный цикл: pending → complete | failed.
// Повторный запуск допускается только после failed.
const (
	JobStatusPending  = "pending"
	JobStatusComplete = "complete"
	JobStatusFailed   = "failed"
)

// Известные проблемы качества записи, выявляемые анализатором.
const (
	QualityIssueNoise   = "noise"
	QualityIssueOverlap = "overlap"
)

// AnalysisJob — задание анализа вокализации и его результат.
// Результат (Translation/BehavioralTags/Accuracy/QualityIssues/Partial)
// заполняется воркером и после перехода в терминальный статус не меняется.
type AnalysisJob struct {
	// JobID — UUID задания
	JobID string
	// RecordingID — UUID анализируемой записи
	RecordingID string
	// Status — pending, complete или failed
	Status string
	// Translation — текстовая интерпретация вокализации.
	// nil для частичных результатов (неподдерживаемый вид, плохое качество).
	Translation *string
	// BehavioralTags — поведенческие метки (alarm, social и т.п.)
	BehavioralTags []string
	// Accuracy — уверенность модели в диапазоне [0,1]; nil для частичных результатов
	Accuracy *float64
	// QualityIssues — обнаруженные проблемы качества (noise, overlap)
	QualityIssues []string
	// Partial — результат частичный: вид не поддерживается или качество
	// не позволило выполнить интерпретацию
	Partial bool
	// ErrorMessage — причина отказа для статуса failed
	ErrorMessage *string
	// CreatedAt — время постановки задания
	CreatedAt time.Time
	// CompletedAt — время перехода в терминальный статус
	CompletedAt *time.Time
}

// Terminal сообщает, находится ли задание в терминальном статусе.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusFailed
}
