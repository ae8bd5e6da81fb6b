// analysis.go — HTTP handlers запуска анализа и чтения результатов.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/govocalstore/internal/api/errors"
	"github.com/bigkaa/govocalstore/internal/api/middleware"
	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/service"
)

// AnalysisHandler — обработчик endpoints анализа.
type AnalysisHandler struct {
	analysisSvc *service.AnalysisService
}

// NewAnalysisHandler создаёт обработчик endpoints анализа.
func NewAnalysisHandler(analysisSvc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisSvc: analysisSvc}
}

// jobResponse — представление задания анализа в API.
// quality_issues отдаётся картой «проблема → bool» с явными false,
// чтобы клиент видел, какие проверки выполнялись.
type jobResponse struct {
	JobID          string          `json:"job_id"`
	RecordingID    string          `json:"recording_id"`
	Status         string          `json:"status"`
	Translation    *string         `json:"translation"`
	BehavioralTags []string        `json:"behavioral_tags,omitempty"`
	Accuracy       *float64        `json:"accuracy,omitempty"`
	QualityIssues  map[string]bool `json:"quality_issues,omitempty"`
	Partial        bool            `json:"partial"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

func toJobResponse(job *model.AnalysisJob) jobResponse {
	return jobResponse{
		JobID:          job.JobID,
		RecordingID:    job.RecordingID,
		Status:         job.Status,
		Translation:    job.Translation,
		BehavioralTags: job.BehavioralTags,
		Accuracy:       job.Accuracy,
		QualityIssues:  qualityIssuesMap(job),
		Partial:        job.Partial,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.CompletedAt,
	}
}

// qualityIssuesMap разворачивает список сработавших проблем в карту
// со всеми известными проверками. Для нетерминальных и failed заданий
// проверки ещё не выполнялись — поле опускается.
func qualityIssuesMap(job *model.AnalysisJob) map[string]bool {
	if job.Status != model.JobStatusComplete {
		return nil
	}
	m := map[string]bool{
		model.QualityIssueNoise:   false,
		model.QualityIssueOverlap: false,
	}
	for _, issue := range job.QualityIssues {
		m[issue] = true
	}
	return m
}

// TriggerAnalysis обрабатывает POST /api/v1/analysis/{recording_id}/trigger.
// Идемпотентный запуск: при активном или завершённом задании возвращается
// оно же с кодом 200; новое задание — 202. После failed создаётся свежее.
func (h *AnalysisHandler) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())
	recordingID := chi.URLParam(r, "recording_id")

	res, err := h.analysisSvc.GetOrTrigger(r.Context(), subject, recordingID)
	if err != nil {
		if errors.Is(err, service.ErrDispatch) {
			apierrors.DispatchFault(w, "Не удалось поставить задание анализа в очередь")
			return
		}
		writeAccessError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusAccepted
	}

	resp := map[string]any{
		"job":     toJobResponse(res.Job),
		"created": res.Created,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// GetAnalysisResult обрабатывает GET /api/v1/analysis/{recording_id}.
// Возвращает последнее задание записи: pending, complete или failed.
// 404 — если анализ никогда не запускался.
func (h *AnalysisHandler) GetAnalysisResult(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())
	recordingID := chi.URLParam(r, "recording_id")

	job, err := h.analysisSvc.GetResult(r.Context(), subject, recordingID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toJobResponse(job))
}
