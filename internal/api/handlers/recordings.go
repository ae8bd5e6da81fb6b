// recordings.go — HTTP handlers операций с записями вокализаций.
// Upload (multipart), List, Get metadata.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/govocalstore/internal/api/errors"
	"github.com/bigkaa/govocalstore/internal/api/middleware"
	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/domain/species"
	"github.com/bigkaa/govocalstore/internal/repository"
	"github.com/bigkaa/govocalstore/internal/service"
)

// multipartMemoryLimit — буфер парсинга multipart form в памяти.
const multipartMemoryLimit = 32 << 20 // 32 MB

// RecordingsHandler — обработчик endpoints записей.
type RecordingsHandler struct {
	ingestSvc   *service.IngestService
	analysisSvc *service.AnalysisService
}

// NewRecordingsHandler создаёт обработчик endpoints записей.
func NewRecordingsHandler(ingestSvc *service.IngestService, analysisSvc *service.AnalysisService) *RecordingsHandler {
	return &RecordingsHandler{
		ingestSvc:   ingestSvc,
		analysisSvc: analysisSvc,
	}
}

// recordingResponse — представление записи в API.
type recordingResponse struct {
	RecordingID      string     `json:"recording_id"`
	Species          string     `json:"species"`
	OriginalFilename string     `json:"original_filename"`
	Format           string     `json:"format"`
	Size             int64      `json:"size"`
	Location         *string    `json:"location,omitempty"`
	RecordedAt       *time.Time `json:"recorded_at,omitempty"`
	Encrypted        bool       `json:"encrypted"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toRecordingResponse(rec *model.Recording) recordingResponse {
	return recordingResponse{
		RecordingID:      rec.RecordingID,
		Species:          rec.Species,
		OriginalFilename: rec.OriginalFilename,
		Format:           rec.Format,
		Size:             rec.Size,
		Location:         rec.Location,
		RecordedAt:       rec.RecordedAt,
		Encrypted:        rec.Encrypted,
		CreatedAt:        rec.CreatedAt,
	}
}

// UploadRecording обрабатывает POST /api/v1/recordings.
// Multipart form: file (обязательно), species (обязательно),
// format (опционально, иначе берётся из расширения файла),
// location (опционально), recorded_at (опционально, RFC3339).
func (h *RecordingsHandler) UploadRecording(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	// Жёсткий потолок тела запроса: лимит файла + запас на заголовки формы.
	r.Body = http.MaxBytesReader(w, r.Body, species.MaxUploadSize+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Тело запроса превышает лимит %d байт", species.MaxUploadSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла: %s", err.Error()))
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = formatFromFilename(header.Filename)
	}

	var location *string
	if loc := r.FormValue("location"); loc != "" {
		location = &loc
	}

	var recordedAt *time.Time
	if raw := r.FormValue("recorded_at"); raw != "" {
		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			apierrors.ValidationError(w, "Поле recorded_at должно быть в формате RFC3339")
			return
		}
		recordedAt = &ts
	}

	rec, err := h.ingestSvc.Ingest(r.Context(), &service.IngestInput{
		OwnerSubject:     subject,
		Species:          r.FormValue("species"),
		OriginalFilename: header.Filename,
		Format:           format,
		Location:         location,
		RecordedAt:       recordedAt,
		Data:             data,
	})
	if err != nil {
		writeIngestError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toRecordingResponse(rec))
}

// ListRecordings обрабатывает GET /api/v1/recordings.
// Возвращает только записи аутентифицированного субъекта.
// Пагинация: limit (1..100, по умолчанию 50), offset.
func (h *RecordingsHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			apierrors.ValidationError(w, "Параметр limit должен быть от 1 до 100")
			return
		}
		limit = v
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			apierrors.ValidationError(w, "Параметр offset не может быть отрицательным")
			return
		}
		offset = v
	}

	recordings, total, err := h.analysisSvc.ListRecordings(r.Context(), subject, limit, offset)
	if err != nil {
		apierrors.InternalError(w, "Не удалось получить список записей")
		return
	}

	items := make([]recordingResponse, 0, len(recordings))
	for _, rec := range recordings {
		items = append(items, toRecordingResponse(rec))
	}

	resp := map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// GetRecording обрабатывает GET /api/v1/recordings/{recording_id}.
// Доступ только владельцу записи.
func (h *RecordingsHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())
	recordingID := chi.URLParam(r, "recording_id")

	rec, err := h.analysisSvc.GetRecording(r.Context(), subject, recordingID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toRecordingResponse(rec))
}

// formatFromFilename определяет формат по расширению имени файла.
func formatFromFilename(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return ""
}

// writeIngestError транслирует ошибки сервиса приёма в HTTP-ответы.
func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	default:
		apierrors.StorageFault(w, "Сбой сохранения записи")
	}
}

// writeAccessError транслирует ошибки доступа к записи в HTTP-ответы.
// Чужая запись — 403, отсутствующая — 404.
func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrOwnership):
		apierrors.Forbidden(w, "Запись принадлежит другому субъекту")
	default:
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}
