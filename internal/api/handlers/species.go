// species.go — публичные справочные endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bigkaa/govocalstore/internal/domain/species"
)

// SpeciesHandler — обработчик справочных endpoints (без аутентификации).
type SpeciesHandler struct{}

// NewSpeciesHandler создаёт обработчик справочных endpoints.
func NewSpeciesHandler() *SpeciesHandler {
	return &SpeciesHandler{}
}

// ListSpecies обрабатывает GET /api/v1/species.
// Возвращает виды, для которых модель анализа даёт полный результат.
func (h *SpeciesHandler) ListSpecies(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"species": species.Supported,
		"total":   len(species.Supported),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// ListFormats обрабатывает GET /api/v1/recordings/supported-formats.
// Возвращает допустимые форматы аудио и лимит размера файла.
func (h *SpeciesHandler) ListFormats(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"formats":         species.Formats,
		"max_upload_size": species.MaxUploadSize,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
