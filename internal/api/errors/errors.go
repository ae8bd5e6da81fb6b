// Пакет errors — конструкторы стандартных ошибок в формате Vocal Module.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeStorageFault     = "STORAGE_FAULT"
	CodeDecryptionError  = "DECRYPTION_ERROR"
	CodeDispatchFault    = "DISPATCH_FAULT"
	CodeAnalysisConflict = "ANALYSIS_CONFLICT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
// message обязан называть нарушенное ограничение.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// StorageFault — 500 сбой объектного хранилища.
func StorageFault(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeStorageFault, message)
}

// DecryptionError — 500 нарушение целостности зашифрованного объекта.
func DecryptionError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeDecryptionError, message)
}

// DispatchFault — 500 сбой постановки задания в очередь.
// Триггер идемпотентен, поэтому клиент может безопасно повторить запрос.
func DispatchFault(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeDispatchFault, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
