// Пакет model — доменные модели Vocal Module.
// Recording — запись вокализации животного (маппинг таблицы recordings).
package model

import "time"

// Recording — метаданные загруженной записи вокализации.
// Создаётся при успешном ingest, после этого не изменяется.
type Recording struct {
	// RecordingID — UUID записи
	RecordingID string
	// ObjectKey — уникальный ключ зашифрованного объекта в blob-хранилище.
	// Формат: audio/{species}/{uuid}_{filename}. Не содержит идентификатора
	// загрузившего — ключ не должен раскрывать владельца.
	ObjectKey string
	// OwnerSubject — идентификатор владельца (sub из JWT)
	OwnerSubject string
	// Species — вид животного (из фиксированного allow-list)
	Species string
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// Format — формат аудио: wav, mp3, flac
	Format string
	// Size — размер исходного (незашифрованного) файла в байтах
	Size int64
	// Location — место записи (опционально)
	Location *string
	// RecordedAt — время записи (опционально)
	RecordedAt *time.Time
	// Encrypted — всегда true после сохранения
	Encrypted bool
	// CreatedAt — время создания записи в реестре
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
