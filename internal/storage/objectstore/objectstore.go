// Пакет objectstore — шифрованное объектное хранилище записей.
// Склеивает blob.Store и crypto.Cipher: наружу уходят только
// зашифрованные байты, ключи объектов не раскрывают владельца.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/govocalstore/internal/crypto"
	"github.com/bigkaa/govocalstore/internal/storage/blob"
)

// ErrDecrypt — объект прочитан, но расшифровка провалилась.
// Сигнал инцидента целостности данных, не «объект не найден».
var ErrDecrypt = crypto.ErrDecrypt

// ErrNotFound — объект с таким ключом отсутствует.
var ErrNotFound = blob.ErrNotFound

// ObjectStore — шифрованное хранилище поверх blob-бэкенда.
type ObjectStore struct {
	blobs  blob.Store
	cipher *crypto.Cipher
	logger *slog.Logger
}

// New создаёт ObjectStore.
func New(blobs blob.Store, cipher *crypto.Cipher, logger *slog.Logger) *ObjectStore {
	return &ObjectStore{
		blobs:  blobs,
		cipher: cipher,
		logger: logger.With(slog.String("component", "objectstore")),
	}
}

// Store шифрует данные и сохраняет их под новым ключом
// audio/{species}/{uuid}_{sanitized-filename}. Возвращает ключ.
// Идентификатор загрузившего в ключ не попадает намеренно.
func (s *ObjectStore) Store(ctx context.Context, species, originalFilename string, data []byte) (string, error) {
	key := GenerateKey(species, originalFilename)

	blobData, err := s.cipher.Encrypt(data)
	if err != nil {
		return "", fmt.Errorf("шифрование объекта: %w", err)
	}

	if err := s.blobs.Put(ctx, key, blobData); err != nil {
		return "", fmt.Errorf("сохранение объекта %s: %w", key, err)
	}

	s.logger.Debug("объект сохранён",
		slog.String("object_key", key),
		slog.Int("plaintext_size", len(data)))
	return key, nil
}

// Fetch читает объект и расшифровывает его.
// Провал GCM-аутентификации возвращает ErrDecrypt и логируется
// как инцидент целостности данных.
func (s *ObjectStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	blobData, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.cipher.Decrypt(blobData)
	if err != nil {
		if errors.Is(err, crypto.ErrDecrypt) {
			s.logger.Error("инцидент целостности: объект не прошёл аутентификацию GCM",
				slog.String("object_key", key))
		}
		return nil, err
	}
	return plaintext, nil
}

// Delete удаляет объект из хранилища.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	return s.blobs.Delete(ctx, key)
}

// GenerateKey формирует ключ объекта: audio/{species}/{uuid}_{filename}.
// Имя файла санитизируется, длинные имена усекаются.
func GenerateKey(species, originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	name := strings.TrimSuffix(filepath.Base(originalFilename), ext)

	name = sanitize(name)
	if len(name) > 50 {
		name = name[:50]
	}

	return fmt.Sprintf("audio/%s/%s_%s%s", species, uuid.New().String(), name, strings.ToLower(ext))
}

// sanitize убирает небезопасные символы из строки для использования в ключе.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "recording"
	}
	return result.String()
}
