// Пакет blob — низкоуровневое хранилище зашифрованных блобов.
// Интерфейс Store абстрагирует бэкенд; поставляемая реализация —
// файловая система (паттерн: temp файл → fsync → atomic rename).
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound — объект с таким ключом отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден")

// Store — бэкенд хранения блобов по ключу.
// Ключи иерархические (с '/'), реализация отвечает за их раскладку.
type Store interface {
	// Put сохраняет блоб под ключом. Перезапись существующего ключа — ошибка.
	Put(ctx context.Context, key string, data []byte) error
	// Get возвращает блоб по ключу или ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete удаляет блоб. Отсутствующий ключ не считается ошибкой.
	Delete(ctx context.Context, key string) error
	// Exists проверяет наличие блоба.
	Exists(ctx context.Context, key string) bool
}

// FSStore — файловая реализация Store.
// Ключ отображается в путь относительно baseDir.
type FSStore struct {
	baseDir string
}

// NewFSStore создаёт файловое хранилище. Создаёт baseDir при отсутствии.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", baseDir, err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Put записывает блоб на диск: temp файл → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullPath); err == nil {
		return fmt.Errorf("ключ %s уже существует", key)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("ошибка создания директории для %s: %w", key, err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Get читает блоб целиком.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
	}
	return data, nil
}

// Delete удаляет блоб. Отсутствующий ключ — не ошибка.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// Exists проверяет наличие блоба на диске.
func (s *FSStore) Exists(_ context.Context, key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// BaseDir возвращает корневую директорию хранилища.
func (s *FSStore) BaseDir() string {
	return s.baseDir
}

// resolve отображает ключ в абсолютный путь и отклоняет выход за baseDir.
func (s *FSStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("пустой ключ объекта")
	}
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("недопустимый ключ объекта: %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}
