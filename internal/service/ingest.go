package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/govocalstore/internal/domain/model"
	"github.com/bigkaa/govocalstore/internal/domain/species"
	"github.com/bigkaa/govocalstore/internal/repository"
)

// ObjectStorer — шифрованное хранилище, как его видит сервис приёма.
type ObjectStorer interface {
	Store(ctx context.Context, species, originalFilename string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// IngestInput — параметры приёма записи.
type IngestInput struct {
	// OwnerSubject — sub аутентифицированного субъекта
	OwnerSubject string
	// Species — заявленный вид животного
	Species string
	// OriginalFilename — имя загруженного файла
	OriginalFilename string
	// Format — формат аудио (wav, mp3, flac)
	Format string
	// Location — место записи (опционально)
	Location *string
	// RecordedAt — время записи (опционально)
	RecordedAt *time.Time
	// Data — аудиоданные
	Data []byte
}

// IngestService — приём записей: валидация, шифрованное сохранение,
// регистрация метаданных.
type IngestService struct {
	recordings repository.RecordingRepository
	objects    ObjectStorer
	logger     *slog.Logger
}

// NewIngestService создаёт сервис приёма записей.
func NewIngestService(recordings repository.RecordingRepository, objects ObjectStorer, logger *slog.Logger) *IngestService {
	return &IngestService{
		recordings: recordings,
		objects:    objects,
		logger:     logger.With(slog.String("component", "ingest")),
	}
}

// Ingest валидирует вход, шифрует и сохраняет аудиоданные,
// регистрирует запись в реестре. Возвращает созданную запись.
//
// Вид, формат и размер — закрытые ограничения: значения вне
// allow-list отклоняются с указанием нарушенного правила.
func (s *IngestService) Ingest(ctx context.Context, in *IngestInput) (*model.Recording, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	objectKey, err := s.objects.Store(ctx, in.Species, in.OriginalFilename, in.Data)
	if err != nil {
		return nil, fmt.Errorf("сохранение объекта: %w", err)
	}

	rec := &model.Recording{
		RecordingID:      uuid.New().String(),
		ObjectKey:        objectKey,
		OwnerSubject:     in.OwnerSubject,
		Species:          in.Species,
		OriginalFilename: in.OriginalFilename,
		Format:           in.Format,
		Size:             int64(len(in.Data)),
		Location:         in.Location,
		RecordedAt:       in.RecordedAt,
		Encrypted:        true,
	}

	if err := s.recordings.Create(ctx, rec); err != nil {
		// Объект уже на диске: откатываем, чтобы не копить сирот.
		if delErr := s.objects.Delete(ctx, objectKey); delErr != nil {
			s.logger.Error("не удалось удалить осиротевший объект",
				slog.String("object_key", objectKey),
				slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("регистрация записи: %w", err)
	}

	uploadsTotal.WithLabelValues(rec.Species, rec.Format).Inc()
	uploadBytesTotal.Add(float64(rec.Size))

	s.logger.Info("запись принята",
		slog.String("recording_id", rec.RecordingID),
		slog.String("species", rec.Species),
		slog.String("format", rec.Format),
		slog.Int64("size", rec.Size),
		slog.String("owner", rec.OwnerSubject))

	return rec, nil
}

// validate проверяет входные данные. Сообщения называют нарушенное ограничение.
func (s *IngestService) validate(in *IngestInput) error {
	if in.OwnerSubject == "" {
		return fmt.Errorf("%w: отсутствует субъект-владелец", ErrValidation)
	}
	if in.Species == "" {
		return fmt.Errorf("%w: поле species обязательно", ErrValidation)
	}
	if !species.IsSupported(in.Species) {
		return fmt.Errorf("%w: вид %q не входит в список поддерживаемых", ErrValidation, in.Species)
	}
	if in.OriginalFilename == "" {
		return fmt.Errorf("%w: отсутствует имя файла", ErrValidation)
	}
	if !species.IsValidFormat(in.Format) {
		return fmt.Errorf("%w: формат %q не поддерживается, допустимые: wav, mp3, flac",
			ErrValidation, in.Format)
	}
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: пустой файл", ErrValidation)
	}
	// Ровно 50 MiB — допустимо, 50 MiB + 1 байт — нет.
	if int64(len(in.Data)) > species.MaxUploadSize {
		return fmt.Errorf("%w: %d байт при лимите %d", ErrTooLarge, len(in.Data), species.MaxUploadSize)
	}
	return nil
}
