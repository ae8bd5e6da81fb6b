package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/govocalstore/internal/domain/model"
)

// RecordingRepository — интерфейс доступа к таблице recordings.
type RecordingRepository interface {
	// Create регистрирует новую запись.
	Create(ctx context.Context, rec *model.Recording) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, recordingID string) (*model.Recording, error)
	// ListByOwner возвращает записи владельца, новые первыми.
	ListByOwner(ctx context.Context, ownerSubject string, limit, offset int) ([]*model.Recording, error)
	// CountByOwner возвращает число записей владельца.
	CountByOwner(ctx context.Context, ownerSubject string) (int, error)
}

// recordingColumns — общий список колонок для SELECT.
const recordingColumns = `recording_id, object_key, owner_subject, species,
	original_filename, format, size, location, recorded_at, encrypted,
	created_at, updated_at`

// recordingRepo — реализация RecordingRepository.
type recordingRepo struct {
	db DBTX
}

// NewRecordingRepository создаёт репозиторий записей.
func NewRecordingRepository(db DBTX) RecordingRepository {
	return &recordingRepo{db: db}
}

func (r *recordingRepo) Create(ctx context.Context, rec *model.Recording) error {
	query := `
		INSERT INTO recordings (recording_id, object_key, owner_subject, species,
			original_filename, format, size, location, recorded_at, encrypted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rec.RecordingID, rec.ObjectKey, rec.OwnerSubject, rec.Species,
		rec.OriginalFilename, rec.Format, rec.Size, rec.Location,
		rec.RecordedAt, rec.Encrypted,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запись с таким ключом уже зарегистрирована", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации записи: %w", err)
	}
	return nil
}

func (r *recordingRepo) GetByID(ctx context.Context, recordingID string) (*model.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE recording_id = $1`

	rec := &model.Recording{}
	err := r.db.QueryRow(ctx, query, recordingID).Scan(
		&rec.RecordingID, &rec.ObjectKey, &rec.OwnerSubject, &rec.Species,
		&rec.OriginalFilename, &rec.Format, &rec.Size, &rec.Location,
		&rec.RecordedAt, &rec.Encrypted, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (r *recordingRepo) ListByOwner(ctx context.Context, ownerSubject string, limit, offset int) ([]*model.Recording, error) {
	query := `SELECT ` + recordingColumns + `
		FROM recordings
		WHERE owner_subject = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, ownerSubject, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	var recordings []*model.Recording
	for rows.Next() {
		rec := &model.Recording{}
		err := rows.Scan(
			&rec.RecordingID, &rec.ObjectKey, &rec.OwnerSubject, &rec.Species,
			&rec.OriginalFilename, &rec.Format, &rec.Size, &rec.Location,
			&rec.RecordedAt, &rec.Encrypted, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения строки записи: %w", err)
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации записей: %w", err)
	}
	return recordings, nil
}

func (r *recordingRepo) CountByOwner(ctx context.Context, ownerSubject string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM recordings WHERE owner_subject = $1`, ownerSubject,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return count, nil
}
