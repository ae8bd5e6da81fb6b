// Пакет queue — очередь заданий анализа между API и ml-worker.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty — за отведённый таймаут задание не появилось.
// Штатная ситуация для цикла воркера, не сбой.
var ErrEmpty = errors.New("очередь пуста")

// Task — задание анализа в очереди.
// Сериализуется в JSON; воркер читает остальное из БД и хранилища.
type Task struct {
	JobID       string    `json:"job_id"`
	RecordingID string    `json:"recording_id"`
	ObjectKey   string    `json:"object_key"`
	Species     string    `json:"species"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Queue — брокер заданий анализа.
type Queue interface {
	// Enqueue ставит задание в очередь.
	Enqueue(ctx context.Context, task *Task) error
	// Dequeue блокирующе забирает задание. Если за timeout ничего
	// не появилось — возвращает ErrEmpty.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Len возвращает текущую длину очереди.
	Len(ctx context.Context) (int64, error)
}
