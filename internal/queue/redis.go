package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue — реализация Queue поверх Redis-списка.
// API делает LPUSH, воркеры — BRPOP: FIFO с блокирующим чтением.
type RedisQueue struct {
	client *redis.Client
	name   string
	logger *slog.Logger
}

// NewRedisQueue создаёт очередь и проверяет доступность Redis.
func NewRedisQueue(ctx context.Context, addr, password, name string, logger *slog.Logger) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", addr, err)
	}

	logger.Info("Подключение к Redis установлено",
		slog.String("addr", addr),
		slog.String("queue", name))

	return &RedisQueue{
		client: client,
		name:   name,
		logger: logger.With(slog.String("component", "queue")),
	}, nil
}

// Enqueue сериализует задание и кладёт его в голову списка.
func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("сериализация задания: %w", err)
	}

	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("постановка задания в очередь: %w", err)
	}

	q.logger.Debug("задание поставлено в очередь",
		slog.String("job_id", task.JobID),
		slog.String("recording_id", task.RecordingID))
	return nil
}

// Dequeue блокирующе забирает задание из хвоста списка.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("чтение из очереди: %w", err)
	}
	// BRPop возвращает [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("неожиданный ответ BRPOP: %d элементов", len(res))
	}

	task := &Task{}
	if err := json.Unmarshal([]byte(res[1]), task); err != nil {
		return nil, fmt.Errorf("десериализация задания: %w", err)
	}
	return task, nil
}

// Len возвращает текущую длину очереди.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("получение длины очереди: %w", err)
	}
	return n, nil
}

// Close закрывает подключение к Redis.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// ReadinessChecker — проверка готовности Redis для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	client *redis.Client
}

// NewReadinessChecker создаёт проверку готовности Redis.
func NewReadinessChecker(q *RedisQueue) *ReadinessChecker {
	return &ReadinessChecker{client: q.client}
}

// CheckReady проверяет подключение к Redis через ping.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
