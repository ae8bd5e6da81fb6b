// Точка входа ML Worker — консьюмер очереди заданий анализа вокализаций.
// Загружает конфигурацию, подключается к PostgreSQL и Redis, открывает
// шифрованное blob-хранилище и запускает пул горутин-консьюмеров.
// Завершается по SIGINT/SIGTERM, дорабатывая текущие задания.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bigkaa/govocalstore/internal/config"
	"github.com/bigkaa/govocalstore/internal/crypto"
	"github.com/bigkaa/govocalstore/internal/database"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/repository"
	"github.com/bigkaa/govocalstore/internal/storage/blob"
	"github.com/bigkaa/govocalstore/internal/storage/objectstore"
	"github.com/bigkaa/govocalstore/internal/worker"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("ML Worker запускается",
		slog.String("version", config.Version),
		slog.Int("concurrency", cfg.WorkerConcurrency),
	)

	// 3. Подключение к PostgreSQL (pgxpool).
	// Миграции применяет vocal-module; воркер только читает и пишет статусы.
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4. Blob-хранилище и шифрование
	blobStore, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		logger.Error("Ошибка открытия blob-хранилища",
			slog.String("dir", cfg.BlobDir),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	cipher, err := crypto.NewCipher([]byte(cfg.MasterKey))
	if err != nil {
		logger.Error("Ошибка инициализации шифрования", slog.String("error", err.Error()))
		os.Exit(1)
	}

	objects := objectstore.New(blobStore, cipher, logger)

	// 5. Очередь заданий анализа (Redis)
	q, err := queue.NewRedisQueue(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.QueueName, logger)
	if err != nil {
		logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer q.Close()

	// 6. Воркер
	jobRepo := repository.NewAnalysisJobRepository(pool)
	w := worker.New(
		q,
		jobRepo,
		objects,
		worker.NewSimulatedAnalyzer(),
		cfg.WorkerConcurrency,
		cfg.QueuePollTimeout,
		logger,
	)
	w.Start(ctx)

	// 7. Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))

	// 8. Graceful shutdown: дорабатываем текущие задания
	w.Stop()
	logger.Info("ML Worker остановлен")
}
