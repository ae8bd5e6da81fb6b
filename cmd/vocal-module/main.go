// Точка входа Vocal Module — приёмный модуль системы анализа вокализаций.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// открывает blob-хранилище и деривирует ключ шифрования, подключается к Redis,
// создаёт сервисный слой и API handlers, запускает topologymetrics,
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/govocalstore/internal/api/handlers"
	"github.com/bigkaa/govocalstore/internal/api/middleware"
	"github.com/bigkaa/govocalstore/internal/config"
	"github.com/bigkaa/govocalstore/internal/crypto"
	"github.com/bigkaa/govocalstore/internal/database"
	"github.com/bigkaa/govocalstore/internal/queue"
	"github.com/bigkaa/govocalstore/internal/repository"
	"github.com/bigkaa/govocalstore/internal/server"
	"github.com/bigkaa/govocalstore/internal/service"
	"github.com/bigkaa/govocalstore/internal/storage/blob"
	"github.com/bigkaa/govocalstore/internal/storage/objectstore"
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
	logger.Info("Vocal Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждение о дефолтном значении topologymetrics
	if os.Getenv("VM_DEPHEALTH_GROUP") == "" {
		logger.Warn("VM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Blob-хранилище и шифрование
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
	logger.Info("Шифрованное хранилище готово", slog.String("dir", cfg.BlobDir))

	// 6. Очередь заданий анализа (Redis)
	q, err := queue.NewRedisQueue(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.QueueName, logger)
	if err != nil {
		logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer q.Close()

	// 7. Repositories
	recordingRepo := repository.NewRecordingRepository(pool)
	jobRepo := repository.NewAnalysisJobRepository(pool)

	// 8. Services
	resultCache := service.NewResultCache(cfg.ResultCacheSize, cfg.ResultCacheTTL)
	ingestSvc := service.NewIngestService(recordingRepo, objects, logger)
	analysisSvc := service.NewAnalysisService(recordingRepo, jobRepo, q, resultCache, logger)

	// 9. Readiness checkers (PostgreSQL + Redis) и health handler
	healthHandler := handlers.NewHealthHandler(cfg.BlobDir, map[string]handlers.ReadinessChecker{
		"postgresql": database.NewReadinessChecker(pool),
		"redis":      queue.NewReadinessChecker(q),
	})

	// 10. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWKSUrl,
		CACertPath:      cfg.JWKSCACertPath,
		TLSSkipVerify:   cfg.JWKSTLSSkipVerify,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		JWTLeeway:       cfg.JWTLeeway,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован", slog.String("jwks_url", cfg.JWKSUrl))

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"vocal-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.JWKSUrl,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, &server.Handlers{
		Health:     healthHandler,
		Species:    handlers.NewSpeciesHandler(),
		Recordings: handlers.NewRecordingsHandler(ingestSvc, analysisSvc),
		Analysis:   handlers.NewAnalysisHandler(analysisSvc),
	}, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Vocal Module остановлен")
}
