// Пакет server — HTTP-сервер Vocal Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/govocalstore/internal/api/handlers"
	"github.com/bigkaa/govocalstore/internal/api/middleware"
	"github.com/bigkaa/govocalstore/internal/config"
	"github.com/bigkaa/govocalstore/internal/domain/rbac"
)

// Handlers — набор обработчиков API, монтируемых сервером.
type Handlers struct {
	Health     *handlers.HealthHandler
	Species    *handlers.SpeciesHandler
	Recordings *handlers.RecordingsHandler
	Analysis   *handlers.AnalysisHandler
}

// Server — HTTP-сервер Vocal Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, h *Handlers, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: health проверяется Kubernetes напрямую,
	// metrics скрейпится Prometheus, справочники не содержат данных субъектов.
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Get("/api/v1/species", h.Species.ListSpecies)
	router.Get("/api/v1/recordings/supported-formats", h.Species.ListFormats)

	// Защищённые endpoints: JWT + роль researcher.
	// Роль admin сама по себе доступа НЕ даёт.
	router.Group(func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
			r.Use(middleware.RequireRole(rbac.RoleResearcher))
		}

		r.Post("/api/v1/recordings", h.Recordings.UploadRecording)
		r.Get("/api/v1/recordings", h.Recordings.ListRecordings)
		r.Get("/api/v1/recordings/{recording_id}", h.Recordings.GetRecording)

		r.Post("/api/v1/analysis/{recording_id}/trigger", h.Analysis.TriggerAnalysis)
		r.Get("/api/v1/analysis/{recording_id}", h.Analysis.GetAnalysisResult)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
