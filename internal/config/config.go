// Пакет config — загрузка и валидация конфигурации Vocal Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Vocal Module.
// Передаётся явно в конструкторы компонентов, глобального состояния нет.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории blob-хранилища зашифрованных записей
	BlobDir string
	// Мастер-секрет для деривации ключа шифрования (base64 или raw, >= 32 байт)
	MasterKey string
	// URL JWKS endpoint провайдера идентификации
	JWKSUrl string
	// Путь к CA-сертификату для JWKS endpoint (опционально)
	JWKSCACertPath string
	// Пропускать проверку TLS-сертификатов JWKS endpoint
	JWKSTLSSkipVerify bool
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// Параметры подключения к PostgreSQL
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Адрес Redis (host:port)
	RedisAddr string
	// Пароль Redis (опционально)
	RedisPassword string
	// Имя списка-очереди заданий анализа
	QueueName string

	// Число горутин-воркеров ml-worker
	WorkerConcurrency int
	// Таймаут ожидания BRPOP одной итерации воркера
	QueuePollTimeout time.Duration

	// Ёмкость LRU-кэша завершённых результатов анализа
	ResultCacheSize int
	// TTL записей кэша результатов
	ResultCacheTTL time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя владельца пода для метки name в topologymetrics
	DephealthName string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// VM_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("VM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("VM_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("VM_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// VM_BLOB_DIR — обязательный
	cfg.BlobDir, err = getEnvRequired("VM_BLOB_DIR")
	if err != nil {
		return nil, err
	}

	// VM_MASTER_KEY — обязательный, из него HKDF выводит ключ данных
	cfg.MasterKey, err = getEnvRequired("VM_MASTER_KEY")
	if err != nil {
		return nil, err
	}
	if len(cfg.MasterKey) < 32 {
		return nil, fmt.Errorf("VM_MASTER_KEY: длина %d меньше минимальной (32 байта)", len(cfg.MasterKey))
	}

	// VM_JWKS_URL — обязательный
	cfg.JWKSUrl, err = getEnvRequired("VM_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// VM_JWKS_CA_CERT — путь к CA-сертификату JWKS endpoint (опционально)
	cfg.JWKSCACertPath = getEnvDefault("VM_JWKS_CA_CERT", "")

	// VM_JWKS_TLS_SKIP_VERIFY — пропускать проверку TLS (по умолчанию false)
	cfg.JWKSTLSSkipVerify = getEnvDefault("VM_JWKS_TLS_SKIP_VERIFY", "false") == "true"

	// VM_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("VM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// VM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS-ключей (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("VM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("VM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// VM_JWT_LEEWAY — допустимое отклонение времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("VM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VM_JWT_LEEWAY: %w", err)
	}

	// VM_POSTGRES_HOST — обязательный
	cfg.PostgresHost, err = getEnvRequired("VM_POSTGRES_HOST")
	if err != nil {
		return nil, err
	}

	// VM_POSTGRES_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.PostgresPort, err = getEnvInt("VM_POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("VM_POSTGRES_PORT: %w", err)
	}

	// VM_POSTGRES_DB — имя базы (по умолчанию vocalstore)
	cfg.PostgresDB = getEnvDefault("VM_POSTGRES_DB", "vocalstore")

	// VM_POSTGRES_USER — обязательный
	cfg.PostgresUser, err = getEnvRequired("VM_POSTGRES_USER")
	if err != nil {
		return nil, err
	}

	// VM_POSTGRES_PASSWORD — обязательный
	cfg.PostgresPassword, err = getEnvRequired("VM_POSTGRES_PASSWORD")
	if err != nil {
		return nil, err
	}

	// VM_POSTGRES_SSLMODE — режим TLS (по умолчанию disable)
	cfg.PostgresSSLMode = getEnvDefault("VM_POSTGRES_SSLMODE", "disable")

	// VM_REDIS_ADDR — обязательный, host:port
	cfg.RedisAddr, err = getEnvRequired("VM_REDIS_ADDR")
	if err != nil {
		return nil, err
	}

	// VM_REDIS_PASSWORD — пароль Redis (опционально)
	cfg.RedisPassword = getEnvDefault("VM_REDIS_PASSWORD", "")

	// VM_QUEUE_NAME — имя очереди заданий (по умолчанию vocal:analysis)
	cfg.QueueName = getEnvDefault("VM_QUEUE_NAME", "vocal:analysis")

	// VM_WORKER_CONCURRENCY — число горутин воркера (по умолчанию 4)
	cfg.WorkerConcurrency, err = getEnvInt("VM_WORKER_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("VM_WORKER_CONCURRENCY: %w", err)
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("VM_WORKER_CONCURRENCY: значение должно быть положительным, получено %d", cfg.WorkerConcurrency)
	}

	// VM_QUEUE_POLL_TIMEOUT — таймаут BRPOP (по умолчанию 5s)
	cfg.QueuePollTimeout, err = getEnvDuration("VM_QUEUE_POLL_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VM_QUEUE_POLL_TIMEOUT: %w", err)
	}

	// VM_RESULT_CACHE_SIZE — ёмкость кэша результатов (по умолчанию 1024)
	cfg.ResultCacheSize, err = getEnvInt("VM_RESULT_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("VM_RESULT_CACHE_SIZE: %w", err)
	}
	if cfg.ResultCacheSize < 1 {
		return nil, fmt.Errorf("VM_RESULT_CACHE_SIZE: значение должно быть положительным, получено %d", cfg.ResultCacheSize)
	}

	// VM_RESULT_CACHE_TTL — TTL кэша результатов (по умолчанию 10m)
	cfg.ResultCacheTTL, err = getEnvDuration("VM_RESULT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("VM_RESULT_CACHE_TTL: %w", err)
	}

	// VM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("VM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("VM_LOG_LEVEL: %w", err)
	}

	// VM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("VM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("VM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// VM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("VM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// VM_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "vocal-module")
	cfg.DephealthGroup = getEnvDefault("VM_DEPHEALTH_GROUP", "vocal-module")

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics (без префикса модуля)
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	// VM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("VM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("VM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN собирает строку подключения PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDB, c.PostgresSSLMode)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
