package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllVMEnvVars очищает все переменные окружения VM_* для чистого теста.
func clearAllVMEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"VM_PORT", "VM_BLOB_DIR", "VM_MASTER_KEY", "VM_JWKS_URL",
		"VM_JWKS_CA_CERT", "VM_JWKS_TLS_SKIP_VERIFY",
		"VM_JWKS_CLIENT_TIMEOUT", "VM_JWKS_REFRESH_INTERVAL", "VM_JWT_LEEWAY",
		"VM_POSTGRES_HOST", "VM_POSTGRES_PORT", "VM_POSTGRES_DB",
		"VM_POSTGRES_USER", "VM_POSTGRES_PASSWORD", "VM_POSTGRES_SSLMODE",
		"VM_REDIS_ADDR", "VM_REDIS_PASSWORD", "VM_QUEUE_NAME",
		"VM_WORKER_CONCURRENCY", "VM_QUEUE_POLL_TIMEOUT",
		"VM_RESULT_CACHE_SIZE", "VM_RESULT_CACHE_TTL",
		"VM_LOG_LEVEL", "VM_LOG_FORMAT",
		"VM_DEPHEALTH_CHECK_INTERVAL", "VM_DEPHEALTH_GROUP", "DEPHEALTH_NAME",
		"VM_SHUTDOWN_TIMEOUT",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"VM_BLOB_DIR":          "/tmp/blobs",
		"VM_MASTER_KEY":        strings.Repeat("k", 32),
		"VM_JWKS_URL":          "https://idp.example.com/.well-known/jwks.json",
		"VM_POSTGRES_HOST":     "localhost",
		"VM_POSTGRES_USER":     "vocal",
		"VM_POSTGRES_PASSWORD": "secret",
		"VM_REDIS_ADDR":        "localhost:6379",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllVMEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.PostgresPort != 5432 {
		t.Errorf("PostgresPort: ожидалось 5432, получено %d", cfg.PostgresPort)
	}
	if cfg.PostgresDB != "vocalstore" {
		t.Errorf("PostgresDB: ожидалось 'vocalstore', получено %q", cfg.PostgresDB)
	}
	if cfg.QueueName != "vocal:analysis" {
		t.Errorf("QueueName: ожидалось 'vocal:analysis', получено %q", cfg.QueueName)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency: ожидалось 4, получено %d", cfg.WorkerConcurrency)
	}
	if cfg.QueuePollTimeout != 5*time.Second {
		t.Errorf("QueuePollTimeout: ожидалось 5s, получено %v", cfg.QueuePollTimeout)
	}
	if cfg.ResultCacheSize != 1024 {
		t.Errorf("ResultCacheSize: ожидалось 1024, получено %d", cfg.ResultCacheSize)
	}
	if cfg.ResultCacheTTL != 10*time.Minute {
		t.Errorf("ResultCacheTTL: ожидалось 10m, получено %v", cfg.ResultCacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 15s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.DephealthGroup != "vocal-module" {
		t.Errorf("DephealthGroup: ожидалось 'vocal-module', получено %q", cfg.DephealthGroup)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	cleanup := clearAllVMEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["VM_PORT"] = "9090"
	vars["VM_POSTGRES_PORT"] = "15432"
	vars["VM_POSTGRES_DB"] = "vocaltest"
	vars["VM_POSTGRES_SSLMODE"] = "require"
	vars["VM_QUEUE_NAME"] = "test:queue"
	vars["VM_WORKER_CONCURRENCY"] = "8"
	vars["VM_QUEUE_POLL_TIMEOUT"] = "2s"
	vars["VM_RESULT_CACHE_SIZE"] = "256"
	vars["VM_RESULT_CACHE_TTL"] = "1m"
	vars["VM_LOG_LEVEL"] = "debug"
	vars["VM_LOG_FORMAT"] = "text"
	vars["VM_DEPHEALTH_CHECK_INTERVAL"] = "5s"
	vars["VM_SHUTDOWN_TIMEOUT"] = "10s"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.PostgresPort != 15432 {
		t.Errorf("PostgresPort: ожидалось 15432, получено %d", cfg.PostgresPort)
	}
	if cfg.PostgresDB != "vocaltest" {
		t.Errorf("PostgresDB: ожидалось 'vocaltest', получено %q", cfg.PostgresDB)
	}
	if cfg.QueueName != "test:queue" {
		t.Errorf("QueueName: ожидалось 'test:queue', получено %q", cfg.QueueName)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Errorf("WorkerConcurrency: ожидалось 8, получено %d", cfg.WorkerConcurrency)
	}
	if cfg.QueuePollTimeout != 2*time.Second {
		t.Errorf("QueuePollTimeout: ожидалось 2s, получено %v", cfg.QueuePollTimeout)
	}
	if cfg.ResultCacheSize != 256 {
		t.Errorf("ResultCacheSize: ожидалось 256, получено %d", cfg.ResultCacheSize)
	}
	if cfg.ResultCacheTTL != time.Minute {
		t.Errorf("ResultCacheTTL: ожидалось 1m, получено %v", cfg.ResultCacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 10s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	requiredKeys := []string{
		"VM_BLOB_DIR", "VM_MASTER_KEY", "VM_JWKS_URL",
		"VM_POSTGRES_HOST", "VM_POSTGRES_USER", "VM_POSTGRES_PASSWORD",
		"VM_REDIS_ADDR",
	}

	for _, missing := range requiredKeys {
		t.Run(missing, func(t *testing.T) {
			cleanup := clearAllVMEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_ShortMasterKey(t *testing.T) {
	cleanup := clearAllVMEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["VM_MASTER_KEY"] = "too-short"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для короткого VM_MASTER_KEY")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ноль", "0"},
		{"выше диапазона", "70000"},
		{"не число", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllVMEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["VM_PORT"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для VM_PORT=%s", tt.value)
			}
		})
	}
}

func TestLoad_InvalidWorkerConcurrency(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"нулевое", "0"},
		{"отрицательное", "-2"},
		{"не число", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllVMEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["VM_WORKER_CONCURRENCY"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для VM_WORKER_CONCURRENCY=%s", tt.value)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	durationVars := []string{
		"VM_QUEUE_POLL_TIMEOUT", "VM_RESULT_CACHE_TTL",
		"VM_DEPHEALTH_CHECK_INTERVAL", "VM_SHUTDOWN_TIMEOUT",
	}

	for _, varName := range durationVars {
		t.Run(varName, func(t *testing.T) {
			cleanup := clearAllVMEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars[varName] = "not-a-duration"
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для невалидного %s", varName)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	cleanup := clearAllVMEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["VM_LOG_LEVEL"] = "invalid"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного VM_LOG_LEVEL")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllVMEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["VM_LOG_FORMAT"] = "yaml"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного VM_LOG_FORMAT")
	}
}

func TestLoad_ValidLogLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cleanup := clearAllVMEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["VM_LOG_LEVEL"] = tt.input
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.LogLevel != tt.expected {
				t.Errorf("LogLevel: ожидалось %v, получено %v", tt.expected, cfg.LogLevel)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db.local",
		PostgresPort:     5433,
		PostgresDB:       "vocal",
		PostgresUser:     "svc",
		PostgresPassword: "pw",
		PostgresSSLMode:  "require",
	}

	want := "postgres://svc:pw@db.local:5433/vocal?sslmode=require"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, ожидалось %q", got, want)
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: tt.format,
			}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Fatal("SetupLogger вернул nil")
			}
		})
	}
}
