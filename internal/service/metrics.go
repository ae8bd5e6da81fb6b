// metrics.go — Prometheus-метрики бизнес-операций Vocal Module.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsTotal — количество принятых записей по видам.
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vm_uploads_total",
		Help: "Общее количество принятых записей вокализаций.",
	}, []string{"species", "format"})

	// uploadBytesTotal — суммарный объём принятых данных (до шифрования).
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vm_upload_bytes_total",
		Help: "Суммарный объём принятых аудиоданных в байтах.",
	})

	// jobsCreatedTotal — количество созданных заданий анализа.
	jobsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vm_analysis_jobs_created_total",
		Help: "Общее количество созданных заданий анализа.",
	})

	// triggerIdempotentTotal — запросы запуска, вернувшие существующее задание.
	triggerIdempotentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vm_analysis_trigger_idempotent_total",
		Help: "Количество запросов запуска анализа, вернувших уже существующее задание.",
	})
)
