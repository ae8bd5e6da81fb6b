// cache.go — LRU-кэш завершённых результатов анализа с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/govocalstore/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vm_result_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш результатов анализа.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vm_result_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша результатов анализа.",
	})
)

// ResultCache — LRU-кэш завершённых заданий анализа по recording_id.
// Кэшируются только complete-задания: терминальный результат неизменяем,
// инвалидация не нужна. Каждый экземпляр API имеет собственный кэш.
type ResultCache struct {
	cache *expirable.LRU[string, *model.AnalysisJob]
}

// NewResultCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	cache := expirable.NewLRU[string, *model.AnalysisJob](maxSize, nil, ttl)
	return &ResultCache{cache: cache}
}

// Get возвращает завершённое задание из кэша по recording_id.
// Обновляет Prometheus-метрики hit/miss.
func (c *ResultCache) Get(recordingID string) (*model.AnalysisJob, bool) {
	val, ok := c.cache.Get(recordingID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет завершённое задание в кэш.
func (c *ResultCache) Set(recordingID string, job *model.AnalysisJob) {
	if job == nil || job.Status != model.JobStatusComplete {
		return
	}
	c.cache.Add(recordingID, job)
}
