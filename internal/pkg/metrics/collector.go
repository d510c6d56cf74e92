// Package metrics собирает метрики команд обслуживания и отправляет их
// в Prometheus Pushgateway. При отключённых метриках используется NopCollector.
package metrics

import (
	"context"
	"time"
)

// Статусы в метках метрик.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Collector определяет интерфейс для сбора метрик.
// Реализации: PrometheusCollector (активный) и NopCollector (no-op).
type Collector interface {
	// RecordCommandStart записывает начало выполнения команды.
	RecordCommandStart(command string)

	// RecordCommandEnd записывает завершение команды с результатом.
	RecordCommandEnd(command string, duration time.Duration, success bool)

	// RecordStage записывает завершение этапа операции (backup, verify, restore, cleanup).
	RecordStage(command, stage string, success bool)

	// Push отправляет метрики в Pushgateway.
	// Ошибки отправки логируются внутри реализации, метод всегда возвращает nil.
	Push(ctx context.Context) error
}

func statusOf(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusError
}
