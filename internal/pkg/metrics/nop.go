package metrics

import (
	"context"
	"time"
)

// Compile-time проверка реализации интерфейса
var _ Collector = (*NopCollector)(nil)

// NopCollector: no-op реализация Collector.
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

// RecordCommandStart ничего не делает.
func (c *NopCollector) RecordCommandStart(string) {}

// RecordCommandEnd ничего не делает.
func (c *NopCollector) RecordCommandEnd(string, time.Duration, bool) {}

// RecordStage ничего не делает.
func (c *NopCollector) RecordStage(string, string, bool) {}

// Push всегда возвращает nil.
func (c *NopCollector) Push(context.Context) error {
	return nil
}
