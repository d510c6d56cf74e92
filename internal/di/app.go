package di

import (
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через InitializeApp().
//
// При добавлении зависимости: поле в App, провайдер в providers.go,
// провайдер в ProviderSet (wire.go), затем go generate ./internal/di/...
type App struct {
	// Config передаётся извне через InitializeApp().
	Config *config.Config

	// Logger создаётся ProvideLogger по секции logging.
	Logger logging.Logger

	// OutputWriter форматирует результаты команд (WSUS_OUTPUT_FORMAT).
	OutputWriter output.Writer

	// TraceID коррелирует логи, алерты и span-ы одного запуска.
	TraceID string

	// Alerter отправляет алерты при ошибках команд; NopAlerter, если алертинг отключён.
	Alerter alerting.Alerter

	// MetricsCollector отправляет метрики в Pushgateway; NopCollector, если метрики отключены.
	MetricsCollector metrics.Collector

	// TracerShutdown отправляет буферизированные span-ы; nop, если трейсинг отключён.
	TracerShutdown tracing.ShutdownFunc

	// Engine собирает оркестраторы обслуживания. Пулы SQL закрываются через Engine.Close.
	Engine *dbmaint.Engine

	// Deps передаются обработчикам при регистрации.
	Deps shared.Deps
}

// Close освобождает ресурсы Engine.
func (a *App) Close() error {
	if a == nil || a.Engine == nil {
		return nil
	}
	return a.Engine.Close()
}
