// Package sharedtest содержит тестовые утилиты обработчиков команд:
// записывающие алертер и сборщик метрик, конфигурацию без внешних зависимостей.
package sharedtest

import (
	"context"
	"sync"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
)

// Compile-time проверки реализации интерфейсов
var (
	_ alerting.Alerter  = (*RecordingAlerter)(nil)
	_ metrics.Collector = (*RecordingCollector)(nil)
)

// RecordingAlerter запоминает отправленные алерты.
type RecordingAlerter struct {
	mu     sync.Mutex
	alerts []alerting.Alert
	// CtxErr: ошибка контекста в момент последней отправки
	CtxErr error
}

// Send сохраняет алерт.
func (a *RecordingAlerter) Send(ctx context.Context, alert alerting.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CtxErr = ctx.Err()
	a.alerts = append(a.alerts, alert)
	return nil
}

// Alerts возвращает копию отправленных алертов.
func (a *RecordingAlerter) Alerts() []alerting.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alerting.Alert(nil), a.alerts...)
}

// Stage: записанный исход этапа.
type Stage struct {
	Command string
	Stage   string
	Success bool
}

// RecordingCollector запоминает исходы этапов.
type RecordingCollector struct {
	mu     sync.Mutex
	stages []Stage
}

// RecordCommandStart ничего не делает.
func (c *RecordingCollector) RecordCommandStart(string) {}

// RecordCommandEnd ничего не делает.
func (c *RecordingCollector) RecordCommandEnd(string, time.Duration, bool) {}

// RecordStage сохраняет исход этапа.
func (c *RecordingCollector) RecordStage(command, stage string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, Stage{Command: command, Stage: stage, Success: success})
}

// Push ничего не делает.
func (c *RecordingCollector) Push(context.Context) error { return nil }

// Stages возвращает копию записанных этапов.
func (c *RecordingCollector) Stages() []Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Stage(nil), c.stages...)
}

// Config возвращает конфигурацию стандартной установки WSUS без вывода прогресса.
func Config(format string) *config.Config {
	return &config.Config{
		OutputFormat: format,
		Progress:     "none",
		Maintenance: &config.MaintenanceConfig{
			SQLInstance:  `WSUS01\SQLEXPRESS`,
			Database:     "SUSDB",
			BackupPath:   `D:\Backup\SUSDB.bak`,
			ContentPath:  `C:\WSUS`,
			WsusUtilPath: `C:\Program Files\Update Services\Tools\wsusutil.exe`,

			DistributionService: "WsusService",
			WebService:          "W3SVC",
		},
	}
}
