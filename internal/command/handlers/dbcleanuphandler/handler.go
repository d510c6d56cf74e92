// Package dbcleanuphandler реализует команду nr-db-cleanup: встроенная очистка WSUS
// с замером размера базы до и после неё.
package dbcleanuphandler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

// RegisterCmd регистрирует nr-db-cleanup и устаревшее имя cleanup.
func RegisterCmd(deps shared.Deps) error {
	return command.RegisterWithAlias(&CleanupHandler{deps: deps}, constants.ActLegacyCleanup)
}

// Cleaner: возможность очистки базы WSUS.
type Cleaner interface {
	RunCleanup(ctx context.Context, sqlInstance string, rep progress.Reporter) maintenance.OperationResult[maintenance.CleanupOutcome]
}

// CleanupData: данные результата очистки.
// Размеры равны null, если замер не удался.
type CleanupData struct {
	SizeBeforeGB *float64 `json:"size_before_gb"`
	SizeAfterGB  *float64 `json:"size_after_gb"`
	DeltaGB      *float64 `json:"delta_gb"`
	Executor     string   `json:"executor"`
	Step         string   `json:"step"`
	DurationMs   int64    `json:"duration_ms"`
	OperationID  string   `json:"operation_id"`
	Progress     []string `json:"progress"`
	Message      string   `json:"message"`
}

// WriteText выводит результат очистки.
func (d *CleanupData) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"[OK] %s\n"+
			"Исполнитель: %s\n"+
			"Размер до: %s GB\n"+
			"Размер после: %s GB\n"+
			"Освобождено: %s GB\n"+
			"Операция: %s\n",
		d.Message, d.Executor, gbText(d.SizeBeforeGB), gbText(d.SizeAfterGB), gbText(d.DeltaGB), d.OperationID)
	return err
}

func gbText(v *float64) string {
	if v == nil {
		return "н/д"
	}
	return maintenance.FormatGB(*v)
}

func knownGB(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

// CleanupHandler обрабатывает команду nr-db-cleanup.
type CleanupHandler struct {
	deps shared.Deps
	// cleaner: nil в production (берётся из Engine), мок в тестах
	cleaner Cleaner
}

// Name возвращает имя команды.
func (h *CleanupHandler) Name() string {
	return constants.ActNRDbCleanup
}

// Description возвращает описание команды для help.
func (h *CleanupHandler) Description() string {
	return "Встроенная очистка WSUS (Invoke-WsusServerCleanup) с отчётом о размере базы"
}

// Execute выполняет команду nr-db-cleanup.
func (h *CleanupHandler) Execute(ctx context.Context, cfg *config.Config) error {
	s := shared.NewSession(ctx, cfg, constants.ActNRDbCleanup, h.deps)

	if cfg == nil || cfg.Maintenance == nil {
		return s.FailCode(ctx, shared.ErrConfigMissing, "Не заданы настройки обслуживания")
	}
	m := cfg.Maintenance
	s.Log = s.Log.With(slog.String("instance", m.SQLInstance))

	if handled, err := s.Preview(func() *output.DryRunPlan { return buildPlan(m) }); handled {
		return err
	}

	cleaner := h.cleaner
	if cleaner == nil {
		if h.deps.Engine == nil {
			return s.FailCode(ctx, shared.ErrEngineUnavailable, "Компоненты обслуживания не инициализированы")
		}
		cleaner = h.deps.Engine.Cleanup()
	}

	s.Log.Info("Запуск очистки WSUS")
	res := cleaner.RunCleanup(ctx, m.SQLInstance, s.Reporter(m.SQLInstance))
	s.Stage("cleanup", res.Success)

	data := &CleanupData{
		DurationMs:  time.Since(s.Start).Milliseconds(),
		OperationID: s.OperationID(),
		Progress:    s.Progress(),
		Message:     res.Message,
	}
	if res.HasData {
		out := res.Data
		data.SizeBeforeGB = knownGB(out.Before.AllocatedGB)
		data.SizeAfterGB = knownGB(out.After.AllocatedGB)
		data.DeltaGB = knownGB(out.DeltaGB())
		data.Executor = out.Executor
		data.Step = out.Step.String()
		data.DurationMs = time.Duration(out.DurationSec * float64(time.Second)).Milliseconds()
	}

	if !res.Success {
		code := shared.CodeOf(res.Kind)
		s.Log.Error("Очистка не выполнена", slog.String("code", code), slog.String("message", res.Message))
		return s.Fail(ctx, shared.Failure{Code: code, Message: res.Message, Severity: shared.SeverityOf(code), Data: data})
	}

	summary := s.NewSummary()
	summary.AddMetric("Исполнитель", data.Executor, "")
	if data.DeltaGB != nil {
		summary.AddMetric("Освобождено", maintenance.FormatGB(*data.DeltaGB), "GB")
	}
	s.Summary(summary)

	s.Log.Info("Очистка WSUS завершена", slog.String("executor", data.Executor))
	return s.Success(data)
}
