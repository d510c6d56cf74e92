// Package dbrestorehandler реализует команду nr-db-restore: восстановление базы WSUS
// из файла копии с остановкой и обязательным запуском служб WSUS.
package dbrestorehandler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

// msgServicesNotResumed: сообщение алерта о службах, оставшихся остановленными.
const msgServicesNotResumed = "После восстановления не все службы WSUS запущены"

// RegisterCmd регистрирует nr-db-restore и устаревшее имя restore.
func RegisterCmd(deps shared.Deps) error {
	return command.RegisterWithAlias(&RestoreHandler{deps: deps}, constants.ActLegacyRestore)
}

// Restorer: возможность восстановления базы.
type Restorer interface {
	Restore(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome]
}

// RestoreData: данные результата восстановления.
type RestoreData struct {
	BackupPath   string   `json:"backup_path"`
	ContentPath  string   `json:"content_path,omitempty"`
	State        string   `json:"state"`
	Warnings     []string `json:"warnings"`
	Resumed      bool     `json:"services_resumed"`
	ResumeFailed bool     `json:"resume_failed"`
	DurationMs   int64    `json:"duration_ms"`
	OperationID  string   `json:"operation_id"`
	Progress     []string `json:"progress"`
	Message      string   `json:"message"`
}

// WriteText выводит результат восстановления.
func (d *RestoreData) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[OK] %s\n", d.Message)
	fmt.Fprintf(&sb, "Файл: %s\n", d.BackupPath)
	fmt.Fprintf(&sb, "Состояние: %s\n", d.State)
	if len(d.Warnings) > 0 {
		sb.WriteString("Предупреждения:\n")
		for _, warn := range d.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warn)
		}
	}
	fmt.Fprintf(&sb, "Операция: %s\n", d.OperationID)
	_, err := io.WriteString(w, sb.String())
	return err
}

// RestoreHandler обрабатывает команду nr-db-restore.
type RestoreHandler struct {
	deps shared.Deps
	// restorer: nil в production (берётся из Engine), мок в тестах
	restorer Restorer
}

// Name возвращает имя команды.
func (h *RestoreHandler) Name() string {
	return constants.ActNRDbRestore
}

// Description возвращает описание команды для help.
func (h *RestoreHandler) Description() string {
	return "Восстановление базы WSUS из копии (WSUS_BACKUP_PATH) с остановкой служб WSUS " +
		"и wsusutil postinstall"
}

// Execute выполняет команду nr-db-restore.
func (h *RestoreHandler) Execute(ctx context.Context, cfg *config.Config) error {
	s := shared.NewSession(ctx, cfg, constants.ActNRDbRestore, h.deps)

	if cfg == nil || cfg.Maintenance == nil || strings.TrimSpace(cfg.Maintenance.BackupPath) == "" {
		s.Log.Error("Не указан путь резервной копии")
		return s.FailCode(ctx, apperrors.ErrMaintBackupPathRequired, "Не указан путь резервной копии (WSUS_BACKUP_PATH)")
	}
	m := cfg.Maintenance
	req := maintenance.RestoreRequest{
		SQLInstance:    m.SQLInstance,
		Database:       m.Database,
		BackupPath:     m.BackupPath,
		ContentPath:    m.ContentPath,
		CommandTimeout: m.CommandTimeout,
	}
	s.Log = s.Log.With(slog.String("instance", req.SQLInstance), slog.String("backup_path", req.BackupPath))

	if handled, err := s.Preview(func() *output.DryRunPlan { return buildPlan(req, m) }); handled {
		return err
	}

	restorer := h.restorer
	if restorer == nil {
		if h.deps.Engine == nil {
			return s.FailCode(ctx, shared.ErrEngineUnavailable, "Компоненты обслуживания не инициализированы")
		}
		orch, closeCtl, err := h.deps.Engine.Restore(ctx)
		if err != nil {
			s.Log.Error("Диспетчер служб недоступен", slog.String("error", err.Error()))
			return s.FailCode(ctx, apperrors.ErrMaintServiceTransition,
				fmt.Sprintf("Диспетчер служб недоступен: %v", err))
		}
		defer func() {
			if cerr := closeCtl(); cerr != nil {
				s.Log.Warn("Ошибка закрытия диспетчера служб", slog.String("error", cerr.Error()))
			}
		}()
		restorer = orch
	}

	s.Log.Info("Запуск восстановления базы")
	opCtx, cancel := shared.OperationContext(ctx, req.CommandTimeout)
	defer cancel()
	res := restorer.Restore(opCtx, req, s.Reporter(req.SQLInstance))
	s.Stage("restore", res.Success)

	data := &RestoreData{
		BackupPath:  req.BackupPath,
		ContentPath: req.ContentPath,
		State:       maintenance.StateIdle.String(),
		Warnings:    []string{},
		DurationMs:  time.Since(s.Start).Milliseconds(),
		OperationID: s.OperationID(),
		Progress:    s.Progress(),
		Message:     res.Message,
	}
	if res.HasData {
		out := res.Data
		data.State = out.Reached.String()
		if len(out.Warnings) > 0 {
			data.Warnings = out.Warnings
		}
		data.Resumed = out.Resumed
		data.ResumeFailed = out.ResumeFailed
		if out.Reached.RequiresResume() || out.Resumed {
			s.Stage("resume_services", out.Resumed && !out.ResumeFailed)
		}
	}

	if !res.Success {
		code := shared.CodeOf(res.Kind)
		severity := shared.SeverityOf(code)
		message := res.Message
		if data.ResumeFailed {
			// службы остались остановленными: WSUS недоступен до ручного вмешательства
			severity = alerting.SeverityCritical
			message = fmt.Sprintf("%s. %s", strings.TrimSuffix(res.Message, "."), msgServicesNotResumed)
		}
		s.Log.Error("Восстановление не выполнено",
			slog.String("code", code),
			slog.String("state", data.State),
			slog.Bool("resume_failed", data.ResumeFailed),
		)
		return s.Fail(ctx, shared.Failure{Code: code, Message: message, Severity: severity, Data: data})
	}

	if data.ResumeFailed {
		s.Log.Error(msgServicesNotResumed, slog.Any("warnings", data.Warnings))
		return s.Fail(ctx, shared.Failure{
			Code:     apperrors.ErrMaintServicesNotResumed,
			Message:  fmt.Sprintf("%s: %s", msgServicesNotResumed, strings.Join(data.Warnings, "; ")),
			Severity: alerting.SeverityCritical,
			Data:     data,
		})
	}

	summary := s.NewSummary()
	summary.AddMetric("Состояние", data.State, "")
	summary.AddMetric("Предупреждений", fmt.Sprintf("%d", len(data.Warnings)), "")
	s.Summary(summary)

	s.Log.Info("Восстановление завершено", slog.Int("warnings", len(data.Warnings)))
	return s.Success(data)
}
