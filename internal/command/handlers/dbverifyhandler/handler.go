// Package dbverifyhandler реализует команду nr-db-verify: проверку целостности
// файла резервной копии через RESTORE VERIFYONLY без изменения рабочей базы.
package dbverifyhandler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// RegisterCmd регистрирует nr-db-verify.
func RegisterCmd(deps shared.Deps) error {
	return command.Register(&VerifyHandler{deps: deps})
}

// VerifyData: данные результата проверки.
type VerifyData struct {
	BackupPath string `json:"backup_path"`
	Valid      bool   `json:"valid"`
	Message    string `json:"message"`
}

// WriteText выводит результат проверки.
func (d *VerifyData) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "[OK] %s\nФайл: %s\n", d.Message, d.BackupPath)
	return err
}

// VerifyHandler обрабатывает команду nr-db-verify.
type VerifyHandler struct {
	deps shared.Deps
	// verifier: nil в production (берётся из Engine), мок в тестах
	verifier dbmaint.BackupVerifier
}

// Name возвращает имя команды.
func (h *VerifyHandler) Name() string {
	return constants.ActNRDbVerify
}

// Description возвращает описание команды для help.
func (h *VerifyHandler) Description() string {
	return "Проверка файла резервной копии (RESTORE VERIFYONLY) без изменения базы"
}

// Execute выполняет команду nr-db-verify.
func (h *VerifyHandler) Execute(ctx context.Context, cfg *config.Config) error {
	s := shared.NewSession(ctx, cfg, constants.ActNRDbVerify, h.deps)

	if cfg == nil || cfg.Maintenance == nil || strings.TrimSpace(cfg.Maintenance.BackupPath) == "" {
		s.Log.Error("Не указан путь к файлу копии")
		return s.FailCode(ctx, apperrors.ErrMaintBackupPathRequired, "Не указан путь к файлу резервной копии (WSUS_BACKUP_PATH)")
	}
	instance, backupPath := cfg.Maintenance.SQLInstance, cfg.Maintenance.BackupPath
	s.Log = s.Log.With(slog.String("instance", instance), slog.String("backup_path", backupPath))

	if handled, err := s.Preview(func() *output.DryRunPlan { return buildPlan(instance, backupPath) }); handled {
		return err
	}

	verifier := h.verifier
	if verifier == nil {
		if h.deps.Engine == nil {
			return s.FailCode(ctx, shared.ErrEngineUnavailable, "Компоненты обслуживания не инициализированы")
		}
		verifier = h.deps.Engine.Backup()
	}

	s.Log.Info("Проверка файла резервной копии")
	res, err := verifier.VerifyBackup(ctx, instance, backupPath)
	if err != nil {
		s.Stage("verify", false)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return s.FailCode(ctx, apperrors.ErrMaintCancelled, "Backup verification was cancelled.")
		}
		return s.FailCode(ctx, apperrors.ErrMaintEngineExecution, err.Error())
	}
	s.Stage("verify", res.Success)
	if !res.Success {
		s.Log.Warn("Файл копии не прошёл проверку", slog.String("kind", res.Kind.String()))
		return s.Fail(ctx, shared.Failure{
			Code:     shared.CodeOf(res.Kind),
			Message:  res.Message,
			Severity: shared.SeverityOf(shared.CodeOf(res.Kind)),
			Data:     &VerifyData{BackupPath: backupPath, Valid: false, Message: res.Message},
		})
	}

	s.Log.Info("Файл копии корректен")
	return s.Success(&VerifyData{BackupPath: backupPath, Valid: res.Data, Message: res.Message})
}

func buildPlan(instance, backupPath string) *output.DryRunPlan {
	steps := []output.PlanStep{{
		Operation: "Проверка файла резервной копии",
		Parameters: map[string]any{
			"sql_instance": instance,
			"database":     maintenance.MasterDatabase,
			"statement":    dbmaint.VerifyStatement(backupPath),
		},
		ExpectedChanges: []string{"Нет: база данных не изменяется"},
	}}
	return dryrun.BuildPlanWithSummary(constants.ActNRDbVerify, steps,
		fmt.Sprintf("Проверка %s на %s", backupPath, instance))
}
