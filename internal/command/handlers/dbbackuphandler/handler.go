// Package dbbackuphandler реализует команду nr-db-backup: сжатое резервное
// копирование базы WSUS с проверкой прав sysadmin и оценкой свободного места.
package dbbackuphandler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

// backupNameLayout: метка времени в имени файла копии по умолчанию.
const backupNameLayout = "20060102_150405"

// RegisterCmd регистрирует nr-db-backup и устаревшее имя backup.
func RegisterCmd(deps shared.Deps) error {
	return command.RegisterWithAlias(&BackupHandler{deps: deps, now: time.Now}, constants.ActLegacyBackup)
}

// Backupper: возможность резервного копирования.
type Backupper interface {
	Backup(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome]
}

// BackupData: данные результата резервного копирования.
type BackupData struct {
	BackupPath  string   `json:"backup_path"`
	SizeBytes   int64    `json:"size_bytes"`
	SizeHuman   string   `json:"size_human"`
	DurationMs  int64    `json:"duration_ms"`
	OperationID string   `json:"operation_id"`
	Progress    []string `json:"progress"`
	Message     string   `json:"message"`
}

// WriteText выводит результат резервного копирования.
func (d *BackupData) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"[OK] %s\n"+
			"Файл: %s\n"+
			"Размер: %s\n"+
			"Операция: %s\n",
		d.Message, d.BackupPath, d.SizeHuman, d.OperationID)
	return err
}

// BackupHandler обрабатывает команду nr-db-backup.
type BackupHandler struct {
	deps shared.Deps
	// backupper: nil в production (берётся из Engine), мок в тестах
	backupper Backupper
	now       func() time.Time
}

// Name возвращает имя команды.
func (h *BackupHandler) Name() string {
	return constants.ActNRDbBackup
}

// Description возвращает описание команды для help.
func (h *BackupHandler) Description() string {
	return "Резервное копирование базы WSUS (BACKUP ... WITH COMPRESSION). " +
		"WSUS_BACKUP_PATH задаёт файл или каталог"
}

// Execute выполняет команду nr-db-backup.
func (h *BackupHandler) Execute(ctx context.Context, cfg *config.Config) error {
	s := shared.NewSession(ctx, cfg, constants.ActNRDbBackup, h.deps)

	if cfg == nil || cfg.Maintenance == nil || strings.TrimSpace(cfg.Maintenance.BackupPath) == "" {
		s.Log.Error("Не указан путь резервной копии")
		return s.FailCode(ctx, apperrors.ErrMaintBackupPathRequired, "Не указан путь резервной копии (WSUS_BACKUP_PATH)")
	}
	m := cfg.Maintenance
	req := maintenance.BackupRequest{
		SQLInstance:    m.SQLInstance,
		Database:       m.Database,
		BackupPath:     ResolveBackupPath(m.BackupPath, m.Database, h.clock()),
		CommandTimeout: m.CommandTimeout,
	}
	s.Log = s.Log.With(slog.String("instance", req.SQLInstance), slog.String("backup_path", req.BackupPath))

	if handled, err := s.Preview(func() *output.DryRunPlan { return buildPlan(req) }); handled {
		return err
	}

	backupper := h.backupper
	if backupper == nil {
		if h.deps.Engine == nil {
			return s.FailCode(ctx, shared.ErrEngineUnavailable, "Компоненты обслуживания не инициализированы")
		}
		backupper = h.deps.Engine.Backup()
	}

	s.Log.Info("Запуск резервного копирования")
	opCtx, cancel := shared.OperationContext(ctx, req.CommandTimeout)
	defer cancel()
	res := backupper.Backup(opCtx, req, s.Reporter(req.SQLInstance))
	s.Stage("backup", res.Success)

	if !res.Success {
		code := shared.CodeOf(res.Kind)
		s.Log.Error("Резервное копирование не выполнено", slog.String("code", code), slog.String("message", res.Message))
		return s.Fail(ctx, shared.Failure{
			Code:     code,
			Message:  res.Message,
			Severity: shared.SeverityOf(code),
			Data: &BackupData{
				BackupPath:  req.BackupPath,
				OperationID: s.OperationID(),
				Progress:    s.Progress(),
				Message:     res.Message,
			},
		})
	}

	out := res.Data
	data := &BackupData{
		BackupPath:  out.BackupPath,
		SizeBytes:   out.SizeBytes,
		SizeHuman:   humanize.IBytes(uint64(max(out.SizeBytes, 0))),
		DurationMs:  time.Duration(out.DurationSec * float64(time.Second)).Milliseconds(),
		OperationID: s.OperationID(),
		Progress:    s.Progress(),
		Message:     res.Message,
	}

	summary := s.NewSummary()
	summary.AddMetric("Размер копии", data.SizeHuman, "")
	if out.SizeBefore.Known() {
		summary.AddMetric("Размер базы", maintenance.FormatGB(out.SizeBefore.AllocatedGB), "GB")
	}
	if out.DiskFreeGB >= 0 {
		summary.AddMetric("Свободно на диске", maintenance.FormatGB(out.DiskFreeGB), "GB")
	}
	s.Summary(summary)

	s.Log.Info("Резервное копирование завершено", slog.String("size", data.SizeHuman))
	return s.Success(data)
}

func (h *BackupHandler) clock() time.Time {
	if h.now == nil {
		return time.Now()
	}
	return h.now()
}

// ResolveBackupPath возвращает путь файла копии. Если path указывает на каталог (существующий
// или оканчивающийся разделителем), в нём выбирается имя <database>_yyyyMMdd_HHmmss.bak.
func ResolveBackupPath(path, database string, now time.Time) string {
	if database == "" {
		database = maintenance.DefaultDatabase
	}
	name := fmt.Sprintf("%s_%s.bak", database, now.Format(backupNameLayout))
	if strings.HasSuffix(path, `\`) || strings.HasSuffix(path, "/") {
		return path + name
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, name)
	}
	return path
}
