package dbmaint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
	"github.com/Kargones/wsus-dbmaint/internal/util/diskspace"
)

// BackupStatement возвращает команду сжатой резервной копии с перезаписью файла.
func BackupStatement(database, backupPath string) string {
	return fmt.Sprintf("BACKUP DATABASE %s TO DISK = N'%s' WITH COMPRESSION, INIT",
		maintenance.QuoteIdentifier(database), maintenance.EscapeSQLLiteral(backupPath))
}

// VerifyStatement возвращает команду проверки файла копии с контрольными суммами.
func VerifyStatement(backupPath string) string {
	return fmt.Sprintf("RESTORE VERIFYONLY FROM DISK = N'%s' WITH CHECKSUM", maintenance.EscapeSQLLiteral(backupPath))
}

// BackupOrchestrator создаёт и проверяет резервные копии базы.
type BackupOrchestrator struct {
	gate   *PermissionGate
	exec   mssql.QueryExecutor
	size   sizeMeter
	free   diskspace.Probe
	stat   func(string) (os.FileInfo, error)
	opts   Options
	log    logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewBackupOrchestrator создаёт оркестратор резервного копирования.
// free == nil означает diskspace.FreeBytes.
func NewBackupOrchestrator(gate *PermissionGate, exec mssql.QueryExecutor, free diskspace.Probe, opts Options, log logging.Logger) *BackupOrchestrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if free == nil {
		free = diskspace.FreeBytes
	}
	opts = opts.withDefaults()
	o := &BackupOrchestrator{
		gate:   gate,
		exec:   exec,
		free:   free,
		stat:   os.Stat,
		opts:   opts,
		log:    log,
		tracer: tracing.Tracer(),
		now:    time.Now,
	}
	o.size = sizeMeter{exec: exec, timeout: opts.SizeQueryTimeout, log: log, now: o.clock}
	return o
}

func (o *BackupOrchestrator) clock() time.Time { return o.now() }

// Backup выполняет сжатое резервное копирование в req.BackupPath.
// Прерывается без обращения к базе, если текущий вход не sysadmin или это не удалось проверить.
// Нехватка места на диске только сообщается: окончательное решение принимает сам BACKUP.
func (o *BackupOrchestrator) Backup(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) (res maintenance.OperationResult[maintenance.BackupOutcome]) {
	rep = reporterOrNoop(rep)
	database := o.opts.database(req.Database)
	start := o.now()
	log := o.log.With("instance", req.SQLInstance, "database", database, "backup_path", req.BackupPath)
	log.Info("Запуск резервного копирования")

	ctx, span := tracing.StartSpan(ctx, o.tracer, "dbmaint.backup",
		attribute.String("db.instance", req.SQLInstance),
		attribute.String("db.name", database),
	)
	defer func() { tracing.EndSpan(span, res.Err()) }()

	if gate := o.gate.requirePrivilege(ctx, req.SQLInstance, "backup", rep); !gate.Success {
		log.Warn("Резервное копирование заблокировано проверкой прав", "kind", gate.Kind)
		return maintenance.FailOf[maintenance.BackupOutcome](gate.Kind, gate.Message, gate.Cause)
	}

	outcome := maintenance.BackupOutcome{BackupPath: req.BackupPath, DiskFreeGB: maintenance.UnknownSize}

	rep.Report("Getting current database size...")
	outcome.SizeBefore = o.size.sample(ctx, req.SQLInstance, database)
	if outcome.SizeBefore.Known() && outcome.SizeBefore.AllocatedGB > 0 {
		estimated := outcome.SizeBefore.EstimatedBackupGB()
		rep.Report(fmt.Sprintf("Database size: %s GB. Estimated backup size: %s GB",
			maintenance.FormatGB(outcome.SizeBefore.AllocatedGB), maintenance.FormatGB(estimated)))
		outcome.DiskFreeGB = o.adviseDiskSpace(req.BackupPath, estimated, rep, log)
	} else {
		rep.Report("[WARN] Could not determine database size; disk space estimate skipped.")
	}

	if err := ctx.Err(); err != nil {
		return o.fail(rep, maintenance.KindCancelled, "Backup was cancelled.", err)
	}

	rep.Report("Starting backup to: " + req.BackupPath)
	rep.Report("This may take several minutes for large databases...")
	if _, err := o.exec.ExecuteNonQuery(ctx, req.SQLInstance, maintenance.MasterDatabase,
		BackupStatement(database, req.BackupPath), mssql.NoTimeout); err != nil {
		if ctx.Err() != nil {
			log.Info("Резервное копирование отменено")
			return o.fail(rep, maintenance.KindCancelled, "Backup was cancelled.", ctx.Err())
		}
		log.Error("Команда BACKUP завершилась ошибкой", "error", err)
		return o.fail(rep, maintenance.KindEngineExecutionFailed, fmt.Sprintf("Backup failed: %v", err), err)
	}

	elapsed := o.now().Sub(start)
	outcome.DurationSec = elapsed.Seconds()
	seconds := maintenance.FormatSeconds(outcome.DurationSec)
	if fi, err := o.stat(req.BackupPath); err == nil && !fi.IsDir() {
		outcome.SizeBytes = fi.Size()
		rep.Report(fmt.Sprintf("[OK] Backup completed: %s GB in %s",
			maintenance.FormatGB(maintenance.BytesToGB(uint64(fi.Size()))), seconds))
		rep.Report("Backup file: " + req.BackupPath)
	} else {
		rep.Report("[OK] Backup completed in " + seconds)
	}

	log.Info("Резервное копирование завершено",
		"duration", elapsed.Round(time.Second).String(),
		"size", humanize.IBytes(uint64(outcome.SizeBytes)),
	)
	return maintenance.OkWith(outcome, fmt.Sprintf("Database backup completed successfully in %s.", seconds))
}

// adviseDiskSpace сравнивает оценку размера копии со свободным местом.
// Возвращает свободное место в ГБ или UnknownSize.
func (o *BackupOrchestrator) adviseDiskSpace(backupPath string, estimatedGB float64, rep progress.Reporter, log logging.Logger) float64 {
	dir := filepath.Dir(backupPath)
	freeBytes, err := o.free(dir)
	if err != nil {
		log.Warn("Не удалось определить свободное место", "dir", dir, "error", err)
		return maintenance.UnknownSize
	}
	freeGB := maintenance.BytesToGB(freeBytes)
	if freeGB < estimatedGB {
		rep.Report(fmt.Sprintf("[WARN] Estimated backup %s GB exceeds free space %s GB on %s; the engine will decide.",
			maintenance.FormatGB(estimatedGB), maintenance.FormatGB(freeGB), dir))
		log.Warn("Недостаточно места по оценке", "free", humanize.IBytes(freeBytes), "estimated_gb", estimatedGB)
		return freeGB
	}
	rep.Report(fmt.Sprintf("[OK] Disk space: %s GB available on backup drive.", maintenance.FormatGB(freeGB)))
	return freeGB
}

func (o *BackupOrchestrator) fail(rep progress.Reporter, kind maintenance.ErrorKind, msg string, cause error) maintenance.OperationResult[maintenance.BackupOutcome] {
	rep.Report("[FAIL] " + msg)
	return maintenance.FailOf[maintenance.BackupOutcome](kind, msg, cause)
}

// VerifyBackup проверяет целостность файла копии, не затрагивая рабочую базу.
// Результат Ok(true) означает корректный файл, Fail означает ошибку проверки.
// Отмена ctx возвращается ошибкой, а не результатом: вызывающий должен отличать
// «файл повреждён» от «проверка прервана».
func (o *BackupOrchestrator) VerifyBackup(ctx context.Context, sqlInstance, backupPath string) (res maintenance.OperationResult[bool], err error) {
	ctx, span := tracing.StartSpan(ctx, o.tracer, "dbmaint.verify", attribute.String("db.instance", sqlInstance))
	defer func() {
		if err != nil {
			tracing.EndSpan(span, err)
			return
		}
		tracing.EndSpan(span, res.Err())
	}()

	_, execErr := o.exec.ExecuteNonQuery(ctx, sqlInstance, maintenance.MasterDatabase, VerifyStatement(backupPath), mssql.NoTimeout)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return maintenance.OperationResult[bool]{}, ctxErr
	}
	if execErr != nil {
		o.log.Warn("Проверка копии не пройдена", "backup_path", backupPath, "error", execErr)
		return maintenance.FailOf[bool](maintenance.KindIntegrityCheckFailed,
			fmt.Sprintf("Backup verification failed: %v", execErr), execErr), nil
	}
	o.log.Debug("Проверка копии пройдена", "backup_path", backupPath)
	return maintenance.OkWith(true, "Backup file is valid."), nil
}
