package dbmaint

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/adapter/svcctl"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
)

// msgRestoreCancelled: итог восстановления, прерванного отменой.
const msgRestoreCancelled = "Restore was cancelled."

// RestoreStatement возвращает команду восстановления базы с заменой.
func RestoreStatement(database, backupPath string) string {
	return fmt.Sprintf("RESTORE DATABASE %s FROM DISK = N'%s' WITH REPLACE",
		maintenance.QuoteIdentifier(database), maintenance.EscapeSQLLiteral(backupPath))
}

// AccessModeStatement возвращает команду смены режима доступа.
// SINGLE_USER откатывает открытые транзакции других подключений немедленно.
func AccessModeStatement(database string, mode maintenance.AccessMode) string {
	stmt := fmt.Sprintf("ALTER DATABASE %s SET %s", maintenance.QuoteIdentifier(database), mode)
	if mode == maintenance.SingleUser {
		stmt += " WITH ROLLBACK IMMEDIATE"
	}
	return stmt
}

// BackupVerifier проверяет целостность файла копии.
type BackupVerifier interface {
	VerifyBackup(ctx context.Context, sqlInstance, backupPath string) (maintenance.OperationResult[bool], error)
}

// Compile-time проверка реализации интерфейса
var _ BackupVerifier = (*BackupOrchestrator)(nil)

// RestoreOrchestrator восстанавливает базу из файла копии.
//
// Протокол линейный: Idle → PrivilegeChecked → FileValidated → IntegrityVerified →
// ServicesQuiesced → SingleUserSet → Restored → MultiUserSet → PostInstallRun →
// ServicesResumed → Done. До остановки служб отказ просто завершает операцию.
// После неё любой выход, включая отмену, сначала запускает службы.
type RestoreOrchestrator struct {
	gate       *PermissionGate
	exec       mssql.NonQueryExecutor
	verifier   BackupVerifier
	services   svcctl.ServiceManager
	procs      ProcessRunner
	fileExists func(string) bool
	opts       Options
	log        logging.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewRestoreOrchestrator создаёт оркестратор восстановления.
func NewRestoreOrchestrator(
	gate *PermissionGate,
	exec mssql.NonQueryExecutor,
	verifier BackupVerifier,
	services svcctl.ServiceManager,
	procs ProcessRunner,
	opts Options,
	log logging.Logger,
) *RestoreOrchestrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RestoreOrchestrator{
		gate:       gate,
		exec:       exec,
		verifier:   verifier,
		services:   services,
		procs:      procs,
		fileExists: regularFileExists,
		opts:       opts.withDefaults(),
		log:        log,
		tracer:     tracing.Tracer(),
		now:        time.Now,
	}
}

func regularFileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// restoreRun: состояние одного вызова Restore.
type restoreRun struct {
	req       maintenance.RestoreRequest
	database  string
	state     maintenance.RestoreState
	warnings  []string
	resumed   bool
	resumeErr *multierror.Error
	rep       progress.Reporter
	log       logging.Logger
}

func (r *restoreRun) enter(s maintenance.RestoreState) {
	r.state = s
	r.log.Debug("Переход протокола восстановления", "state", s.String())
}

func (r *restoreRun) warn(msg string) {
	r.rep.Report("[WARN] " + msg)
	r.warnings = append(r.warnings, msg)
	r.log.Warn("Предупреждение восстановления", "state", r.state.String(), "warning", msg)
}

func (r *restoreRun) fail(kind maintenance.ErrorKind, msg string, cause error) maintenance.OperationResult[struct{}] {
	r.rep.Report("[FAIL] " + msg)
	r.log.Error("Восстановление прервано", "state", r.state.String(), "kind", kind, "error", cause)
	return maintenance.Fail(kind, msg, cause)
}

func (r *restoreRun) outcome() maintenance.RestoreOutcome {
	return maintenance.RestoreOutcome{
		Reached:      r.state,
		Warnings:     append([]string(nil), r.warnings...),
		Resumed:      r.resumed,
		ResumeFailed: r.resumeErr.ErrorOrNil() != nil,
	}
}

// Restore восстанавливает базу из req.BackupPath.
// Отказ смены режима MULTI_USER после успешного RESTORE не делает результат неуспешным:
// он попадает в предупреждения. Неудачный запуск служб также только предупреждение;
// RestoreOutcome.ResumeFailed позволяет вызывающему эскалировать его.
func (o *RestoreOrchestrator) Restore(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) (res maintenance.OperationResult[maintenance.RestoreOutcome]) {
	database := o.opts.database(req.Database)
	run := &restoreRun{
		req:      req,
		database: database,
		state:    maintenance.StateIdle,
		rep:      reporterOrNoop(rep),
		log:      o.log.With("instance", req.SQLInstance, "database", database, "backup_path", req.BackupPath),
	}
	start := o.now()
	run.log.Info("Запуск восстановления базы")

	ctx, span := tracing.StartSpan(ctx, o.tracer, "dbmaint.restore",
		attribute.String("db.instance", req.SQLInstance),
		attribute.String("db.name", database),
	)
	defer func() {
		span.SetAttributes(
			attribute.String("dbmaint.restore.state", run.state.String()),
			attribute.Int("dbmaint.restore.warnings", len(run.warnings)),
		)
		tracing.EndSpan(span, res.Err())
	}()

	result := o.protocol(ctx, run)
	if !result.Success {
		failed := maintenance.FailOf[maintenance.RestoreOutcome](result.Kind, result.Message, result.Cause)
		failed.Data, failed.HasData = run.outcome(), true
		return failed
	}

	run.enter(maintenance.StateDone)
	seconds := maintenance.FormatSeconds(o.now().Sub(start).Seconds())
	run.rep.Report(fmt.Sprintf("[OK] Database restore completed in %s.", seconds))
	run.log.Info("Восстановление завершено", "duration", seconds, "warnings", len(run.warnings))
	return maintenance.OkWith(run.outcome(), fmt.Sprintf("Database restore completed successfully in %s.", seconds))
}

// protocol проходит состояния до PostInstallRun; запуск служб выполняется отложенно.
func (o *RestoreOrchestrator) protocol(ctx context.Context, run *restoreRun) maintenance.OperationResult[struct{}] {
	req, rep := run.req, run.rep

	if gate := o.gate.requirePrivilege(ctx, req.SQLInstance, "restore", rep); !gate.Success {
		return gate
	}
	run.enter(maintenance.StatePrivilegeChecked)

	if !o.fileExists(req.BackupPath) {
		return run.fail(maintenance.KindFileNotFound, "Backup file not found: "+req.BackupPath, nil)
	}
	rep.Report("[OK] Backup file found: " + req.BackupPath)
	run.enter(maintenance.StateFileValidated)

	rep.Report("Verifying backup integrity...")
	verified, err := o.verifier.VerifyBackup(ctx, req.SQLInstance, req.BackupPath)
	if err != nil {
		return run.fail(maintenance.KindCancelled, msgRestoreCancelled, err)
	}
	if !verified.Success || !verified.Data {
		msg := verified.Message
		if verified.Success {
			msg = "Backup verification failed: " + msg
		}
		return run.fail(maintenance.KindIntegrityCheckFailed, msg, verified.Cause)
	}
	rep.Report("[OK] Backup integrity verified.")
	run.enter(maintenance.StateIntegrityVerified)

	if err := ctx.Err(); err != nil {
		return run.fail(maintenance.KindCancelled, msgRestoreCancelled, err)
	}

	// Дальше службы затронуты: хвост выполняется без отмены.
	tail := context.WithoutCancel(ctx)
	defer o.resumeServices(tail, run)

	o.quiesceServices(ctx, run)
	run.enter(maintenance.StateServicesQuiesced)
	if err := ctx.Err(); err != nil {
		return run.fail(maintenance.KindCancelled, msgRestoreCancelled, err)
	}

	rep.Report("Setting database to single-user mode...")
	if err := o.setAccessMode(ctx, run, maintenance.SingleUser); err != nil {
		if ctx.Err() != nil {
			return run.fail(maintenance.KindCancelled, msgRestoreCancelled, ctx.Err())
		}
		return run.fail(maintenance.KindAccessModeTransitionFailed,
			fmt.Sprintf("Failed to set database to single-user mode: %v", err), err)
	}
	rep.Report("[OK] Database set to single-user mode.")
	run.enter(maintenance.StateSingleUserSet)

	if err := ctx.Err(); err != nil {
		o.returnToMultiUser(tail, run)
		return run.fail(maintenance.KindCancelled, msgRestoreCancelled, err)
	}

	rep.Report("Restoring database... (this may take several minutes)")
	if _, err := o.exec.ExecuteNonQuery(ctx, req.SQLInstance, maintenance.MasterDatabase,
		RestoreStatement(run.database, req.BackupPath), mssql.NoTimeout); err != nil {
		cancelled := ctx.Err()
		o.returnToMultiUser(tail, run)
		if cancelled != nil {
			return run.fail(maintenance.KindCancelled, msgRestoreCancelled, cancelled)
		}
		return run.fail(maintenance.KindEngineExecutionFailed, fmt.Sprintf("Restore failed: %v", err), err)
	}
	rep.Report("[OK] Database restored.")
	run.enter(maintenance.StateRestored)

	// RESTORE необратим: оставшиеся шаги доводятся до конца даже при отмене.
	o.returnToMultiUser(tail, run)
	run.enter(maintenance.StateMultiUserSet)

	o.postInstall(tail, run)
	run.enter(maintenance.StatePostInstallRun)

	return maintenance.Ok("")
}

// quiesceServices останавливает службы в прямом порядке.
// Отказ остановки не прерывает восстановление: SINGLE_USER WITH ROLLBACK IMMEDIATE
// всё равно отключит оставшиеся подключения.
func (o *RestoreOrchestrator) quiesceServices(ctx context.Context, run *restoreRun) {
	for _, name := range o.opts.Services.StopOrder() {
		labels := labelsFor(name)
		run.rep.Report("Stopping " + labels.display + "...")
		r := o.services.Stop(ctx, name)
		if r.Success {
			run.rep.Report("[OK] " + labels.short + " stopped.")
		} else {
			run.warn(fmt.Sprintf("%s stop: %s (continuing anyway)", name, r.Message))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// resumeServices запускает службы в обратном порядке. Отказы собираются в предупреждения.
func (o *RestoreOrchestrator) resumeServices(ctx context.Context, run *restoreRun) {
	for _, name := range o.opts.Services.StartOrder() {
		labels := labelsFor(name)
		run.rep.Report("Restarting " + labels.display + "...")
		r := o.services.Start(ctx, name)
		if r.Success {
			run.rep.Report("[OK] " + labels.short + " started.")
			continue
		}
		run.warn(fmt.Sprintf("%s start: %s", name, r.Message))
		run.resumeErr = multierror.Append(run.resumeErr, fmt.Errorf("%s: %w", name, r.Err()))
	}
	run.resumed = true
	if err := run.resumeErr.ErrorOrNil(); err != nil {
		run.log.Error("Не все службы запущены после восстановления", "error", err)
	}
	if run.state == maintenance.StatePostInstallRun {
		run.enter(maintenance.StateServicesResumed)
	}
}

func (o *RestoreOrchestrator) setAccessMode(ctx context.Context, run *restoreRun, mode maintenance.AccessMode) error {
	_, err := o.exec.ExecuteNonQuery(ctx, run.req.SQLInstance, maintenance.MasterDatabase,
		AccessModeStatement(run.database, mode), o.opts.AccessModeTimeout)
	return err
}

// returnToMultiUser возвращает базу в MULTI_USER однократно. Отказ только предупреждение.
func (o *RestoreOrchestrator) returnToMultiUser(ctx context.Context, run *restoreRun) {
	run.rep.Report("Setting database back to multi-user mode...")
	if err := o.setAccessMode(ctx, run, maintenance.MultiUser); err != nil {
		run.warn(fmt.Sprintf("Could not set multi-user mode: %v", err))
		return
	}
	run.rep.Report("[OK] Database set to multi-user mode.")
}

// postInstall согласует восстановленные метаданные с каталогом содержимого.
func (o *RestoreOrchestrator) postInstall(ctx context.Context, run *restoreRun) {
	run.rep.Report("Running wsusutil postinstall...")
	args := []string{"postinstall", "SQL_INSTANCE_NAME=" + run.req.SQLInstance}
	if run.req.ContentPath != "" {
		args = append(args, "CONTENT_DIR="+run.req.ContentPath)
	}
	res, err := o.procs.Run(ctx, o.opts.WsusUtilPath, args, run.rep)
	switch {
	case err != nil:
		run.warn(fmt.Sprintf("wsusutil postinstall failed: %v", err))
	case !res.Success():
		run.warn(fmt.Sprintf("wsusutil postinstall exit code %d (check logs).", res.ExitCode))
	default:
		run.rep.Report("[OK] wsusutil postinstall completed.")
	}
}
