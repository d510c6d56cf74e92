package dbmaint

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
)

// CleanupStepName: имя единственного внешнего шага очистки.
const CleanupStepName = "WSUS built-in cleanup"

// CleanupExecutor выполняет процедуру обслуживания WSUS.
// Сколько бы внутренних действий ни выполняла реализация, для конвейера это один шаг;
// собственные строки реализации не должны иметь тега [Step].
type CleanupExecutor interface {
	// Name: короткое имя реализации для логов и результата
	Name() string
	// RunBuiltInCleanup выполняет очистку
	RunBuiltInCleanup(ctx context.Context, rep progress.Reporter) maintenance.OperationResult[struct{}]
}

// CleanupPipeline выполняет очистку и сообщает размер базы до и после неё.
// Права sysadmin не требуются.
type CleanupPipeline struct {
	size     sizeMeter
	executor CleanupExecutor
	opts     Options
	log      logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewCleanupPipeline создаёт конвейер очистки.
func NewCleanupPipeline(exec mssql.ScalarExecutor, executor CleanupExecutor, opts Options, log logging.Logger) *CleanupPipeline {
	if log == nil {
		log = logging.NewNopLogger()
	}
	opts = opts.withDefaults()
	p := &CleanupPipeline{
		executor: executor,
		opts:     opts,
		log:      log,
		tracer:   tracing.Tracer(),
		now:      time.Now,
	}
	p.size = sizeMeter{exec: exec, timeout: opts.SizeQueryTimeout, log: log, now: func() time.Time { return p.now() }}
	return p
}

// RunCleanup выполняет очистку на sqlInstance.
// Ошибка замера размера только пишется в лог и не влияет на результат.
func (p *CleanupPipeline) RunCleanup(ctx context.Context, sqlInstance string, rep progress.Reporter) (res maintenance.OperationResult[maintenance.CleanupOutcome]) {
	rep = reporterOrNoop(rep)
	database := p.opts.Database
	log := p.log.With("instance", sqlInstance, "database", database, "executor", p.executor.Name())
	log.Info("Запуск встроенной очистки WSUS")

	ctx, span := tracing.StartSpan(ctx, p.tracer, "dbmaint.cleanup",
		attribute.String("db.instance", sqlInstance),
		attribute.String("dbmaint.cleanup.executor", p.executor.Name()),
	)
	defer func() { tracing.EndSpan(span, res.Err()) }()

	start := p.now()
	outcome := maintenance.CleanupOutcome{Executor: p.executor.Name()}

	outcome.Before = p.size.sample(ctx, sqlInstance, database)
	if outcome.Before.Known() {
		rep.Report(fmt.Sprintf("Current database size: %s GB", maintenance.FormatGB(outcome.Before.AllocatedGB)))
	}

	rep.Report("Starting WSUS built-in cleanup...")
	stepStart := p.now()
	result := p.executor.RunBuiltInCleanup(ctx, rep)
	outcome.Step = maintenance.CleanupStepReport{
		Index:           1,
		Total:           1,
		Name:            CleanupStepName,
		DurationSeconds: p.now().Sub(stepStart).Seconds(),
		Failed:          !result.Success,
		FailureMessage:  result.Message,
	}
	rep.Report(outcome.Step.String())

	if !result.Success {
		outcome.DurationSec = p.now().Sub(start).Seconds()
		kind, msg := maintenance.KindCleanupFailed, "WSUS cleanup failed: "+result.Message
		if result.Cancelled() || ctx.Err() != nil {
			kind, msg = maintenance.KindCancelled, "WSUS cleanup was cancelled."
			log.Info("Очистка отменена")
		} else {
			log.Warn("Встроенная очистка WSUS завершилась ошибкой", "message", result.Message)
		}
		failed := maintenance.FailOf[maintenance.CleanupOutcome](kind, msg, result.Cause)
		failed.Data, failed.HasData = outcome, true
		return failed
	}

	outcome.After = p.size.sample(ctx, sqlInstance, database)
	if outcome.Before.Known() && outcome.After.Known() {
		line := fmt.Sprintf("Database size (allocated): %s GB -> %s GB (delta %s GB).",
			maintenance.FormatGB(outcome.Before.AllocatedGB), maintenance.FormatGB(outcome.After.AllocatedGB), maintenance.FormatGB(outcome.DeltaGB()))
		// Сжатие выполняет только устаревший SQL-исполнитель.
		if p.executor.Name() == ExecutorBuiltIn {
			line += " Note: safe cleanup does not run database shrink."
		}
		rep.Report(line)
	}
	outcome.DurationSec = p.now().Sub(start).Seconds()

	log.Info("Встроенная очистка WSUS завершена", "duration", maintenance.FormatSeconds(outcome.DurationSec))
	return maintenance.OkWith(outcome, "WSUS built-in cleanup completed successfully.")
}
