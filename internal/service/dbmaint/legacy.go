package dbmaint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

// Параметры SQL-шагов очистки.
const (
	supersededBatchSize  = 10000
	declinedBatchSize    = 100
	shrinkTargetPercent  = 10
	DefaultShrinkRetries = 3
	DefaultShrinkDelay   = 30 * time.Second
)

const (
	declinedSupersessionSQL = `DELETE FROM tbRevisionSupersedesUpdate
WHERE SupersededRevisionID IN (SELECT RevisionID FROM tbRevision WHERE RevisionState = 2)`

	supersededSupersessionSQL = `DELETE TOP (%d) FROM tbRevisionSupersedesUpdate
WHERE SupersededRevisionID IN (SELECT RevisionID FROM tbRevision WHERE RevisionState = 3)`

	declinedCountSQL = `SELECT COUNT(DISTINCT r.LocalUpdateID)
FROM tbUpdate u INNER JOIN tbRevision r ON u.LocalUpdateID = r.LocalUpdateID
WHERE r.RevisionState = 2`

	declinedDeleteSQL = `DECLARE @id INT;
DECLARE declined CURSOR LOCAL FAST_FORWARD FOR
	SELECT DISTINCT TOP (%d) r.LocalUpdateID
	FROM tbUpdate u INNER JOIN tbRevision r ON u.LocalUpdateID = r.LocalUpdateID
	WHERE r.RevisionState = 2;
OPEN declined;
FETCH NEXT FROM declined INTO @id;
WHILE @@FETCH_STATUS = 0
BEGIN
	EXEC spDeleteUpdate @localUpdateID = @id;
	FETCH NEXT FROM declined INTO @id;
END
CLOSE declined;
DEALLOCATE declined;`

	// indexMaintenanceSQL перестраивает индексы с фрагментацией > 30% и реорганизует > 10%.
	indexMaintenanceSQL = `DECLARE @sql NVARCHAR(MAX) = N'';
SELECT @sql = @sql +
	CASE WHEN s.avg_fragmentation_in_percent > 30
		THEN N'ALTER INDEX ' + QUOTENAME(i.name) + N' ON ' + QUOTENAME(SCHEMA_NAME(o.schema_id)) + N'.' + QUOTENAME(o.name) + N' REBUILD;'
		ELSE N'ALTER INDEX ' + QUOTENAME(i.name) + N' ON ' + QUOTENAME(SCHEMA_NAME(o.schema_id)) + N'.' + QUOTENAME(o.name) + N' REORGANIZE;'
	END
FROM sys.dm_db_index_physical_stats(DB_ID(), NULL, NULL, NULL, 'LIMITED') s
INNER JOIN sys.indexes i ON s.object_id = i.object_id AND s.index_id = i.index_id
INNER JOIN sys.objects o ON i.object_id = o.object_id
WHERE s.avg_fragmentation_in_percent > 10 AND s.page_count > 1000 AND i.name IS NOT NULL AND o.is_ms_shipped = 0;
EXEC sp_executesql @sql;`

	updateStatsSQL = "EXEC sp_updatestats"
)

// ShrinkStatement возвращает команду сжатия файлов базы.
func ShrinkStatement(database string) string {
	return fmt.Sprintf("DBCC SHRINKDATABASE(%s, %d) WITH NO_INFOMSGS", maintenance.QuoteIdentifier(database), shrinkTargetPercent)
}

// IsShrinkBlocked сообщает, что сжатие отклонено из-за идущего резервного копирования
// или другой операции с файлами; такую попытку имеет смысл повторить.
func IsShrinkBlocked(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "serialized") ||
		(strings.Contains(msg, "backup") && strings.Contains(msg, "operation")) ||
		strings.Contains(msg, "file manipulation")
}

// LegacyOptions: параметры SQL-шагов очистки.
type LegacyOptions struct {
	// Database: обслуживаемая база
	Database string
	// ShrinkAttempts: число попыток DBCC SHRINKDATABASE
	ShrinkAttempts int
	// ShrinkDelay: пауза между попытками
	ShrinkDelay time.Duration
	// Clock: источник времени для повторов
	Clock clock.Clock
}

// LegacySQLCleanupExecutor выполняет очистку прямыми SQL-шагами для серверов,
// где командлеты UpdateServices недоступны. Шаги выполняются последовательно;
// отказ шага прерывает очистку.
type LegacySQLCleanupExecutor struct {
	exec     mssql.QueryExecutor
	instance string
	opts     LegacyOptions
	log      logging.Logger
}

// NewLegacySQLCleanupExecutor создаёт исполнитель SQL-шагов для sqlInstance.
func NewLegacySQLCleanupExecutor(exec mssql.QueryExecutor, sqlInstance string, opts LegacyOptions, log logging.Logger) *LegacySQLCleanupExecutor {
	if opts.Database == "" {
		opts.Database = maintenance.DefaultDatabase
	}
	if opts.ShrinkAttempts <= 0 {
		opts.ShrinkAttempts = DefaultShrinkRetries
	}
	if opts.ShrinkDelay <= 0 {
		opts.ShrinkDelay = DefaultShrinkDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LegacySQLCleanupExecutor{exec: exec, instance: sqlInstance, opts: opts, log: log}
}

// Name возвращает "legacy".
func (e *LegacySQLCleanupExecutor) Name() string { return ExecutorLegacy }

// legacyStep: один внутренний шаг очистки.
type legacyStep struct {
	name string
	run  func(ctx context.Context, rep progress.Reporter) (string, error)
}

func (e *LegacySQLCleanupExecutor) steps() []legacyStep {
	return []legacyStep{
		{"Removing supersession records of declined revisions", e.removeDeclinedSupersession},
		{"Removing supersession records of superseded revisions", e.removeSupersededSupersession},
		{"Deleting declined updates", e.deleteDeclinedUpdates},
		{"Optimizing indexes", e.simple(indexMaintenanceSQL)},
		{"Updating statistics", e.simple(updateStatsSQL)},
		{"Shrinking database", e.shrink},
	}
}

// LegacyStepNames возвращает имена SQL-шагов очистки в порядке выполнения.
func LegacyStepNames() []string {
	steps := (&LegacySQLCleanupExecutor{}).steps()
	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.name
	}
	return names
}

// RunBuiltInCleanup выполняет шаги по порядку. Строки шагов не имеют тега [Step].
func (e *LegacySQLCleanupExecutor) RunBuiltInCleanup(ctx context.Context, rep progress.Reporter) maintenance.OperationResult[struct{}] {
	rep = reporterOrNoop(rep)
	for _, step := range e.steps() {
		if err := ctx.Err(); err != nil {
			return maintenance.Fail(maintenance.KindCancelled, "WSUS legacy cleanup was cancelled.", err)
		}
		rep.Report(step.name + "...")
		detail, err := step.run(ctx, rep)
		if err != nil {
			if ctx.Err() != nil {
				return maintenance.Fail(maintenance.KindCancelled, "WSUS legacy cleanup was cancelled.", ctx.Err())
			}
			e.log.Error("Шаг SQL-очистки завершился ошибкой", "step", step.name, "error", err)
			return maintenance.Fail(maintenance.KindCleanupFailed, fmt.Sprintf("%s: %v", step.name, err), err)
		}
		if detail != "" {
			rep.Report("  " + detail)
		}
	}
	return maintenance.Ok("WSUS legacy cleanup succeeded.")
}

func (e *LegacySQLCleanupExecutor) nonQuery(ctx context.Context, statement string) (int64, error) {
	return e.exec.ExecuteNonQuery(ctx, e.instance, e.opts.Database, statement, mssql.NoTimeout)
}

func (e *LegacySQLCleanupExecutor) simple(statement string) func(context.Context, progress.Reporter) (string, error) {
	return func(ctx context.Context, _ progress.Reporter) (string, error) {
		_, err := e.nonQuery(ctx, statement)
		return "", err
	}
}

func (e *LegacySQLCleanupExecutor) removeDeclinedSupersession(ctx context.Context, _ progress.Reporter) (string, error) {
	n, err := e.nonQuery(ctx, declinedSupersessionSQL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d rows removed", max(n, 0)), nil
}

// removeSupersededSupersession удаляет записи пачками, пока пачка заполнена полностью.
func (e *LegacySQLCleanupExecutor) removeSupersededSupersession(ctx context.Context, _ progress.Reporter) (string, error) {
	stmt := fmt.Sprintf(supersededSupersessionSQL, supersededBatchSize)
	var total int64
	for {
		n, err := e.nonQuery(ctx, stmt)
		if err != nil {
			return "", err
		}
		if n > 0 {
			total += n
		}
		if n < supersededBatchSize {
			return fmt.Sprintf("%d rows removed", total), nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

// deleteDeclinedUpdates удаляет отклонённые обновления через spDeleteUpdate пачками.
// Число проходов ограничено исходным количеством, чтобы не зациклиться на неудаляемых.
func (e *LegacySQLCleanupExecutor) deleteDeclinedUpdates(ctx context.Context, rep progress.Reporter) (string, error) {
	remaining, err := mssql.Int64(ctx, e.exec, e.instance, e.opts.Database, declinedCountSQL, mssql.NoTimeout)
	if err != nil {
		return "", err
	}
	initial := remaining
	passes := remaining/declinedBatchSize + 1
	stmt := fmt.Sprintf(declinedDeleteSQL, declinedBatchSize)
	for pass := int64(0); remaining > 0 && pass < passes; pass++ {
		if _, err := e.nonQuery(ctx, stmt); err != nil {
			return "", err
		}
		if remaining, err = mssql.Int64(ctx, e.exec, e.instance, e.opts.Database, declinedCountSQL, mssql.NoTimeout); err != nil {
			return "", err
		}
		rep.Report(fmt.Sprintf("  %d declined updates remaining", remaining))
	}
	return fmt.Sprintf("%d declined updates deleted", initial-remaining), nil
}

// shrink сжимает базу, повторяя попытку, пока её блокирует резервное копирование.
func (e *LegacySQLCleanupExecutor) shrink(ctx context.Context, rep progress.Reporter) (string, error) {
	stmt := ShrinkStatement(e.opts.Database)
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			_, err := e.nonQuery(ctx, stmt)
			return err
		},
		IsFatalError: func(err error) bool {
			return !IsShrinkBlocked(err) || ctx.Err() != nil
		},
		NotifyFunc: func(lastError error, attempt int) {
			if attempt >= e.opts.ShrinkAttempts {
				return
			}
			rep.Report(fmt.Sprintf("  shrink blocked by another operation (attempt %d/%d), retrying in %s",
				attempt, e.opts.ShrinkAttempts, e.opts.ShrinkDelay))
			e.log.Warn("Сжатие базы заблокировано", "attempt", attempt, "error", lastError)
		},
		Attempts: e.opts.ShrinkAttempts,
		Delay:    e.opts.ShrinkDelay,
		Clock:    e.opts.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		return "", lastAttemptError(err)
	}
	return "", nil
}

// lastAttemptError разворачивает ошибку retry.Call до ошибки последней попытки.
// Фатальные ошибки retry.Call возвращает без обёртки попыток, LastError к ним неприменим.
func lastAttemptError(err error) error {
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) || retry.IsRetryStopped(err) {
		if cause := retry.LastError(err); cause != nil {
			return cause
		}
	}
	return err
}
