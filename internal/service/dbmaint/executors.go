package dbmaint

import (
	"context"
	"fmt"

	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/util/runner"
)

// Имена реализаций CleanupExecutor.
const (
	ExecutorBuiltIn  = "builtin"
	ExecutorLegacy   = "legacy"
	ExecutorDisabled = "disabled"
)

// DefaultWsusPort: порт API WSUS по умолчанию.
const DefaultWsusPort = 8530

// DefaultPowerShellPath: интерпретатор PowerShell.
const DefaultPowerShellPath = "powershell.exe"

// Compile-time проверки реализации интерфейса
var (
	_ CleanupExecutor = (*PowerShellCleanupExecutor)(nil)
	_ CleanupExecutor = (*LegacySQLCleanupExecutor)(nil)
	_ CleanupExecutor = DisabledCleanupExecutor{}
)

// CleanupScript возвращает команду PowerShell встроенной очистки WSUS.
func CleanupScript(port int) string {
	return fmt.Sprintf("Get-WsusServer -Name localhost -PortNumber %d | "+
		"Invoke-WsusServerCleanup -CleanupObsoleteUpdates -CleanupUnneededContentFiles -CompressUpdates -DeclineSupersededUpdates", port)
}

// PowerShellCleanupExecutor запускает Invoke-WsusServerCleanup через PowerShell.
type PowerShellCleanupExecutor struct {
	procs      ProcessRunner
	powershell string
	port       int
	log        logging.Logger
}

// NewPowerShellCleanupExecutor создаёт исполнитель встроенной очистки.
func NewPowerShellCleanupExecutor(procs ProcessRunner, powershell string, port int, log logging.Logger) *PowerShellCleanupExecutor {
	if powershell == "" {
		powershell = DefaultPowerShellPath
	}
	if port <= 0 {
		port = DefaultWsusPort
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PowerShellCleanupExecutor{procs: procs, powershell: powershell, port: port, log: log}
}

// Name возвращает "builtin".
func (e *PowerShellCleanupExecutor) Name() string { return ExecutorBuiltIn }

// RunBuiltInCleanup запускает скрипт очистки. Вывод PowerShell передаётся в rep.
func (e *PowerShellCleanupExecutor) RunBuiltInCleanup(ctx context.Context, rep progress.Reporter) maintenance.OperationResult[struct{}] {
	params, err := runner.PowerShellParams(CleanupScript(e.port))
	if err != nil {
		return maintenance.Fail(maintenance.KindCleanupFailed, err.Error(), err)
	}
	res, err := e.procs.Run(ctx, e.powershell, params, reporterOrNoop(rep))
	if err != nil {
		if ctx.Err() != nil {
			return maintenance.Fail(maintenance.KindCancelled, "WSUS built-in cleanup was cancelled.", ctx.Err())
		}
		e.log.Error("Не удалось запустить PowerShell", "path", e.powershell, "error", err)
		return maintenance.Fail(maintenance.KindCleanupFailed, fmt.Sprintf("WSUS built-in cleanup could not start: %v", err), err)
	}
	if !res.Success() {
		e.log.Warn("Встроенная очистка WSUS вернула ненулевой код", "exit_code", res.ExitCode)
		return maintenance.Fail(maintenance.KindCleanupFailed,
			fmt.Sprintf("WSUS built-in cleanup failed with exit code %d.", res.ExitCode), nil)
	}
	return maintenance.Ok("WSUS built-in cleanup succeeded.")
}

// DisabledCleanupExecutor используется, когда встроенная очистка и запасной вариант отключены.
type DisabledCleanupExecutor struct{}

// Name возвращает "disabled".
func (DisabledCleanupExecutor) Name() string { return ExecutorDisabled }

// RunBuiltInCleanup всегда завершается отказом.
func (DisabledCleanupExecutor) RunBuiltInCleanup(context.Context, progress.Reporter) maintenance.OperationResult[struct{}] {
	return maintenance.Fail(maintenance.KindCleanupFailed, "WSUS built-in cleanup is disabled and legacy fallback is disabled.", nil)
}

// ExecutorSelection: выбор реализации очистки из конфигурации.
type ExecutorSelection struct {
	// BuiltIn: разрешена встроенная очистка через PowerShell
	BuiltIn bool
	// LegacyFallback: разрешены SQL-шаги, если встроенная очистка отключена
	LegacyFallback bool
}

// Name возвращает имя реализации, которую выберет SelectCleanupExecutor.
func (sel ExecutorSelection) Name() string {
	switch {
	case sel.BuiltIn:
		return ExecutorBuiltIn
	case sel.LegacyFallback:
		return ExecutorLegacy
	default:
		return ExecutorDisabled
	}
}

// SelectCleanupExecutor выбирает реализацию: встроенная, затем SQL-шаги, иначе отключённая.
func SelectCleanupExecutor(sel ExecutorSelection, builtIn *PowerShellCleanupExecutor, legacy *LegacySQLCleanupExecutor) CleanupExecutor {
	switch {
	case sel.BuiltIn && builtIn != nil:
		return builtIn
	case sel.LegacyFallback && legacy != nil:
		return legacy
	default:
		return DisabledCleanupExecutor{}
	}
}
