package dbmaint

import (
	"context"
	"fmt"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/adapter/svcctl"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/util/diskspace"
)

// EngineConfig: параметры сборки компонентов обслуживания одного экземпляра SQL Server.
type EngineConfig struct {
	// SQLInstance: обслуживаемый экземпляр
	SQLInstance string
	// Options: общие настройки оркестраторов
	Options Options
	// Services: политика остановки и запуска служб
	Services svcctl.Options
	// Selection: выбор реализации очистки
	Selection ExecutorSelection
	// Legacy: параметры SQL-шагов очистки
	Legacy LegacyOptions
	// PowerShellPath: интерпретатор для встроенной очистки
	PowerShellPath string
	// WsusPort: порт API WSUS
	WsusPort int
}

// ControllerFactory открывает соединение с диспетчером служб.
type ControllerFactory func(ctx context.Context) (svcctl.Controller, error)

// Engine собирает оркестраторы поверх общих возможностей: SQL, процессы, службы.
// Диспетчер служб открывается только для восстановления.
type Engine struct {
	cfg           EngineConfig
	exec          mssql.QueryExecutor
	procs         ProcessRunner
	newController ControllerFactory
	free          diskspace.Probe
	log           logging.Logger
}

// NewEngine создаёт Engine. Nil-значения controllers и free заменяются платформенными.
func NewEngine(cfg EngineConfig, exec mssql.QueryExecutor, procs ProcessRunner, controllers ControllerFactory, free diskspace.Probe, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if controllers == nil {
		controllers = svcctl.NewController
	}
	if free == nil {
		free = diskspace.FreeBytes
	}
	if cfg.PowerShellPath == "" {
		cfg.PowerShellPath = DefaultPowerShellPath
	}
	if cfg.WsusPort == 0 {
		cfg.WsusPort = DefaultWsusPort
	}
	cfg.Options = cfg.Options.withDefaults()
	if cfg.Legacy.Database == "" {
		cfg.Legacy.Database = cfg.Options.Database
	}
	return &Engine{cfg: cfg, exec: exec, procs: procs, newController: controllers, free: free, log: log}
}

// SQLInstance возвращает обслуживаемый экземпляр.
func (e *Engine) SQLInstance() string {
	return e.cfg.SQLInstance
}

// Database возвращает обслуживаемую базу.
func (e *Engine) Database() string {
	return e.cfg.Options.Database
}

// Options возвращает настройки оркестраторов после подстановки умолчаний.
func (e *Engine) Options() Options {
	return e.cfg.Options
}

// ExecutorName возвращает имя реализации очистки, которая будет выбрана.
func (e *Engine) ExecutorName() string {
	return e.cfg.Selection.Name()
}

// Gate возвращает проверку прав sysadmin.
func (e *Engine) Gate() *PermissionGate {
	return NewPermissionGate(e.exec, e.log)
}

// Backup возвращает оркестратор резервного копирования и проверки копий.
func (e *Engine) Backup() *BackupOrchestrator {
	return NewBackupOrchestrator(e.Gate(), e.exec, e.free, e.cfg.Options, e.log)
}

// Restore открывает диспетчер служб и возвращает оркестратор восстановления.
// Возвращаемая функция закрывает соединение с диспетчером.
func (e *Engine) Restore(ctx context.Context) (*RestoreOrchestrator, func() error, error) {
	ctl, err := e.newController(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось подключиться к диспетчеру служб: %w", err)
	}
	services := svcctl.NewManager(ctl, e.cfg.Services, e.log)
	o := NewRestoreOrchestrator(e.Gate(), e.exec, e.Backup(), services, e.procs, e.cfg.Options, e.log)
	return o, ctl.Close, nil
}

// Cleanup возвращает конвейер очистки с реализацией, выбранной по EngineConfig.Selection.
func (e *Engine) Cleanup() *CleanupPipeline {
	var (
		builtIn *PowerShellCleanupExecutor
		legacy  *LegacySQLCleanupExecutor
	)
	if e.cfg.Selection.BuiltIn {
		builtIn = NewPowerShellCleanupExecutor(e.procs, e.cfg.PowerShellPath, e.cfg.WsusPort, e.log)
	}
	if e.cfg.Selection.LegacyFallback {
		legacy = NewLegacySQLCleanupExecutor(e.exec, e.cfg.SQLInstance, e.cfg.Legacy, e.log)
	}
	executor := SelectCleanupExecutor(e.cfg.Selection, builtIn, legacy)
	return NewCleanupPipeline(e.exec, executor, e.cfg.Options, e.log)
}

// Close закрывает пулы соединений SQL.
func (e *Engine) Close() error {
	if e.exec == nil {
		return nil
	}
	return e.exec.Close()
}
