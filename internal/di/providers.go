package di

import (
	"errors"
	"log/slog"
	"os"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/adapter/svcctl"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// ErrMaintenanceConfigMissing возвращается, если в Config нет секции maintenance.
var ErrMaintenanceConfigMissing = errors.New("di: maintenance config is missing")

// ProvideLogger создаёт Logger по секции logging.
// При nil Config или секции используется logging.DefaultConfig() (stderr, text, info).
func ProvideLogger(cfg *config.Config) logging.Logger {
	if cfg == nil || cfg.Logging == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	return logging.NewLogger(cfg.Logging.ToLogging())
}

// ProvideOutputWriter создаёт Writer по формату из Config, иначе по WSUS_OUTPUT_FORMAT.
func ProvideOutputWriter(cfg *config.Config) output.Writer {
	format := os.Getenv(constants.EnvOutputFormat)
	if cfg != nil && cfg.OutputFormat != "" {
		format = cfg.OutputFormat
	}
	if format == "" {
		format = output.FormatText
	}
	return output.NewWriter(format)
}

// ProvideTraceID генерирует trace_id запуска: 32 hex-символа.
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideAlerter создаёт Alerter по секции alerting.
// Отключённый алертинг или ошибка создания дают NopAlerter.
func ProvideAlerter(cfg *config.Config, logger logging.Logger) alerting.Alerter {
	if cfg == nil || cfg.Alerting == nil {
		return alerting.NewNopAlerter()
	}

	alertCfg, rules := cfg.Alerting.ToAlerting()
	alerter, err := alerting.NewAlerter(alertCfg, rules, logger)
	if err != nil {
		logger.Error("ошибка создания Alerter, используется NopAlerter",
			slog.String("error", err.Error()),
		)
		return alerting.NewNopAlerter()
	}
	return alerter
}

// ProvideMetricsCollector создаёт Collector по секции metrics.
// Отключённые метрики или ошибка создания дают NopCollector.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil || cfg.Metrics == nil {
		return metrics.NewNopCollector()
	}

	collector, err := metrics.NewCollector(cfg.Metrics.ToMetrics(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			slog.String("error", err.Error()),
		)
		return metrics.NewNopCollector()
	}
	return collector
}

// ProvideTracerProvider инициализирует OTel TracerProvider и возвращает shutdown.
// Отключённый трейсинг или ошибка инициализации дают nop shutdown.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) tracing.ShutdownFunc {
	if cfg == nil || cfg.Tracing == nil {
		return tracing.NewNopTracerProvider()
	}

	shutdown, err := tracing.NewTracerProvider(cfg.Tracing.ToTracing(), logger)
	if err != nil {
		logger.Error("ошибка инициализации tracing, используется nop provider",
			slog.String("error", err.Error()),
		)
		return tracing.NewNopTracerProvider()
	}
	return shutdown
}

// ProvideEngine собирает компоненты обслуживания по секции maintenance.
// Соединения с SQL Server и диспетчером служб открываются лениво при выполнении команды.
func ProvideEngine(cfg *config.Config, logger logging.Logger) (*dbmaint.Engine, error) {
	if cfg == nil || cfg.Maintenance == nil {
		return nil, ErrMaintenanceConfigMissing
	}
	m := cfg.Maintenance

	exec := mssql.NewExecutor(mssql.ConnectionOptions{
		User:     m.SQLUser,
		Password: m.SQLPassword,
		Encrypt:  m.SQLEncrypt,
		AppName:  constants.AppName,
	})
	procs := &dbmaint.ExternalProcess{
		CodePage: m.ConsoleCodePage,
		Logger:   logging.SlogOf(logger),
	}

	engineCfg := dbmaint.EngineConfig{
		SQLInstance: m.SQLInstance,
		Options: dbmaint.Options{
			Database:          m.Database,
			Services:          maintenance.ServiceQuiesceSet(m.Services()),
			SizeQueryTimeout:  m.SizeQueryTimeout,
			AccessModeTimeout: m.AccessModeTimeout,
			WsusUtilPath:      m.WsusUtilPath,
		},
		Services: svcctl.Options{
			StartAttempts: m.ServiceStartAttempts,
			RetryDelay:    m.ServiceRetryDelay,
			WaitTimeout:   m.ServiceWaitTimeout,
		},
		Selection: dbmaint.ExecutorSelection{
			BuiltIn:        m.CleanupBuiltIn,
			LegacyFallback: m.CleanupLegacyFallback,
		},
		Legacy: dbmaint.LegacyOptions{
			Database:       m.Database,
			ShrinkAttempts: m.ShrinkAttempts,
			ShrinkDelay:    m.ShrinkRetryDelay,
		},
		PowerShellPath: m.PowerShellPath,
		WsusPort:       m.WsusPort,
	}
	return dbmaint.NewEngine(engineCfg, exec, procs, nil, nil, logger), nil
}

// ProvideDeps собирает зависимости обработчиков команд.
func ProvideDeps(engine *dbmaint.Engine, alerter alerting.Alerter, collector metrics.Collector) shared.Deps {
	return shared.Deps{Engine: engine, Alerter: alerter, Metrics: collector}
}
