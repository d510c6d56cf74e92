// Команда wsus-dbmaint выполняет обслуживание базы WSUS (SUSDB):
// резервное копирование, проверку копии, восстановление и очистку.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/di"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
)

// shutdownTimeout ограничивает сброс span-ов при завершении.
const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

// run возвращает код выхода процесса.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.MustLoad()
	if err != nil || cfg == nil {
		slog.Error("Не удалось загрузить конфигурацию приложения", slog.Any("error", err))
		return constants.ExitConfigError
	}
	if cfg.Command == "" {
		cfg.Command = constants.ActHelp
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		cfg.Logger.Error("Ошибка инициализации приложения", slog.String("error", err.Error()))
		return constants.ExitConfigError
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			cfg.Logger.Warn("Ошибка освобождения ресурсов", slog.String("error", closeErr.Error()))
		}
	}()

	l := logging.SlogOf(app.Logger).With(slog.String("trace_id", app.TraceID))
	slog.SetDefault(l)
	cfg.Logger = l

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := app.TracerShutdown(shutdownCtx); shutdownErr != nil {
			l.Warn("Ошибка завершения трейсинга", slog.String("error", shutdownErr.Error()))
		}
	}()

	if err = handlers.RegisterAll(app.Deps); err != nil {
		l.Error("Ошибка регистрации команд", slog.String("error", err.Error()))
		return constants.ExitConfigError
	}

	ctx = tracing.WithTraceID(ctx, app.TraceID)
	ctx = tracing.ContextWithOTelTraceID(ctx, app.TraceID)

	return dispatch(ctx, cfg, app.MetricsCollector, l)
}

// dispatch находит обработчик команды и выполняет его в корневом span.
func dispatch(ctx context.Context, cfg *config.Config, mc metrics.Collector, l *slog.Logger) int {
	h, ok := command.Get(cfg.Command)
	if !ok {
		l.Error("Неизвестная команда",
			slog.String("command", cfg.Command),
			slog.String(constants.MsgErrProcessing, constants.MsgAppExit),
		)
		return constants.ExitUnknownCommand
	}

	var instance string
	if cfg.Maintenance != nil {
		instance = cfg.Maintenance.SQLInstance
	}
	ctx, span := tracing.StartSpan(ctx, nil, "command."+h.Name(),
		attribute.String("command", h.Name()),
		attribute.String("sql_instance", instance),
		attribute.String("trace_id", tracing.TraceIDFromContext(ctx)),
	)

	start := time.Now()
	mc.RecordCommandStart(h.Name())
	err := h.Execute(ctx, cfg)
	tracing.EndSpan(span, err)
	mc.RecordCommandEnd(h.Name(), time.Since(start), err == nil)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if pushErr := mc.Push(pushCtx); pushErr != nil {
		l.Warn("Ошибка отправки метрик", slog.String("error", pushErr.Error()))
	}

	if err != nil {
		l.Error("Ошибка выполнения команды",
			slog.String("command", h.Name()),
			slog.String("error", err.Error()),
			slog.String(constants.MsgErrProcessing, constants.MsgAppExit),
		)
		return constants.ExitCommandFailed
	}
	l.Info("Команда выполнена", slog.String("command", h.Name()), slog.Duration("duration", time.Since(start)))
	return constants.ExitOK
}
