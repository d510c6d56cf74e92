package shared

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// alertTimeout ограничивает отправку алерта после отмены команды.
const alertTimeout = 30 * time.Second

// Deps: зависимости обработчиков обслуживания, собираемые в internal/di.
type Deps struct {
	Engine  *dbmaint.Engine
	Alerter alerting.Alerter
	Metrics metrics.Collector
}

// TextData: данные результата, умеющие выводить себя в текстовом формате.
type TextData interface {
	WriteText(w io.Writer) error
}

// Session: состояние выполнения одной команды: формат вывода, trace_id,
// протокол прогресса и отправка алертов.
type Session struct {
	Command string
	Format  string
	TraceID string
	Start   time.Time
	Log     *slog.Logger

	cfg         *config.Config
	alerter     alerting.Alerter
	metrics     metrics.Collector
	out         io.Writer
	recorder    *progress.Recorder
	transcript  *progress.TranscriptSink
	operationID string
	plan        *output.DryRunPlan
	summary     *output.SummaryInfo
}

// NewSession начинает выполнение команды.
func NewSession(ctx context.Context, cfg *config.Config, command string, deps Deps) *Session {
	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = tracing.GenerateTraceID()
	}

	format := os.Getenv(constants.EnvOutputFormat)
	if cfg != nil && cfg.OutputFormat != "" {
		format = cfg.OutputFormat
	}

	s := &Session{
		Command:  command,
		Format:   format,
		TraceID:  traceID,
		Start:    time.Now(),
		Log:      slog.Default().With(slog.String("trace_id", traceID), slog.String("command", command)),
		cfg:      cfg,
		alerter:  deps.Alerter,
		metrics:  deps.Metrics,
		out:      os.Stdout,
		recorder: progress.NewRecorder(),
	}
	if s.alerter == nil {
		s.alerter = alerting.NewNopAlerter()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNopCollector()
	}
	return s
}

// JSON сообщает, выводится ли результат в JSON.
func (s *Session) JSON() bool {
	return s.Format == output.FormatJSON
}

// Preview обрабатывает режимы предпросмотра в порядке приоритета:
// dry-run, plan-only, verbose. Возвращает true, если команда не должна выполняться.
func (s *Session) Preview(build func() *output.DryRunPlan) (bool, error) {
	if dryrun.IsDryRun() {
		s.Log.Info("Dry-run режим: построение плана")
		return true, output.WriteDryRunResult(s.out, s.Format, s.Command, s.TraceID, constants.APIVersion, s.Start, build())
	}
	if dryrun.IsPlanOnly() {
		s.Log.Info("Plan-only режим: отображение плана операций")
		return true, output.WritePlanOnlyResult(s.out, s.Format, s.Command, s.TraceID, constants.APIVersion, s.Start, build())
	}
	if dryrun.IsVerbose() {
		s.Log.Info("Verbose режим: отображение плана перед выполнением")
		s.plan = build()
		if !s.JSON() {
			if err := s.plan.WritePlanText(s.out); err != nil {
				s.Log.Warn("Не удалось вывести план операций", slog.String("error", err.Error()))
			}
			fmt.Fprintln(s.out) //nolint:errcheck // вывод в stdout
		}
	}
	return false, nil
}

// Reporter собирает приёмник прогресса операции: консоль (stderr), запись строк
// для результата и протокол в WSUS_TRANSCRIPT_DIR, если он задан.
// Недоступный протокол не прерывает операцию.
func (s *Session) Reporter(instance string) progress.Reporter {
	mode, dir := progress.ModeAuto, ""
	if s.cfg != nil {
		if s.cfg.Progress != "" {
			mode = s.cfg.Progress
		}
		if s.cfg.Maintenance != nil {
			dir = s.cfg.Maintenance.TranscriptDir
		}
	}

	console := progress.New(progress.Options{
		Mode:         mode,
		OutputFormat: s.Format,
		Operation:    s.Command,
		Logger:       s.Log,
	})

	s.operationID = uuid.NewString()
	var transcript progress.Reporter
	if dir != "" {
		t, err := progress.OpenTranscript(dir, s.Command, instance)
		if err != nil {
			s.Log.Warn("Протокол операции недоступен",
				slog.String("code", apperrors.ErrMaintTranscriptUnavailable),
				slog.String("error", err.Error()))
		} else {
			s.transcript = t
			s.operationID = t.ID()
			transcript = t
			s.Log.Info("Протокол операции", slog.String("path", t.Path()))
		}
	}
	return progress.NewMulti(console, s.recorder, transcript)
}

// OperationID возвращает идентификатор операции; пусто до вызова Reporter.
func (s *Session) OperationID() string {
	return s.operationID
}

// Progress возвращает строки прогресса, переданные операцией.
func (s *Session) Progress() []string {
	lines := s.recorder.Lines()
	if lines == nil {
		return []string{}
	}
	return lines
}

// Summary задаёт сводку для успешного результата.
func (s *Session) Summary(summary *output.SummaryInfo) {
	s.summary = summary
}

// NewSummary создаёт сводку, в которую уже внесены строки прогресса [WARN].
func (s *Session) NewSummary() *output.SummaryInfo {
	summary := output.NewSummaryInfo()
	for _, line := range s.recorder.Lines() {
		if progress.Classify(line) == progress.LevelWarn {
			summary.AddWarning(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), progress.TagWarn)))
		}
	}
	return summary
}

// OperationContext ограничивает операцию обслуживания временем timeout.
// Инструкции BACKUP/RESTORE выполняются без таймаута, граница задаётся только ctx.
// timeout <= 0 снимает ограничение.
func OperationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Stage записывает исход этапа в метрики.
func (s *Session) Stage(stage string, success bool) {
	s.metrics.RecordStage(s.Command, stage, success)
}

// finish закрывает протокол операции.
func (s *Session) finish(outcome string) {
	if s.transcript == nil {
		return
	}
	if err := s.transcript.Close(outcome); err != nil {
		s.Log.Warn("Ошибка закрытия протокола операции", slog.String("error", err.Error()))
	}
	s.transcript = nil
}

// Success выводит успешный результат.
func (s *Session) Success(data TextData) error {
	s.finish("success")
	if !s.JSON() {
		return data.WriteText(s.out)
	}

	result := &output.Result{
		Status:  output.StatusSuccess,
		Command: s.Command,
		Data:    data,
		Plan:    s.plan,
		Summary: s.summary,
		Metadata: &output.Metadata{
			DurationMs: time.Since(s.Start).Milliseconds(),
			TraceID:    s.TraceID,
			APIVersion: constants.APIVersion,
		},
	}
	return output.NewWriter(s.Format).Write(s.out, result)
}

// Failure описывает отказ команды.
type Failure struct {
	Code     string
	Message  string
	Severity alerting.Severity
	// Data: данные частичного результата (состояние восстановления, предупреждения)
	Data any
}

// Fail отправляет алерт, выводит ошибку и возвращает её как error.
// Ошибка отправки алерта на результат команды не влияет.
func (s *Session) Fail(ctx context.Context, f Failure) error {
	s.finish("failed: " + f.Code)
	s.alert(ctx, f)
	return s.writeError(f)
}

// FailCode: Fail с важностью по коду ошибки.
func (s *Session) FailCode(ctx context.Context, code, message string) error {
	return s.Fail(ctx, Failure{Code: code, Message: message, Severity: SeverityOf(code)})
}

func (s *Session) alert(ctx context.Context, f Failure) {
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	a := alerting.Alert{
		ErrorCode: f.Code,
		Message:   f.Message,
		TraceID:   s.TraceID,
		Timestamp: time.Now(),
		Command:   s.Command,
		Severity:  f.Severity,
	}
	if s.cfg != nil && s.cfg.Maintenance != nil {
		a.Instance = s.cfg.Maintenance.SQLInstance
		a.Database = s.cfg.Maintenance.Database
	}
	if err := s.alerter.Send(alertCtx, a); err != nil {
		s.Log.Warn("Не удалось отправить алерт", slog.String("error", err.Error()))
	}
}

func (s *Session) writeError(f Failure) error {
	if !s.JSON() {
		return HandleError(f.Message, f.Code)
	}

	result := &output.Result{
		Status:  output.StatusError,
		Command: s.Command,
		Data:    f.Data,
		Error: &output.ErrorInfo{
			Code:    f.Code,
			Message: f.Message,
		},
		Metadata: &output.Metadata{
			DurationMs: time.Since(s.Start).Milliseconds(),
			TraceID:    s.TraceID,
			APIVersion: constants.APIVersion,
		},
	}
	if err := output.NewWriter(s.Format).Write(s.out, result); err != nil {
		s.Log.Error("Не удалось записать JSON-ответ об ошибке", slog.String("error", err.Error()))
	}
	return fmt.Errorf("%s: %s", f.Code, f.Message)
}
