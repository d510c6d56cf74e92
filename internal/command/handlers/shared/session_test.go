package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared/sharedtest"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/testutil"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
)

const testTraceID = "0123456789abcdef0123456789abcdef"

type textData struct {
	Value string `json:"value"`
}

func (d textData) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "value: %s\n", d.Value)
	return err
}

func testPlan() *output.DryRunPlan {
	return &output.DryRunPlan{
		Command:          "nr-db-verify",
		Steps:            []output.PlanStep{{Order: 1, Operation: "RESTORE VERIFYONLY"}},
		ValidationPassed: true,
	}
}

func newTestSession(t *testing.T, format string) (*Session, *sharedtest.RecordingAlerter, *sharedtest.RecordingCollector) {
	t.Helper()
	alerter := &sharedtest.RecordingAlerter{}
	collector := &sharedtest.RecordingCollector{}
	ctx := tracing.WithTraceID(context.Background(), testTraceID)
	s := NewSession(ctx, sharedtest.Config(format), "nr-db-verify", Deps{Alerter: alerter, Metrics: collector})
	return s, alerter, collector
}

func TestNewSession(t *testing.T) {
	t.Run("trace_id из контекста", func(t *testing.T) {
		s, _, _ := newTestSession(t, "json")
		assert.Equal(t, testTraceID, s.TraceID)
		assert.True(t, s.JSON())
	})

	t.Run("новый trace_id и формат из окружения", func(t *testing.T) {
		t.Setenv("WSUS_OUTPUT_FORMAT", "json")
		s := NewSession(context.Background(), nil, "nr-db-backup", Deps{})
		assert.Len(t, s.TraceID, 32)
		assert.True(t, s.JSON())
	})
}

func TestSession_Preview(t *testing.T) {
	t.Run("обычный режим", func(t *testing.T) {
		s, _, _ := newTestSession(t, "text")
		var handled bool
		out := testutil.CaptureStdout(t, func() {
			var err error
			handled, err = s.Preview(testPlan)
			require.NoError(t, err)
		})
		assert.False(t, handled)
		assert.Empty(t, out)
	})

	t.Run("dry-run", func(t *testing.T) {
		t.Setenv("WSUS_DRY_RUN", "true")
		t.Setenv("WSUS_PLAN_ONLY", "true")
		var handled bool
		out := testutil.CaptureStdout(t, func() {
			s, _, _ := newTestSession(t, "json")
			var err error
			handled, err = s.Preview(testPlan)
			require.NoError(t, err)
		})
		assert.True(t, handled)

		var result output.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.True(t, result.DryRun, "dry-run приоритетнее plan-only")
		assert.False(t, result.PlanOnly)
	})

	t.Run("plan-only", func(t *testing.T) {
		t.Setenv("WSUS_PLAN_ONLY", "1")
		out := testutil.CaptureStdout(t, func() {
			s, _, _ := newTestSession(t, "text")
			handled, err := s.Preview(testPlan)
			require.NoError(t, err)
			assert.True(t, handled)
		})
		assert.Contains(t, out, "=== OPERATION PLAN ===")
	})

	t.Run("verbose выводит план и продолжает", func(t *testing.T) {
		t.Setenv("WSUS_VERBOSE", "true")
		out := testutil.CaptureStdout(t, func() {
			s, _, _ := newTestSession(t, "json")
			handled, err := s.Preview(testPlan)
			require.NoError(t, err)
			assert.False(t, handled)
			require.NoError(t, s.Success(textData{Value: "ok"}))
		})

		var result output.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.NotNil(t, result.Plan, "verbose JSON включает план")
		assert.Equal(t, "nr-db-verify", result.Plan.Command)
	})
}

func TestSession_Reporter(t *testing.T) {
	t.Run("строки записываются в результат", func(t *testing.T) {
		s, _, _ := newTestSession(t, "json")
		assert.Empty(t, s.OperationID())
		assert.Equal(t, []string{}, s.Progress())

		rep := s.Reporter(`WSUS01\SQLEXPRESS`)
		rep.Report("Checking SQL sysadmin permissions...")
		assert.Equal(t, []string{"Checking SQL sysadmin permissions..."}, s.Progress())
		assert.Len(t, s.OperationID(), 36)
	})

	t.Run("протокол операции", func(t *testing.T) {
		dir := t.TempDir()
		s, _, _ := newTestSession(t, "text")
		s.cfg.Maintenance.TranscriptDir = dir

		rep := s.Reporter(`WSUS01\SQLEXPRESS`)
		rep.Report("[OK] Backup integrity verified.")
		testutil.CaptureStdout(t, func() {
			require.NoError(t, s.Success(textData{Value: "ok"}))
		})

		files, err := filepath.Glob(filepath.Join(dir, "*-nr-db-verify.log"))
		require.NoError(t, err)
		require.Len(t, files, 1)
		body, err := os.ReadFile(files[0])
		require.NoError(t, err)
		assert.Contains(t, string(body), s.OperationID())
		assert.Contains(t, string(body), "[OK] Backup integrity verified.")
		assert.Contains(t, string(body), "outcome: success")
	})

	t.Run("недоступный протокол не прерывает операцию", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o600))
		s, _, _ := newTestSession(t, "text")
		s.cfg.Maintenance.TranscriptDir = filepath.Join(blocker, "sub")

		rep := s.Reporter("x")
		rep.Report("line")
		assert.Nil(t, s.transcript)
		assert.Equal(t, []string{"line"}, s.Progress())
	})
}

func TestSession_Success(t *testing.T) {
	t.Run("текст", func(t *testing.T) {
		out := testutil.CaptureStdout(t, func() {
			s, _, _ := newTestSession(t, "text")
			require.NoError(t, s.Success(textData{Value: "ok"}))
		})
		assert.Equal(t, "value: ok\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out := testutil.CaptureStdout(t, func() {
			s, _, _ := newTestSession(t, "json")
			summary := output.NewSummaryInfo()
			summary.AddWarning("w")
			s.Summary(summary)
			require.NoError(t, s.Success(textData{Value: "ok"}))
		})

		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &raw))
		assert.Equal(t, "success", raw["status"])
		assert.Equal(t, map[string]any{"value": "ok"}, raw["data"])
		meta := raw["metadata"].(map[string]any)
		assert.Equal(t, testTraceID, meta["trace_id"])
		assert.NotNil(t, meta["summary"])
	})
}

func TestSession_Fail(t *testing.T) {
	t.Run("json и алерт", func(t *testing.T) {
		var (
			err     error
			alerter *sharedtest.RecordingAlerter
		)
		out := testutil.CaptureStdout(t, func() {
			var s *Session
			s, alerter, _ = newTestSession(t, "json")
			err = s.Fail(context.Background(), Failure{
				Code:     apperrors.ErrMaintFileNotFound,
				Message:  `Backup file not found: D:\x.bak`,
				Severity: alerting.SeverityCritical,
				Data:     textData{Value: "partial"},
			})
		})
		require.Error(t, err)
		assert.Equal(t, `MAINT.FILE_NOT_FOUND: Backup file not found: D:\x.bak`, err.Error())

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "error", result["status"])
		assert.Equal(t, map[string]any{"code": "MAINT.FILE_NOT_FOUND", "message": `Backup file not found: D:\x.bak`}, result["error"])
		assert.Equal(t, map[string]any{"value": "partial"}, result["data"])

		alerts := alerter.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "MAINT.FILE_NOT_FOUND", alerts[0].ErrorCode)
		assert.Equal(t, "nr-db-verify", alerts[0].Command)
		assert.Equal(t, `WSUS01\SQLEXPRESS`, alerts[0].Instance)
		assert.Equal(t, "SUSDB", alerts[0].Database)
		assert.Equal(t, testTraceID, alerts[0].TraceID)
	})

	t.Run("алерт уходит после отмены", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var alerter *sharedtest.RecordingAlerter
		out := testutil.CaptureStdout(t, func() {
			var s *Session
			s, alerter, _ = newTestSession(t, "text")
			_ = s.FailCode(ctx, apperrors.ErrMaintCancelled, "Backup was cancelled.")
		})
		assert.Contains(t, out, "Код: MAINT.CANCELLED")
		require.Len(t, alerter.Alerts(), 1)
		assert.NoError(t, alerter.CtxErr)
		assert.Equal(t, alerting.SeverityWarning, alerter.Alerts()[0].Severity)
	})
}

func TestSession_Stage(t *testing.T) {
	s, _, collector := newTestSession(t, "text")
	s.Stage("backup", true)
	assert.Equal(t, []sharedtest.Stage{{Command: "nr-db-verify", Stage: "backup", Success: true}}, collector.Stages())
}

func TestCodeAndSeverity(t *testing.T) {
	assert.Equal(t, "MAINT.ENGINE_EXECUTION_FAILED", CodeOf(maintenance.KindNone))
	assert.Equal(t, "MAINT.NOT_PRIVILEGED", CodeOf(maintenance.KindNotPrivileged))

	assert.Equal(t, alerting.SeverityCritical, SeverityOf(apperrors.ErrMaintServicesNotResumed))
	assert.Equal(t, alerting.SeverityWarning, SeverityOf(apperrors.ErrMaintCancelled))
	assert.Equal(t, alerting.SeverityWarning, SeverityOf(ErrConfigMissing))
	assert.Equal(t, alerting.SeverityCritical, SeverityOf(apperrors.ErrMaintIntegrityCheck))
}

func TestSession_NewSummary(t *testing.T) {
	s, _, _ := newTestSession(t, "json")
	rep := s.Reporter("x")
	rep.Report("[OK] SQL sysadmin permissions confirmed.")
	rep.Report("[WARN] WSUS service stop: timeout (continuing anyway)")

	summary := s.NewSummary()
	assert.Equal(t, 1, summary.WarningsCount)
	assert.Equal(t, []string{"WSUS service stop: timeout (continuing anyway)"}, summary.Warnings)
}

func TestOperationContext(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{"без ограничения", 0, false},
		{"отрицательный таймаут", -time.Second, false},
		{"ограничение два часа", 2 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := OperationContext(context.Background(), tt.timeout)
			deadline, ok := ctx.Deadline()
			assert.Equal(t, tt.wantDeadline, ok)
			if tt.wantDeadline {
				assert.WithinDuration(t, time.Now().Add(tt.timeout), deadline, time.Minute)
			}
			cancel()
			assert.ErrorIs(t, ctx.Err(), context.Canceled)
		})
	}
}

func TestOperationContext_Expires(t *testing.T) {
	ctx, cancel := OperationContext(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
