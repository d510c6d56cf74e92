package dbrestorehandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared/sharedtest"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/testutil"
)

type restoreFunc func(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome]

func (f restoreFunc) Restore(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
	return f(ctx, req, rep)
}

func newHandler(f restoreFunc) (*RestoreHandler, *sharedtest.RecordingAlerter, *sharedtest.RecordingCollector) {
	alerter := &sharedtest.RecordingAlerter{}
	collector := &sharedtest.RecordingCollector{}
	return &RestoreHandler{
		deps:     shared.Deps{Alerter: alerter, Metrics: collector},
		restorer: f,
	}, alerter, collector
}

type restoreJSON struct {
	Status string       `json:"status"`
	Data   *RestoreData `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func runJSON(t *testing.T, h *RestoreHandler) (restoreJSON, error) {
	t.Helper()
	var err error
	out := testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), sharedtest.Config("json"))
	})
	var result restoreJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result, err
}

func completed(warnings ...string) restoreFunc {
	return func(_ context.Context, _ maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		rep.Report("[OK] Database restored.")
		for _, w := range warnings {
			rep.Report("[WARN] " + w)
		}
		return maintenance.OkWith(maintenance.RestoreOutcome{
			Reached:  maintenance.StateDone,
			Warnings: warnings,
			Resumed:  true,
		}, "Database restore completed successfully in 120s.")
	}
}

func TestRestoreHandler_Meta(t *testing.T) {
	h := &RestoreHandler{}
	assert.Equal(t, "nr-db-restore", h.Name())
	assert.NotEmpty(t, h.Description())
}

func TestRestoreHandler_Success(t *testing.T) {
	var got maintenance.RestoreRequest
	inner := completed()
	h, alerter, collector := newHandler(func(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		got = req
		return inner(ctx, req, rep)
	})

	result, err := runJSON(t, h)
	require.NoError(t, err)

	assert.Equal(t, maintenance.RestoreRequest{
		SQLInstance: `WSUS01\SQLEXPRESS`,
		Database:    "SUSDB",
		BackupPath:  `D:\Backup\SUSDB.bak`,
		ContentPath: `C:\WSUS`,
	}, got)
	assert.Equal(t, "success", result.Status)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Done", result.Data.State)
	assert.True(t, result.Data.Resumed)
	assert.False(t, result.Data.ResumeFailed)
	assert.Empty(t, result.Data.Warnings)
	assert.Equal(t, []string{"[OK] Database restored."}, result.Data.Progress)
	assert.NotEmpty(t, result.Data.OperationID)

	assert.Empty(t, alerter.Alerts())
	assert.Equal(t, []sharedtest.Stage{
		{Command: "nr-db-restore", Stage: "restore", Success: true},
		{Command: "nr-db-restore", Stage: "resume_services", Success: true},
	}, collector.Stages())
}

func TestRestoreHandler_CommandTimeoutBoundsContext(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{"без ограничения", 0, false},
		{"ограничение два часа", 2 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deadline time.Time
			var hasDeadline bool
			inner := completed()
			h, _, _ := newHandler(func(ctx context.Context, req maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
				deadline, hasDeadline = ctx.Deadline()
				return inner(ctx, req, rep)
			})
			cfg := sharedtest.Config("json")
			cfg.Maintenance.CommandTimeout = tt.timeout

			var err error
			testutil.CaptureStdout(t, func() {
				err = h.Execute(context.Background(), cfg)
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeadline, hasDeadline)
			if tt.wantDeadline {
				assert.WithinDuration(t, time.Now().Add(tt.timeout), deadline, time.Minute)
			}
		})
	}
}

func TestRestoreHandler_SuccessWithWarningsText(t *testing.T) {
	h, alerter, _ := newHandler(completed("Could not set multi-user mode: timeout"))

	out := testutil.CaptureStdout(t, func() {
		require.NoError(t, h.Execute(context.Background(), sharedtest.Config("text")))
	})
	assert.Contains(t, out, "[OK] Database restore completed successfully in 120s.")
	assert.Contains(t, out, "Состояние: Done")
	assert.Contains(t, out, "  - Could not set multi-user mode: timeout")
	assert.Empty(t, alerter.Alerts(), "предупреждения не порождают алерт")
}

func TestRestoreHandler_IntegrityFailure(t *testing.T) {
	h, alerter, collector := newHandler(func(_ context.Context, _ maintenance.RestoreRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		rep.Report("[FAIL] Backup verification failed: media family incorrectly formed")
		res := maintenance.FailOf[maintenance.RestoreOutcome](maintenance.KindIntegrityCheckFailed,
			"Backup verification failed: media family incorrectly formed", errors.New("3241"))
		res.Data = maintenance.RestoreOutcome{Reached: maintenance.StateFileValidated}
		res.HasData = true
		return res
	})

	result, err := runJSON(t, h)
	require.Error(t, err)
	assert.Equal(t, "error", result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "MAINT.INTEGRITY_CHECK_FAILED", result.Error.Code)
	require.NotNil(t, result.Data)
	assert.Equal(t, "FileValidated", result.Data.State)
	assert.False(t, result.Data.Resumed, "службы не затрагивались")

	alerts := alerter.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, []sharedtest.Stage{{Command: "nr-db-restore", Stage: "restore", Success: false}}, collector.Stages())
}

func TestRestoreHandler_FailureWithServicesDown(t *testing.T) {
	h, alerter, collector := newHandler(func(context.Context, maintenance.RestoreRequest, progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		res := maintenance.FailOf[maintenance.RestoreOutcome](maintenance.KindCancelled, "Restore was cancelled.", context.Canceled)
		res.Data = maintenance.RestoreOutcome{
			Reached:      maintenance.StateServicesQuiesced,
			Warnings:     []string{"W3SVC start: timeout"},
			Resumed:      true,
			ResumeFailed: true,
		}
		res.HasData = true
		return res
	})

	result, err := runJSON(t, h)
	require.Error(t, err)
	assert.Equal(t, "MAINT.CANCELLED", result.Error.Code)
	assert.Contains(t, result.Error.Message, "не все службы WSUS запущены")
	assert.True(t, result.Data.ResumeFailed)

	alerts := alerter.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.SeverityCritical, alerts[0].Severity, "отмена с остановленными службами критична")
	assert.Contains(t, collector.Stages(), sharedtest.Stage{Command: "nr-db-restore", Stage: "resume_services", Success: false})
}

func TestRestoreHandler_SuccessButResumeFailed(t *testing.T) {
	h, alerter, _ := newHandler(func(context.Context, maintenance.RestoreRequest, progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		return maintenance.OkWith(maintenance.RestoreOutcome{
			Reached:      maintenance.StatePostInstallRun,
			Warnings:     []string{"WsusService start: access denied"},
			Resumed:      true,
			ResumeFailed: true,
		}, "Database restore completed successfully in 60s.")
	})

	result, err := runJSON(t, h)
	require.Error(t, err)
	assert.Equal(t, "MAINT.SERVICES_NOT_RESUMED", result.Error.Code)
	assert.Contains(t, result.Error.Message, "WsusService start: access denied")
	assert.Equal(t, "PostInstallRun", result.Data.State)

	alerts := alerter.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "MAINT.SERVICES_NOT_RESUMED", alerts[0].ErrorCode)
	assert.Equal(t, alerting.SeverityCritical, alerts[0].Severity)
}

func TestRestoreHandler_MissingPath(t *testing.T) {
	h, _, _ := newHandler(nil)
	cfg := sharedtest.Config("json")
	cfg.Maintenance.BackupPath = "  "

	var err error
	out := testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), cfg)
	})
	require.Error(t, err)
	assert.Contains(t, out, "MAINT.BACKUP_PATH_REQUIRED")
}

func TestRestoreHandler_NoEngine(t *testing.T) {
	h := &RestoreHandler{deps: shared.Deps{Alerter: &sharedtest.RecordingAlerter{}}}
	var err error
	testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), sharedtest.Config("text"))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), shared.ErrEngineUnavailable)
}

func TestRestoreHandler_DryRun(t *testing.T) {
	t.Setenv("WSUS_DRY_RUN", "true")
	h, _, _ := newHandler(func(context.Context, maintenance.RestoreRequest, progress.Reporter) maintenance.OperationResult[maintenance.RestoreOutcome] {
		t.Fatal("dry-run не выполняет восстановление")
		return maintenance.OperationResult[maintenance.RestoreOutcome]{}
	})

	var err error
	out := testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), sharedtest.Config("json"))
	})
	require.NoError(t, err)

	var result output.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.DryRun)
	require.NotNil(t, result.Plan)
	require.Len(t, result.Plan.Steps, 9)

	steps := result.Plan.Steps
	assert.Equal(t, "WsusService, W3SVC", steps[3].Parameters["order"])
	assert.Equal(t, "ALTER DATABASE [SUSDB] SET SINGLE_USER WITH ROLLBACK IMMEDIATE", steps[4].Parameters["statement"])
	assert.Contains(t, steps[5].Parameters["statement"], "WITH REPLACE")
	assert.Contains(t, steps[7].Parameters["arguments"], `CONTENT_DIR=C:\WSUS`)
	assert.Equal(t, "W3SVC, WsusService", steps[8].Parameters["order"])
}

func TestBuildPlan_NoContentPath(t *testing.T) {
	cfg := sharedtest.Config("text")
	req := maintenance.RestoreRequest{SQLInstance: `WSUS01\SQLEXPRESS`, BackupPath: `D:\b.bak`}

	plan := buildPlan(req, cfg.Maintenance)
	assert.Equal(t, `postinstall SQL_INSTANCE_NAME=WSUS01\SQLEXPRESS`, plan.Steps[7].Parameters["arguments"])
	assert.Contains(t, plan.Steps[5].Parameters["statement"], "[SUSDB]", "база по умолчанию")
}
