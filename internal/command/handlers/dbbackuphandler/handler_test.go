package dbbackuphandler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
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

var fixedNow = time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

type backupFunc func(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome]

func (f backupFunc) Backup(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
	return f(ctx, req, rep)
}

func newHandler(f backupFunc) (*BackupHandler, *sharedtest.RecordingAlerter, *sharedtest.RecordingCollector) {
	alerter := &sharedtest.RecordingAlerter{}
	collector := &sharedtest.RecordingCollector{}
	h := &BackupHandler{
		deps:      shared.Deps{Alerter: alerter, Metrics: collector},
		backupper: f,
		now:       func() time.Time { return fixedNow },
	}
	return h, alerter, collector
}

func successful(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
	rep.Report("Checking SQL sysadmin permissions...")
	rep.Report("[OK] SQL sysadmin permissions confirmed.")
	rep.Report("[WARN] Estimated backup 8.00 GB exceeds free space 4.00 GB on D:\\Backup; the engine will decide.")
	rep.Report("[OK] Backup completed: 2.00 GB in 95s")
	return maintenance.OkWith(maintenance.BackupOutcome{
		BackupPath:  req.BackupPath,
		SizeBytes:   2 << 30,
		SizeBefore:  maintenance.SizeSample{AllocatedGB: 10},
		DiskFreeGB:  4,
		DurationSec: 95,
	}, "Database backup completed successfully in 95s.")
}

func TestBackupHandler_Meta(t *testing.T) {
	h := &BackupHandler{}
	assert.Equal(t, "nr-db-backup", h.Name())
	assert.Contains(t, h.Description(), "WSUS_BACKUP_PATH")
}

func TestBackupHandler_Success(t *testing.T) {
	var got maintenance.BackupRequest
	var deadline time.Time
	var hasDeadline bool
	h, alerter, collector := newHandler(func(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
		got = req
		deadline, hasDeadline = ctx.Deadline()
		return successful(ctx, req, rep)
	})
	cfg := sharedtest.Config("json")
	cfg.Maintenance.CommandTimeout = 2 * time.Hour

	var err error
	out := testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), cfg)
	})
	require.NoError(t, err)

	assert.Equal(t, maintenance.BackupRequest{
		SQLInstance:    `WSUS01\SQLEXPRESS`,
		Database:       "SUSDB",
		BackupPath:     `D:\Backup\SUSDB.bak`,
		CommandTimeout: 2 * time.Hour,
	}, got)
	require.True(t, hasDeadline, "таймаут команды ограничивает ctx операции")
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), deadline, time.Minute)

	var raw struct {
		Status string `json:"status"`
		Data   struct {
			BackupPath  string   `json:"backup_path"`
			SizeBytes   int64    `json:"size_bytes"`
			SizeHuman   string   `json:"size_human"`
			DurationMs  int64    `json:"duration_ms"`
			OperationID string   `json:"operation_id"`
			Progress    []string `json:"progress"`
		} `json:"data"`
		Metadata struct {
			Summary *output.SummaryInfo `json:"summary"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	assert.Equal(t, "success", raw.Status)
	assert.Equal(t, `D:\Backup\SUSDB.bak`, raw.Data.BackupPath)
	assert.Equal(t, int64(2<<30), raw.Data.SizeBytes)
	assert.Equal(t, "2.0 GiB", raw.Data.SizeHuman)
	assert.Equal(t, int64(95000), raw.Data.DurationMs)
	assert.Len(t, raw.Data.OperationID, 36)
	assert.Len(t, raw.Data.Progress, 4)
	require.NotNil(t, raw.Metadata.Summary)
	assert.Equal(t, 1, raw.Metadata.Summary.WarningsCount)

	assert.Empty(t, alerter.Alerts())
	assert.Equal(t, []sharedtest.Stage{{Command: "nr-db-backup", Stage: "backup", Success: true}}, collector.Stages())
}

func TestBackupHandler_Text(t *testing.T) {
	h, _, _ := newHandler(successful)
	out := testutil.CaptureStdout(t, func() {
		require.NoError(t, h.Execute(context.Background(), sharedtest.Config("text")))
	})
	assert.Contains(t, out, "[OK] Database backup completed successfully in 95s.")
	assert.Contains(t, out, "2.0 GiB")
}

func TestBackupHandler_Failures(t *testing.T) {
	tests := []struct {
		name     string
		kind     maintenance.ErrorKind
		message  string
		severity alerting.Severity
	}{
		{"нет прав", maintenance.KindNotPrivileged,
			"Database backup requires SQL sysadmin permissions. Current user is not a SQL sysadmin.", alerting.SeverityCritical},
		{"ошибка движка", maintenance.KindEngineExecutionFailed, "Backup failed: disk full", alerting.SeverityCritical},
		{"отмена", maintenance.KindCancelled, "Backup was cancelled.", alerting.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, alerter, collector := newHandler(func(context.Context, maintenance.BackupRequest, progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
				return maintenance.FailOf[maintenance.BackupOutcome](tt.kind, tt.message, errors.New("cause"))
			})

			var err error
			out := testutil.CaptureStdout(t, func() {
				err = h.Execute(context.Background(), sharedtest.Config("json"))
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.kind.String())

			var result map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.Equal(t, map[string]any{"code": tt.kind.String(), "message": tt.message}, result["error"])

			alerts := alerter.Alerts()
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.severity, alerts[0].Severity)
			assert.Equal(t, "nr-db-backup", alerts[0].Command)
			assert.False(t, collector.Stages()[0].Success)
		})
	}
}

func TestBackupHandler_MissingPath(t *testing.T) {
	h, alerter, _ := newHandler(nil)
	cfg := sharedtest.Config("text")
	cfg.Maintenance.BackupPath = ""

	var err error
	out := testutil.CaptureStdout(t, func() {
		err = h.Execute(context.Background(), cfg)
	})
	require.Error(t, err)
	assert.Contains(t, out, "MAINT.BACKUP_PATH_REQUIRED")
	assert.Len(t, alerter.Alerts(), 1)
}

func TestBackupHandler_PlanOnly(t *testing.T) {
	t.Setenv("WSUS_PLAN_ONLY", "true")
	h, _, _ := newHandler(func(context.Context, maintenance.BackupRequest, progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
		t.Fatal("plan-only не выполняет копирование")
		return maintenance.OperationResult[maintenance.BackupOutcome]{}
	})

	out := testutil.CaptureStdout(t, func() {
		require.NoError(t, h.Execute(context.Background(), sharedtest.Config("text")))
	})
	assert.Contains(t, out, "=== OPERATION PLAN ===")
	assert.Contains(t, out, "IS_SRVROLEMEMBER")
	assert.Contains(t, out, "WITH COMPRESSION, INIT")
}

func TestBackupHandler_Verbose(t *testing.T) {
	t.Setenv("WSUS_VERBOSE", "true")
	called := false
	h, _, _ := newHandler(func(ctx context.Context, req maintenance.BackupRequest, rep progress.Reporter) maintenance.OperationResult[maintenance.BackupOutcome] {
		called = true
		return successful(ctx, req, rep)
	})

	out := testutil.CaptureStdout(t, func() {
		require.NoError(t, h.Execute(context.Background(), sharedtest.Config("json")))
	})
	assert.True(t, called)
	var result output.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Plan)
	assert.Len(t, result.Plan.Steps, 3)
}

func TestResolveBackupPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "existing.bak")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name     string
		path     string
		database string
		want     string
	}{
		{"файл", `D:\Backup\SUSDB.bak`, "SUSDB", `D:\Backup\SUSDB.bak`},
		{"каталог с обратным слешем", `D:\Backup\`, "SUSDB", `D:\Backup\SUSDB_20260501_103000.bak`},
		{"каталог со слешем", "/var/backup/", "", "/var/backup/SUSDB_20260501_103000.bak"},
		{"существующий каталог", dir, "SUSDB", filepath.Join(dir, "SUSDB_20260501_103000.bak")},
		{"существующий файл", file, "SUSDB", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveBackupPath(tt.path, tt.database, fixedNow))
		})
	}
}
