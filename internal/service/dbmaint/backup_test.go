package dbmaint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
)

func backupRequest(path string) maintenance.BackupRequest {
	return maintenance.BackupRequest{SQLInstance: testInstance, BackupPath: path, CommandTimeout: 2 * time.Hour}
}

func TestStatements_EscapeQuotes(t *testing.T) {
	paths := []string{
		`C:\a'b.bak`,
		`D:\O'Brien's backups\SUSDB.bak`,
		`E:\'''.bak`,
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			escaped := strings.ReplaceAll(p, "'", "''")
			for _, stmt := range []string{
				BackupStatement("SUSDB", p),
				RestoreStatement("SUSDB", p),
				VerifyStatement(p),
			} {
				assert.Contains(t, stmt, "N'"+escaped+"'")
				unquoted := strings.ReplaceAll(stmt, "''", "")
				assert.Equal(t, 2, strings.Count(unquoted, "'"), "в инструкции остаются только ограничители литерала: %s", stmt)
			}
		})
	}
}

func TestStatements_Text(t *testing.T) {
	assert.Equal(t, `BACKUP DATABASE [SUSDB] TO DISK = N'C:\b.bak' WITH COMPRESSION, INIT`, BackupStatement("SUSDB", `C:\b.bak`))
	assert.Equal(t, `RESTORE VERIFYONLY FROM DISK = N'C:\b.bak' WITH CHECKSUM`, VerifyStatement(`C:\b.bak`))
	assert.Equal(t, `RESTORE DATABASE [SUSDB] FROM DISK = N'C:\b.bak' WITH REPLACE`, RestoreStatement("SUSDB", `C:\b.bak`))
	assert.Equal(t, "ALTER DATABASE [SUSDB] SET SINGLE_USER WITH ROLLBACK IMMEDIATE", AccessModeStatement("SUSDB", maintenance.SingleUser))
	assert.Equal(t, "ALTER DATABASE [SUSDB] SET MULTI_USER", AccessModeStatement("SUSDB", maintenance.MultiUser))
	assert.Equal(t, "ALTER DATABASE [odd]]name] SET MULTI_USER", AccessModeStatement("odd]name", maintenance.MultiUser))
	assert.Contains(t, SizeQuery("SUSDB"), "DB_ID(N'SUSDB')")
}

// Сценарий: путь с кавычкой, права подтверждены, BACKUP успешен.
func TestBackup_QuotedPathSucceeds(t *testing.T) {
	f := newFixture(t)
	f.sizes = []any{[]byte("3.5000")}
	o := f.backup()
	o.stat = func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }

	res := o.Backup(context.Background(), backupRequest(`C:\a'b.bak`), f.rec)

	require.True(t, res.Success, res.Message)
	assert.NoError(t, res.Cause)
	stmts := f.sql.NonQueries()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `a''b.bak`)
	assert.NotContains(t, stmts[0], `a'b.bak`)
	assert.Equal(t, "Database backup completed successfully in 0s.", res.Message)
}

func TestBackup_ProgressProtocol(t *testing.T) {
	f := newFixture(t)
	f.sizes = []any{float64(100)}
	f.hooks["sql:BACKUP DATABASE"] = func() { f.advance(42 * time.Second) }
	path := filepath.Join(t.TempDir(), "SUSDB.bak")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))

	res := f.backup().Backup(context.Background(), backupRequest(path), f.rec)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{
		"Checking SQL sysadmin permissions...",
		"[OK] SQL sysadmin permissions confirmed.",
		"Getting current database size...",
		"Database size: 100.00 GB. Estimated backup size: 80.00 GB",
		"[OK] Disk space: 500.00 GB available on backup drive.",
		"Starting backup to: " + path,
		"This may take several minutes for large databases...",
		"[OK] Backup completed: 0.00 GB in 42s",
		"Backup file: " + path,
	}, f.rec.Lines())
	assert.Equal(t, "Database backup completed successfully in 42s.", res.Message)
	assert.Equal(t, int64(2048), res.Data.SizeBytes)
	assert.InDelta(t, 100.0, res.Data.SizeBefore.AllocatedGB, 1e-9)
	assert.InDelta(t, 42.0, res.Data.DurationSec, 1e-9)

	calls := f.sql.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, maintenance.MasterDatabase, last.Database)
	assert.Equal(t, mssql.NoTimeout, last.Timeout, "BACKUP выполняется без таймаута инструкции")
}

func TestBackup_DiskSpaceIsAdvisory(t *testing.T) {
	f := newFixture(t)
	f.sizes = []any{float64(100)}
	f.freeGB = 10

	path := filepath.Join("backups", "SUSDB.bak")

	res := f.backup().Backup(context.Background(), backupRequest(path), f.rec)

	require.True(t, res.Success)
	assert.Contains(t, f.rec.Lines(), "[WARN] Estimated backup 80.00 GB exceeds free space 10.00 GB on backups; the engine will decide.")
	assert.InDelta(t, 10.0, res.Data.DiskFreeGB, 1e-6)
	assert.Equal(t, 1, f.sql.CountContaining("BACKUP DATABASE"))
}

func TestBackup_SizeUnknownStillRuns(t *testing.T) {
	f := newFixture(t)
	f.sizeErr = errors.New("database offline")

	res := f.backup().Backup(context.Background(), backupRequest(`D:\SUSDB.bak`), f.rec)

	require.True(t, res.Success)
	assert.Contains(t, f.rec.Lines(), "[WARN] Could not determine database size; disk space estimate skipped.")
	assert.False(t, res.Data.SizeBefore.Known())
	assert.Equal(t, maintenance.UnknownSize, res.Data.DiskFreeGB)
}

// Без подтверждённых прав к базе не уходит ни одной изменяющей инструкции.
func TestBackup_PrivilegeGateBlocksMutation(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		err     error
		kind    maintenance.ErrorKind
		message string
	}{
		{"не sysadmin", int32(0), nil, maintenance.KindNotPrivileged,
			"Database backup requires SQL sysadmin permissions. Current user is not a SQL sysadmin."},
		{"проверка недоступна", nil, errors.New("network unreachable"), maintenance.KindPrivilegeCheckUnavailable,
			"Database backup requires SQL sysadmin permissions. Unable to verify: SQL connection failed: network unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.sysadmin, f.privErr = tt.value, tt.err

			res := f.backup().Backup(context.Background(), backupRequest(`C:\b.bak`), f.rec)

			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.message, res.Message)
			assert.Empty(t, f.sql.NonQueries())
			lines := f.rec.Lines()
			assert.Equal(t, "[FAIL] "+tt.message, lines[len(lines)-1])
		})
	}
}

func TestBackup_EngineFailure(t *testing.T) {
	f := newFixture(t)
	f.failOn["sql:BACKUP DATABASE"] = errors.New("Operating system error 112 (There is not enough space on the disk.)")

	res := f.backup().Backup(context.Background(), backupRequest(`C:\b.bak`), f.rec)

	assert.False(t, res.Success)
	assert.Equal(t, maintenance.KindEngineExecutionFailed, res.Kind)
	assert.True(t, strings.HasPrefix(res.Message, "Backup failed: "))
	assert.Contains(t, res.Message, "error 112")
	assert.Error(t, res.Cause)
	lines := f.rec.Lines()
	assert.Equal(t, "[FAIL] "+res.Message, lines[len(lines)-1])
}

func TestBackup_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.hooks["sql:BACKUP DATABASE"] = cancel
	f.failOn["sql:BACKUP DATABASE"] = errors.New("operation cancelled")

	res := f.backup().Backup(ctx, backupRequest(`C:\b.bak`), f.rec)

	assert.False(t, res.Success)
	assert.True(t, res.Cancelled())
	assert.Equal(t, "Backup was cancelled.", res.Message)
	assert.ErrorIs(t, res.Cause, context.Canceled)
}

func TestBackup_NilReporter(t *testing.T) {
	f := newFixture(t)
	res := f.backup().Backup(context.Background(), backupRequest(`C:\b.bak`), nil)
	assert.True(t, res.Success)
}

func TestBackup_Span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	f := newFixture(t)
	f.sysadmin = int32(0)
	o := f.backup()
	o.tracer = tp.Tracer("test")
	o.Backup(context.Background(), backupRequest(`C:\b.bak`), f.rec)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "dbmaint.backup", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, string(maintenance.KindNotPrivileged))
}

func TestVerifyBackup(t *testing.T) {
	t.Run("корректный файл", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.backup().VerifyBackup(context.Background(), testInstance, `C:\b.bak`)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, res.Data)
		assert.Equal(t, []string{VerifyStatement(`C:\b.bak`)}, f.sql.NonQueries())
	})

	t.Run("повреждённый файл", func(t *testing.T) {
		f := newFixture(t)
		f.failOn["sql:VERIFYONLY"] = errors.New("checksum mismatch on page (1:42)")
		res, err := f.backup().VerifyBackup(context.Background(), testInstance, `C:\b.bak`)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, maintenance.KindIntegrityCheckFailed, res.Kind)
		assert.Contains(t, res.Message, "Backup verification failed: ")
		assert.Contains(t, res.Message, "checksum mismatch")
	})

	t.Run("отмена возвращается ошибкой", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		f.hooks["sql:VERIFYONLY"] = cancel
		f.failOn["sql:VERIFYONLY"] = errors.New("query cancelled")
		res, err := f.backup().VerifyBackup(ctx, testInstance, `C:\b.bak`)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, res.Success)
		assert.Empty(t, res.Message, "отмена не маскируется результатом проверки")
	})
}

// Повторная проверка неизменного файла даёт тот же ответ.
func TestVerifyBackup_Idempotent(t *testing.T) {
	for _, corrupt := range []bool{false, true} {
		f := newFixture(t)
		if corrupt {
			f.failOn["sql:VERIFYONLY"] = errors.New("media family incorrectly formed")
		}
		o := f.backup()

		first, err := o.VerifyBackup(context.Background(), testInstance, `C:\b.bak`)
		require.NoError(t, err)
		second, err := o.VerifyBackup(context.Background(), testInstance, `C:\b.bak`)
		require.NoError(t, err)

		assert.Equal(t, first.Success, second.Success)
		assert.Equal(t, first.Data, second.Data)
		assert.Equal(t, !corrupt, first.Data)
	}
}
