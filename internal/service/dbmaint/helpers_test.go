package dbmaint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql/mssqltest"
	"github.com/Kargones/wsus-dbmaint/internal/adapter/svcctl/svcctltest"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/util/runner"
)

const testInstance = `WSUS01\SQLEXPRESS`

// statementKeywords: ключевые слова для сокращённой записи инструкций в журнале событий.
var statementKeywords = []string{"VERIFYONLY", "BACKUP DATABASE", "SINGLE_USER", "RESTORE DATABASE", "MULTI_USER", "SHRINKDATABASE"}

// eventLog: общий журнал обращений к SQL, службам и процессам.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(e string) int {
	for i, v := range l.all() {
		if v == e {
			return i
		}
	}
	return -1
}

func statementEvent(stmt string) string {
	for _, k := range statementKeywords {
		if strings.Contains(stmt, k) {
			return "sql:" + k
		}
	}
	return "sql:" + stmt
}

// fakeProcs: ProcessRunner с заранее заданным результатом.
type fakeProcs struct {
	events   *eventLog
	result   runner.Result
	err      error
	output   []string
	lastExe  string
	lastArgs []string
	ctxErr   error
}

func (p *fakeProcs) Run(ctx context.Context, executable string, args []string, sink progress.Reporter) (runner.Result, error) {
	p.lastExe, p.lastArgs, p.ctxErr = executable, args, ctx.Err()
	name := executable
	if len(args) > 0 && args[0] == "postinstall" {
		name = "postinstall"
	}
	p.events.add("proc:" + name)
	for _, line := range p.output {
		sink.Report(line)
	}
	return p.result, p.err
}

// fixture собирает оркестраторы поверх моков.
type fixture struct {
	t      *testing.T
	events *eventLog
	sql    *mssqltest.MockExecutor
	svc    *svcctltest.MockServiceManager
	procs  *fakeProcs
	rec    *progress.Recorder

	sysadmin any
	privErr  error
	sizes    []any
	sizeErr  error
	failOn   map[string]error
	hooks    map[string]func()
	freeGB   float64
	clock    time.Time

	startCtxErrs []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		events:   &eventLog{},
		procs:    &fakeProcs{},
		rec:      progress.NewRecorder(),
		sysadmin: int32(1),
		failOn:   map[string]error{},
		hooks:    map[string]func(){},
		freeGB:   500,
		clock:    time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	f.procs.events = f.events
	f.sql = &mssqltest.MockExecutor{
		ExecuteScalarFunc: func(_ context.Context, _, _, query string, _ time.Duration) (any, error) {
			switch {
			case strings.Contains(query, "IS_SRVROLEMEMBER"):
				return f.sysadmin, f.privErr
			case strings.Contains(query, "sys.master_files"):
				if f.sizeErr != nil {
					return nil, f.sizeErr
				}
				if len(f.sizes) == 0 {
					return nil, nil
				}
				v := f.sizes[0]
				f.sizes = f.sizes[1:]
				return v, nil
			}
			return nil, errors.New("unexpected scalar query: " + query)
		},
		ExecuteNonQueryFunc: func(ctx context.Context, _, _, stmt string, _ time.Duration) (int64, error) {
			ev := statementEvent(stmt)
			f.events.add(ev)
			if hook, ok := f.hooks[ev]; ok {
				hook()
			}
			if err, ok := f.failOn[ev]; ok {
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				return 0, err
			}
			return -1, nil
		},
	}
	f.svc = &svcctltest.MockServiceManager{
		StopFunc: func(_ context.Context, name string) maintenance.OperationResult[struct{}] {
			f.events.add("stop:" + name)
			if hook, ok := f.hooks["stop:"+name]; ok {
				hook()
			}
			if err, ok := f.failOn["stop:"+name]; ok {
				return maintenance.Fail(maintenance.KindServiceTransitionFailed, err.Error(), err)
			}
			return maintenance.Ok(name + " stopped successfully.")
		},
		StartFunc: func(ctx context.Context, name string) maintenance.OperationResult[struct{}] {
			f.events.add("start:" + name)
			f.startCtxErrs = append(f.startCtxErrs, ctx.Err())
			if err, ok := f.failOn["start:"+name]; ok {
				return maintenance.Fail(maintenance.KindServiceTransitionFailed, err.Error(), err)
			}
			return maintenance.Ok(name + " started successfully.")
		},
	}
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) gate() *PermissionGate {
	return NewPermissionGate(f.sql, logging.NewNopLogger())
}

func (f *fixture) backup() *BackupOrchestrator {
	o := NewBackupOrchestrator(f.gate(), f.sql, func(string) (uint64, error) {
		return uint64(f.freeGB * 1024 * 1024 * 1024), nil
	}, DefaultOptions(), logging.NewNopLogger())
	o.now = f.now
	return o
}

func (f *fixture) restore() *RestoreOrchestrator {
	o := NewRestoreOrchestrator(f.gate(), f.sql, f.backup(), f.svc, f.procs, DefaultOptions(), logging.NewNopLogger())
	o.fileExists = func(string) bool { return true }
	o.now = f.now
	return o
}

func (f *fixture) restoreRequest() maintenance.RestoreRequest {
	return maintenance.RestoreRequest{
		SQLInstance: testInstance,
		BackupPath:  `D:\Backups\SUSDB_20260501.bak`,
		ContentPath: `D:\WSUS`,
	}
}

// stepLines возвращает строки с тегом [Step.
func stepLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, "[Step ") {
			out = append(out, l)
		}
	}
	return out
}
