package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// testLogger реализует logging.Logger для тестирования.
// Потокобезопасен: webhook пишет в лог из теста и обработчика.
type testLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (l *testLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}
func (l *testLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}
func (l *testLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnMsgs = append(l.warnMsgs, msg)
}
func (l *testLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}
func (l *testLogger) With(_ ...any) logging.Logger { return l }

func (l *testLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnMsgs...)
}

func (l *testLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errorMsgs...)
}

// recordingAlerter запоминает полученные алерты.
type recordingAlerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recordingAlerter) Send(_ context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingAlerter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func restoreAlert() Alert {
	return Alert{
		ErrorCode: "MAINT.SERVICE_TRANSITION_FAILED",
		Message:   "службы не запущены после восстановления",
		TraceID:   "0af7651916cd43dd8448eb211c80319c",
		Timestamp: time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC),
		Command:   "nr-db-restore",
		Instance:  `localhost\SQLEXPRESS`,
		Database:  "SUSDB",
		Severity:  SeverityCritical,
	}
}
