// Package mssqltest предоставляет тестовые утилиты для пакета mssql:
// мок-реализацию QueryExecutor с журналом вызовов.
package mssqltest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
)

// Compile-time проверки реализации интерфейсов
var (
	_ mssql.QueryExecutor    = (*MockExecutor)(nil)
	_ mssql.ScalarExecutor   = (*MockExecutor)(nil)
	_ mssql.NonQueryExecutor = (*MockExecutor)(nil)
)

// CallKind: вид вызова исполнителя.
type CallKind string

// Виды вызовов.
const (
	CallScalar   CallKind = "scalar"
	CallNonQuery CallKind = "nonquery"
)

// Call: запись об одном вызове исполнителя.
type Call struct {
	Kind     CallKind
	Instance string
	Database string
	Query    string
	Timeout  time.Duration
}

// MockExecutor: мок-реализация mssql.QueryExecutor для тестирования.
// Использует функциональные поля для гибкой настройки поведения в тестах.
type MockExecutor struct {
	// ExecuteScalarFunc: пользовательская реализация ExecuteScalar
	ExecuteScalarFunc func(ctx context.Context, instance, database, query string, timeout time.Duration) (any, error)
	// ExecuteNonQueryFunc: пользовательская реализация ExecuteNonQuery
	ExecuteNonQueryFunc func(ctx context.Context, instance, database, statement string, timeout time.Duration) (int64, error)
	// CloseFunc: пользовательская реализация Close
	CloseFunc func() error

	mu    sync.Mutex
	calls []Call
}

// NewMockExecutor создаёт мок, возвращающий nil/0 на любые запросы.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// ExecuteScalar записывает вызов и делегирует ExecuteScalarFunc.
// При отсутствии пользовательской функции возвращает nil.
func (m *MockExecutor) ExecuteScalar(ctx context.Context, instance, database, query string, timeout time.Duration) (any, error) {
	m.record(Call{Kind: CallScalar, Instance: instance, Database: database, Query: query, Timeout: timeout})
	if m.ExecuteScalarFunc != nil {
		return m.ExecuteScalarFunc(ctx, instance, database, query, timeout)
	}
	return nil, nil
}

// ExecuteNonQuery записывает вызов и делегирует ExecuteNonQueryFunc.
// При отсутствии пользовательской функции возвращает -1.
func (m *MockExecutor) ExecuteNonQuery(ctx context.Context, instance, database, statement string, timeout time.Duration) (int64, error) {
	m.record(Call{Kind: CallNonQuery, Instance: instance, Database: database, Query: statement, Timeout: timeout})
	if m.ExecuteNonQueryFunc != nil {
		return m.ExecuteNonQueryFunc(ctx, instance, database, statement, timeout)
	}
	return -1, nil
}

// Close закрывает исполнитель.
func (m *MockExecutor) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockExecutor) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls возвращает копию журнала вызовов.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// NonQueries возвращает тексты всех выполненных инструкций в порядке вызова.
func (m *MockExecutor) NonQueries() []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Kind == CallNonQuery {
			out = append(out, c.Query)
		}
	}
	return out
}

// CountContaining возвращает число вызовов, текст которых содержит подстроку.
func (m *MockExecutor) CountContaining(substr string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.Contains(c.Query, substr) {
			n++
		}
	}
	return n
}

// IndexOf возвращает порядковый номер первой инструкции с подстрокой или -1.
func (m *MockExecutor) IndexOf(substr string) int {
	for i, q := range m.NonQueries() {
		if strings.Contains(q, substr) {
			return i
		}
	}
	return -1
}
