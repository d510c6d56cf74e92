// Package svcctltest предоставляет мок-реализацию svcctl.ServiceManager с журналом вызовов.
package svcctltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/svcctl"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
)

// Compile-time проверка реализации интерфейса
var _ svcctl.ServiceManager = (*MockServiceManager)(nil)

// MockServiceManager: мок-реализация svcctl.ServiceManager для тестирования.
type MockServiceManager struct {
	// StopFunc: пользовательская реализация Stop
	StopFunc func(ctx context.Context, name string) maintenance.OperationResult[struct{}]
	// StartFunc: пользовательская реализация Start
	StartFunc func(ctx context.Context, name string) maintenance.OperationResult[struct{}]

	mu    sync.Mutex
	calls []string
}

// NewMockServiceManager создаёт мок, успешно выполняющий любые переходы.
func NewMockServiceManager() *MockServiceManager {
	return &MockServiceManager{}
}

// Stop записывает вызов "stop:<name>".
func (m *MockServiceManager) Stop(ctx context.Context, name string) maintenance.OperationResult[struct{}] {
	m.record("stop:" + name)
	if m.StopFunc != nil {
		return m.StopFunc(ctx, name)
	}
	return maintenance.Ok(fmt.Sprintf("%s stopped successfully.", name))
}

// Start записывает вызов "start:<name>".
func (m *MockServiceManager) Start(ctx context.Context, name string) maintenance.OperationResult[struct{}] {
	m.record("start:" + name)
	if m.StartFunc != nil {
		return m.StartFunc(ctx, name)
	}
	return maintenance.Ok(fmt.Sprintf("%s started successfully.", name))
}

func (m *MockServiceManager) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls возвращает журнал вызовов в порядке выполнения.
func (m *MockServiceManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
