// Package svcctl предоставляет возможность управления службами операционной системы:
// диспетчер служб Windows и systemd через D-Bus.
//
// Controller: низкоуровневые запросы к платформе.
// ServiceManager: остановка и запуск с ожиданием состояния и повторными попытками;
// результат возвращается значением maintenance.OperationResult.
package svcctl

import (
	"context"
	"errors"

	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
)

// Коды ошибок управления службами.
const (
	// ErrSvcConnect: не удалось подключиться к диспетчеру служб
	ErrSvcConnect = "SERVICE.CONNECT_FAILED"
	// ErrSvcQuery: не удалось получить состояние службы
	ErrSvcQuery = "SERVICE.QUERY_FAILED"
	// ErrSvcControl: диспетчер отклонил запрос на остановку или запуск
	ErrSvcControl = "SERVICE.CONTROL_FAILED"
	// ErrSvcTimeout: служба не перешла в нужное состояние за отведённое время
	ErrSvcTimeout = "SERVICE.TIMEOUT"
)

// ErrNotFound: служба не зарегистрирована в системе.
var ErrNotFound = errors.New("service not found")

// State: состояние службы.
type State int

// Состояния службы.
const (
	StateUnknown State = iota
	StateStopped
	StateStartPending
	StateStopPending
	StateRunning
	StatePaused
)

var stateNames = [...]string{"Unknown", "Stopped", "StartPending", "StopPending", "Running", "Paused"}

// String возвращает имя состояния.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Controller: запросы к диспетчеру служб платформы.
// RequestStop и RequestStart не ждут смены состояния; повторный запрос
// к уже остановленной (запущенной) службе не является ошибкой.
type Controller interface {
	// Status возвращает текущее состояние службы или ErrNotFound.
	Status(ctx context.Context, name string) (State, error)
	// RequestStop отправляет запрос на остановку.
	RequestStop(ctx context.Context, name string) error
	// RequestStart отправляет запрос на запуск.
	RequestStart(ctx context.Context, name string) error
	// Close освобождает соединение с диспетчером.
	Close() error
}

// ServiceManager: возможность управления службами для оркестраторов обслуживания.
type ServiceManager interface {
	// Stop останавливает службу и ждёт состояния Stopped.
	Stop(ctx context.Context, name string) maintenance.OperationResult[struct{}]
	// Start запускает службу и ждёт состояния Running, повторяя попытки.
	Start(ctx context.Context, name string) maintenance.OperationResult[struct{}]
}
