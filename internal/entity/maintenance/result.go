// Package maintenance содержит значения, которыми обмениваются операции обслуживания
// базы данных WSUS: результаты операций, запросы резервного копирования и восстановления,
// замеры размера и отчёты о шагах очистки.
//
// Все типы создаются на один вызов и не хранят состояние между операциями.
package maintenance

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ожидаемые отказы операций обслуживания.
// Значения совпадают с кодами apperrors в формате CATEGORY.SPECIFIC.
type ErrorKind string

// Виды отказов операций обслуживания.
const (
	KindNone                       ErrorKind = ""
	KindNotPrivileged              ErrorKind = "MAINT.NOT_PRIVILEGED"
	KindPrivilegeCheckUnavailable  ErrorKind = "MAINT.PRIVILEGE_CHECK_UNAVAILABLE"
	KindFileNotFound               ErrorKind = "MAINT.FILE_NOT_FOUND"
	KindIntegrityCheckFailed       ErrorKind = "MAINT.INTEGRITY_CHECK_FAILED"
	KindServiceTransitionFailed    ErrorKind = "MAINT.SERVICE_TRANSITION_FAILED"
	KindAccessModeTransitionFailed ErrorKind = "MAINT.ACCESS_MODE_TRANSITION_FAILED"
	KindEngineExecutionFailed      ErrorKind = "MAINT.ENGINE_EXECUTION_FAILED"
	KindCleanupFailed              ErrorKind = "MAINT.CLEANUP_FAILED"
	KindCancelled                  ErrorKind = "MAINT.CANCELLED"
)

// String возвращает код вида отказа.
func (k ErrorKind) String() string {
	return string(k)
}

// OperationResult: итог любой публичной операции обслуживания.
// Ожидаемые отказы возвращаются значением, а не ошибкой.
//
// Инвариант: Success == true означает Cause == nil и Kind == KindNone.
type OperationResult[T any] struct {
	Success bool
	Message string
	Data    T
	HasData bool
	Kind    ErrorKind
	Cause   error
}

// Ok создаёт успешный результат без данных.
func Ok(message string) OperationResult[struct{}] {
	return OperationResult[struct{}]{Success: true, Message: message}
}

// OkWith создаёт успешный результат с данными.
func OkWith[T any](data T, message string) OperationResult[T] {
	return OperationResult[T]{Success: true, Message: message, Data: data, HasData: true}
}

// Fail создаёт неуспешный результат. Cause может быть nil.
func Fail(kind ErrorKind, message string, cause error) OperationResult[struct{}] {
	return FailOf[struct{}](kind, message, cause)
}

// FailOf создаёт неуспешный результат для операций, возвращающих данные.
func FailOf[T any](kind ErrorKind, message string, cause error) OperationResult[T] {
	if kind == KindNone {
		kind = KindEngineExecutionFailed
	}
	return OperationResult[T]{Message: message, Kind: kind, Cause: cause}
}

// Err возвращает результат в виде ошибки или nil при успехе.
func (r OperationResult[T]) Err() error {
	if r.Success {
		return nil
	}
	return &OperationError{Kind: r.Kind, Message: r.Message, Cause: r.Cause}
}

// Cancelled сообщает, закончилась ли операция из-за отмены.
func (r OperationResult[T]) Cancelled() bool {
	return r.Kind == KindCancelled
}

// OperationError: представление неуспешного OperationResult в виде error.
type OperationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error реализует интерфейс error.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap возвращает исходную причину.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// KindOf извлекает вид отказа из цепочки ошибок.
func KindOf(err error) ErrorKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindNone
}
