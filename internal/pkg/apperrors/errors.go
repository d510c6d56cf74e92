// Package apperrors предоставляет структурированные ошибки приложения.
// Назван не errors, чтобы не конфликтовать со стандартной библиотекой.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Коды ошибок в формате CATEGORY.SPECIFIC.
// `grep "MAINT\."` находит все отказы операций обслуживания.
const (
	// CONFIG: загрузка и проверка конфигурации.
	ErrConfigLoad     = "CONFIG.LOAD_FAILED"
	ErrConfigParse    = "CONFIG.PARSE_FAILED"
	ErrConfigValidate = "CONFIG.VALIDATION_FAILED"

	// COMMAND: выбор и выполнение команд.
	ErrCommandNotFound = "COMMAND.NOT_FOUND"
	ErrCommandExec     = "COMMAND.EXEC_FAILED"

	// OUTPUT: форматирование вывода.
	ErrOutputFormat = "OUTPUT.FORMAT_FAILED"

	// MAINT: отказы операций обслуживания базы WSUS.
	ErrMaintNotPrivileged         = "MAINT.NOT_PRIVILEGED"
	ErrMaintPrivilegeUnavailable  = "MAINT.PRIVILEGE_CHECK_UNAVAILABLE"
	ErrMaintFileNotFound          = "MAINT.FILE_NOT_FOUND"
	ErrMaintIntegrityCheck        = "MAINT.INTEGRITY_CHECK_FAILED"
	ErrMaintServiceTransition     = "MAINT.SERVICE_TRANSITION_FAILED"
	ErrMaintAccessModeTransition  = "MAINT.ACCESS_MODE_TRANSITION_FAILED"
	ErrMaintEngineExecution       = "MAINT.ENGINE_EXECUTION_FAILED"
	ErrMaintCleanup               = "MAINT.CLEANUP_FAILED"
	ErrMaintCancelled             = "MAINT.CANCELLED"
	ErrMaintServicesNotResumed    = "MAINT.SERVICES_NOT_RESUMED"
	ErrMaintBackupPathRequired    = "MAINT.BACKUP_PATH_REQUIRED"
	ErrMaintTranscriptUnavailable = "MAINT.TRANSCRIPT_UNAVAILABLE"
)

// AppError: структурированная ошибка приложения.
//
// Message не должен содержать секретов: пароль SQL-входа попадает в DSN,
// а DSN в текст ошибки драйвера, поэтому причину в JSON не сериализуем.
//
//	return apperrors.NewAppError(apperrors.ErrConfigValidate,
//	    "не задан путь резервной копии", err)
type AppError struct {
	// Code: машиночитаемый код CATEGORY.SPECIFIC
	Code string `json:"code"`
	// Message: описание для оператора
	Message string `json:"message"`
	// Cause: исходная ошибка
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает исходную ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Category возвращает часть кода до точки: "MAINT" для "MAINT.CANCELLED".
func (e *AppError) Category() string {
	return Category(e.Code)
}

// NewAppError создаёт AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Category возвращает категорию кода.
func Category(code string) string {
	category, _, _ := strings.Cut(code, ".")
	return category
}

// CodeOf возвращает код первой AppError в цепочке или пустую строку.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
