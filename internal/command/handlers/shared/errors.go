// Package shared содержит общие компоненты обработчиков команд обслуживания.
package shared

import (
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
)

// Коды ошибок обработчиков, не порождаемые движком.
const (
	// ErrConfigMissing: не задан обязательный параметр
	ErrConfigMissing = "CONFIG.MISSING"
	// ErrEngineUnavailable: не удалось собрать компоненты обслуживания
	ErrEngineUnavailable = "MAINT.ENGINE_UNAVAILABLE"
)

// CodeOf возвращает код ошибки для результата операции.
func CodeOf(kind maintenance.ErrorKind) string {
	if kind == maintenance.KindNone {
		return apperrors.ErrMaintEngineExecution
	}
	return kind.String()
}

// SeverityOf определяет важность алерта по коду ошибки.
// Отмена даёт предупреждение, остановленные службы дают критичный алерт.
func SeverityOf(code string) alerting.Severity {
	switch code {
	case apperrors.ErrMaintCancelled:
		return alerting.SeverityWarning
	case apperrors.ErrMaintServicesNotResumed:
		return alerting.SeverityCritical
	case ErrConfigMissing:
		return alerting.SeverityWarning
	default:
		return alerting.SeverityCritical
	}
}
