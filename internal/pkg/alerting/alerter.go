// Package alerting отправляет алерты о сбоях обслуживания во внешние системы.
// Канал доставки: HTTP webhook. Поверх канала работают правила фильтрации и rate limiting.
package alerting

import (
	"context"
	"time"
)

// Severity определяет уровень критичности алерта.
type Severity int

const (
	// SeverityInfo: информационный алерт.
	SeverityInfo Severity = iota
	// SeverityWarning: предупреждающий алерт.
	SeverityWarning
	// SeverityCritical: критический алерт.
	SeverityCritical
)

// ChannelWebhook: имя webhook канала в правилах фильтрации.
const ChannelWebhook = "webhook"

// String возвращает строковое представление Severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Alert описывает сбой команды обслуживания.
type Alert struct {
	// ErrorCode: код ошибки (MAINT.*), ключ rate limiting.
	ErrorCode string

	// Message: человекочитаемое описание сбоя.
	Message string

	// TraceID: идентификатор трассировки для корреляции с логами.
	TraceID string

	// Timestamp: время сбоя.
	Timestamp time.Time

	// Command: команда, завершившаяся ошибкой.
	Command string

	// Instance: экземпляр SQL Server.
	Instance string

	// Database: обслуживаемая база данных.
	Database string

	Severity Severity
}

// Alerter отправляет алерты.
//
// Send всегда возвращает nil: недоступность получателя алертов не должна
// менять итог команды обслуживания. Ошибки доставки только логируются.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}
