// Package logging определяет интерфейс структурированного логирования и его реализации поверх slog.
package logging

// Logger: структурированный логгер.
//
//	log.Info("Резервное копирование завершено", "database", "SUSDB", "duration", "42s")
//
// Логгер пишет только в stderr или файл. stdout занят результатом команды.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With возвращает Logger, добавляющий атрибуты ко всем записям.
	With(args ...any) Logger
}
