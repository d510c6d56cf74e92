package logging

import "log/slog"

// Compile-time проверка реализации интерфейса
var _ Logger = (*SlogAdapter)(nil)

// SlogAdapter реализует Logger поверх slog.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter оборачивает logger. nil заменяется slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug записывает сообщение уровня DEBUG.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info записывает сообщение уровня INFO.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn записывает сообщение уровня WARN.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error записывает сообщение уровня ERROR.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With возвращает Logger с добавленными атрибутами.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// Slog возвращает исходный *slog.Logger. Нужен компонентам, принимающим slog напрямую
// (запуск процессов, приёмник прогресса).
func (s *SlogAdapter) Slog() *slog.Logger {
	return s.logger
}

// SlogOf возвращает *slog.Logger для l. Для реализаций без slog возвращается
// логгер, отбрасывающий записи.
func SlogOf(l Logger) *slog.Logger {
	if a, ok := l.(*SlogAdapter); ok {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}
