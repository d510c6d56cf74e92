package progress

import (
	"log/slog"
)

// SlogSink дублирует строки прогресса в структурированный лог.
// [WARN] пишется уровнем Warn, [FAIL] и [ERR] уровнем Error, остальное Info.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink создаёт приёмник поверх logger. nil означает slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{log: logger}
}

// Report записывает строку в лог.
func (s *SlogSink) Report(line string) {
	switch Classify(line) {
	case LevelWarn:
		s.log.Warn("Прогресс", slog.String("line", line))
	case LevelFail:
		s.log.Error("Прогресс", slog.String("line", line))
	default:
		s.log.Info("Прогресс", slog.String("line", line))
	}
}
