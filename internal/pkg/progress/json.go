package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event описывает JSON событие прогресса для streaming вывода.
type Event struct {
	Type      string    `json:"type"`      // всегда "progress"
	Sequence  int       `json:"seq"`       // порядковый номер строки в операции
	Level     string    `json:"level"`     // info, ok, warn, fail, step
	Message   string    `json:"message"`   // строка прогресса
	Timestamp time.Time `json:"timestamp"` // момент получения строки
	Operation string    `json:"operation,omitempty"`
}

var levelNames = map[Level]string{
	LevelInfo: "info",
	LevelOK:   "ok",
	LevelWarn: "warn",
	LevelFail: "fail",
	LevelStep: "step",
}

// JSONSink выводит строки прогресса в формате JSON-lines.
// Используется при WSUS_OUTPUT_FORMAT=json, чтобы не смешивать текст с JSON-результатом.
type JSONSink struct {
	mu        sync.Mutex
	encoder   *json.Encoder
	operation string
	seq       int
	now       func() time.Time
}

// NewJSONSink создаёт JSON-приёмник.
func NewJSONSink(out io.Writer, operation string) *JSONSink {
	if out == nil {
		out = os.Stderr
	}
	return &JSONSink{encoder: json.NewEncoder(out), operation: operation, now: time.Now}
}

// Report кодирует строку в событие.
func (s *JSONSink) Report(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event := Event{
		Type:      "progress",
		Sequence:  s.seq,
		Level:     levelNames[Classify(line)],
		Message:   line,
		Timestamp: s.now().UTC(),
		Operation: s.operation,
	}
	if err := s.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "progress: encode error: %v\n", err) //nolint:errcheck // writing to stderr
	}
}
