package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink печатает строки прогресса, выделяя теги цветом.
type ConsoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	colors map[Level]*color.Color
}

// NewConsoleSink создаёт консольный приёмник.
// При colored=false вывод не содержит escape-последовательностей.
func NewConsoleSink(out io.Writer, colored bool) *ConsoleSink {
	if out == nil {
		out = os.Stderr
	}
	colors := map[Level]*color.Color{
		LevelOK:   color.New(color.FgGreen),
		LevelWarn: color.New(color.FgYellow),
		LevelFail: color.New(color.FgRed, color.Bold),
		LevelStep: color.New(color.FgCyan),
	}
	for _, c := range colors {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &ConsoleSink{out: out, colors: colors}
}

// Report печатает строку.
func (s *ConsoleSink) Report(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.colors[Classify(line)]; ok {
		_, _ = c.Fprintln(s.out, line)
		return
	}
	_, _ = fmt.Fprintln(s.out, line)
}
