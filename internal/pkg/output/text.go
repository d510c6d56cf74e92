package output

import (
	"encoding/json"
	"fmt"
	"io"
)

var _ Writer = (*TextWriter)(nil)

const summaryDivider = "══════════════════════════════════════════════════════"

// TextWriter форматирует Result в человекочитаемый текст.
type TextWriter struct{}

// NewTextWriter создаёт новый TextWriter.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// Write пишет строку статуса, ошибку, данные и блок сводки.
// Для ошибок сводка не выводится.
func (t *TextWriter) Write(w io.Writer, result *Result) error {
	if result == nil {
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s: %s\n", result.Command, result.Status); err != nil {
		return err
	}

	if result.Error != nil {
		if _, err := fmt.Fprintf(w, "Error [%s]: %s\n", result.Error.Code, result.Error.Message); err != nil {
			return err
		}
	}

	if result.Data != nil {
		dataJSON, err := json.MarshalIndent(result.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("не удалось сериализовать Data: %w", err)
		}
		if _, err := fmt.Fprintf(w, "Data: %s\n", dataJSON); err != nil {
			return err
		}
	}

	if result.Status == StatusError {
		return nil
	}
	return t.writeSummary(w, result)
}

func (t *TextWriter) writeSummary(w io.Writer, result *Result) error {
	ew := &errWriter{w: w}
	ew.printf("\n%s\n📊 Сводка\n%s\n", summaryDivider, summaryDivider)

	if result.Metadata != nil && result.Metadata.DurationMs > 0 {
		ew.printf("⏱️  Время выполнения: %s\n", formatDuration(result.Metadata.DurationMs))
	}

	if s := result.Summary; s != nil {
		for _, m := range s.KeyMetrics {
			if m.Unit != "" {
				ew.printf("📈 %s: %s %s\n", m.Name, m.Value, m.Unit)
			} else {
				ew.printf("📈 %s: %s\n", m.Name, m.Value)
			}
		}
		if s.WarningsCount > 0 {
			ew.printf("\n⚠️  Предупреждений: %d\n", s.WarningsCount)
			for _, warn := range s.Warnings {
				ew.printf("   • %s\n", warn)
			}
		}
	}

	ew.printf("%s\n", summaryDivider)
	return ew.err
}

// errWriter запоминает первую ошибку записи и пропускает последующие вызовы.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// formatDuration форматирует миллисекунды: "850мс", "12.5с", "3м 20с".
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dмс", ms)
	}
	sec := ms / 1000
	if sec < 60 {
		return fmt.Sprintf("%.1fс", float64(ms)/1000)
	}
	return fmt.Sprintf("%dм %dс", sec/60, sec%60)
}
