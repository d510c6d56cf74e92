// Package progress предоставляет приёмники строк прогресса долгих операций обслуживания.
// Оркестраторы сообщают о ходе работы строками вида "[OK] ...", "[WARN] ...", "[Step 1/1] ...";
// приёмники выводят их в консоль, в лог, в JSON-поток или в файл протокола.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Теги строк прогресса.
const (
	TagOK   = "[OK]"
	TagWarn = "[WARN]"
	TagFail = "[FAIL]"
	TagErr  = "[ERR]"
	TagStep = "[Step "
)

// Reporter принимает строки прогресса.
// Строки одной операции передаются последовательно и в порядке выполнения этапов.
type Reporter interface {
	Report(line string)
}

// ReporterFunc адаптирует функцию к интерфейсу Reporter.
type ReporterFunc func(line string)

// Report вызывает f(line).
func (f ReporterFunc) Report(line string) { f(line) }

// Level: уровень строки, определяемый по её тегу.
type Level int

// Уровни строк прогресса.
const (
	LevelInfo Level = iota
	LevelOK
	LevelWarn
	LevelFail
	LevelStep
)

// Classify определяет уровень строки по тегу в её начале.
func Classify(line string) Level {
	s := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(s, TagOK):
		return LevelOK
	case strings.HasPrefix(s, TagWarn):
		return LevelWarn
	case strings.HasPrefix(s, TagFail), strings.HasPrefix(s, TagErr):
		return LevelFail
	case strings.HasPrefix(s, TagStep):
		if strings.Contains(s, "... failed (") {
			return LevelFail
		}
		return LevelStep
	default:
		return LevelInfo
	}
}

// IsTTY проверяет, является ли writer терминалом.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// FormatDuration форматирует duration в читаемый вид (1h 7m 30s, 5m 30s, 45s).
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	if d < 0 {
		return "0s"
	}

	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	if d >= time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		seconds := int(d.Seconds()) % 60

		if minutes == 0 && seconds == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		if seconds == 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		if minutes == 0 {
			return fmt.Sprintf("%dh %ds", hours, seconds)
		}
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
