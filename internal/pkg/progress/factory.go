package progress

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Режимы вывода прогресса (WSUS_PROGRESS).
const (
	ModeAuto  = "auto"
	ModePlain = "plain"
	ModeColor = "color"
	ModeNone  = "none"
)

// Options конфигурирует консольный приёмник прогресса.
type Options struct {
	// Mode: auto, plain, color или none
	Mode string
	// OutputFormat: формат результата команды (text или json)
	OutputFormat string
	// Output: куда выводить (обычно os.Stderr, чтобы не ломать результат в stdout)
	Output io.Writer
	// Operation: имя операции для JSON-событий
	Operation string
	// Logger: лог для дублирования строк; nil отключает дублирование
	Logger *slog.Logger
}

// New создаёт приёмник прогресса на основе Options.
// Логика выбора:
// 1. Mode=none → Noop
// 2. OutputFormat=json → JSONSink (stderr), в консоль текст не выводится
// 3. Mode=color или auto на терминале → цветной ConsoleSink
// 4. Иначе → ConsoleSink без цвета
// Если задан Logger, строки дополнительно пишутся в лог.
func New(opts Options) Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	var console Reporter
	switch mode := strings.ToLower(opts.Mode); {
	case mode == ModeNone:
		console = nil
	case strings.EqualFold(opts.OutputFormat, "json"):
		console = NewJSONSink(opts.Output, opts.Operation)
	case mode == ModeColor:
		console = NewConsoleSink(opts.Output, true)
	case mode == ModePlain:
		console = NewConsoleSink(opts.Output, false)
	default:
		console = NewConsoleSink(opts.Output, IsTTY(opts.Output))
	}

	var logSink Reporter
	if opts.Logger != nil {
		logSink = NewSlogSink(opts.Logger)
	}

	m := NewMulti(console, logSink)
	if len(m) == 0 {
		return Noop{}
	}
	return m
}
