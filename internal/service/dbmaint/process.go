package dbmaint

import (
	"context"
	"log/slog"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/util/runner"
)

// Compile-time проверка реализации интерфейса
var _ ProcessRunner = (*ExternalProcess)(nil)

// ExternalProcess запускает процессы через runner.Runner.
type ExternalProcess struct {
	// CodePage: кодировка вывода консоли (cp866 для русской Windows)
	CodePage string
	// WorkDir: рабочий каталог процессов
	WorkDir string
	// Logger: лог запуска; nil означает slog.Default()
	Logger *slog.Logger
}

// Run запускает executable и передаёт его вывод в sink построчно.
func (p *ExternalProcess) Run(ctx context.Context, executable string, args []string, sink progress.Reporter) (runner.Result, error) {
	l := p.Logger
	if l == nil {
		l = slog.Default()
	}
	r := &runner.Runner{
		RunString: executable,
		Params:    append([]string(nil), args...),
		WorkDir:   p.WorkDir,
		CodePage:  p.CodePage,
	}
	return r.RunCommand(ctx, l, reporterOrNoop(sink))
}
