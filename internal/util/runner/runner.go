// Package runner предоставляет функциональность для выполнения внешних команд
// с построчной трансляцией вывода в приёмник прогресса.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxConsoleOut = 2048

// StderrPrefix: префикс строк стандартного потока ошибок в прогрессе.
const StderrPrefix = "[ERR] "

// waitDelay: время ожидания закрытия каналов вывода после завершения процесса.
const waitDelay = 5 * time.Second

// LineSink принимает строки вывода процесса.
type LineSink interface {
	Report(line string)
}

// Result: итог выполнения процесса.
type Result struct {
	// ExitCode: код завершения; 0 означает успех
	ExitCode int
	// Duration: длительность выполнения
	Duration time.Duration
}

// Success сообщает, завершился ли процесс с кодом 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner структура для выполнения команд и управления их параметрами
type Runner struct {
	RunString string
	Params    []string
	WorkDir   string
	// Env: дополнительные переменные окружения в формате KEY=VALUE
	Env []string
	// CodePage: кодировка вывода консоли (cp866, cp1251, cp1252, utf-16le, utf-8)
	CodePage string
	// ConsoleOut: объединённый вывод последнего запуска
	ConsoleOut []byte
}

// ClearParams очищает все параметры команды.
func (r *Runner) ClearParams() {
	r.Params = []string{}
}

// validateParams проверяет корректность исполняемого файла и параметров.
func (r *Runner) validateParams() error {
	if r.RunString == "" {
		return errors.New("executable path is empty")
	}
	if filepath.IsAbs(r.RunString) && !exists(r.RunString) {
		return fmt.Errorf("executable not found: %s", r.RunString)
	}
	// Параметры уходят процессу как argv без оболочки, метасимволы допустимы.
	for _, param := range r.Params {
		if strings.ContainsRune(param, 0) {
			return fmt.Errorf("parameter contains NUL byte: %q", param)
		}
	}
	return nil
}

// RunCommand запускает процесс и транслирует его вывод в sink построчно.
// Строки stderr получают префикс "[ERR] ". Вызовы sink сериализуются.
//
// Ненулевой код завершения возвращается в Result без ошибки.
// Ошибка возвращается, если процесс не удалось запустить или ctx был отменён;
// во втором случае процесс завершается принудительно, а ошибка оборачивает ctx.Err().
func (r *Runner) RunCommand(ctx context.Context, l *slog.Logger, sink LineSink) (Result, error) {
	l.Info("Параметры запуска",
		slog.String("Исполняемый файл", r.RunString),
		slog.String("WorkDir", r.WorkDir),
		slog.String("Параметры", fmt.Sprint(maskParams(r.Params))),
	)

	if err := r.validateParams(); err != nil {
		return Result{ExitCode: -1}, err
	}

	dec, err := decoderFor(r.CodePage)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	// #nosec G204 - parameters are validated above
	cmd := exec.CommandContext(ctx, r.RunString, r.Params...)
	cmd.Dir = r.WorkDir
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = appendEnviron(r.Env...)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	c := &collector{sink: sink}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.pump(dec(stdoutR), "")
	}()
	go func() {
		defer wg.Done()
		c.pump(dec(stderrR), StderrPrefix)
	}()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		wg.Wait()
		l.Error("Runner",
			slog.String("Ошибка при запуске", err.Error()),
			slog.String("Исполняемый файл", r.RunString),
		)
		return Result{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", r.RunString, err)
	}

	waitErr := cmd.Wait()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	wg.Wait()

	res := Result{ExitCode: 0, Duration: time.Since(start)}
	r.ConsoleOut = c.bytes()

	if ctx.Err() != nil {
		res.ExitCode = -1
		l.Warn("Runner",
			slog.String("Процесс прерван", ctx.Err().Error()),
			slog.String("Исполняемый файл", r.RunString),
		)
		return res, fmt.Errorf("process %s cancelled: %w", filepath.Base(r.RunString), ctx.Err())
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{ExitCode: -1, Duration: res.Duration}, fmt.Errorf("failed to wait for %s: %w", r.RunString, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
		l.Error("Runner",
			slog.String("Исполняемый файл", r.RunString),
			slog.Int("Код завершения", res.ExitCode),
			slog.String("Вывод консоли", TrimOut(r.ConsoleOut)),
		)
	}
	l.Debug("Runner",
		slog.String("Вывод консоли", TrimOut(r.ConsoleOut)),
	)

	r.Params = []string{}
	return res, nil
}

// collector транслирует строки в sink и накапливает общий вывод.
type collector struct {
	mu   sync.Mutex
	sink LineSink
	out  []byte
}

func (c *collector) pump(rd io.Reader, prefix string) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.emit(prefix + line)
	}
	// слишком длинная строка останавливает сканер; дочитываем, чтобы не блокировать процесс
	_, _ = io.Copy(io.Discard, rd)
}

func (c *collector) emit(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, line...)
	c.out = append(c.out, '\n')
	if c.sink != nil {
		c.sink.Report(line)
	}
}

func (c *collector) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

func appendEnviron(kv ...string) []string {
	env := os.Environ()
	for _, newVar := range kv {
		eqIndex := strings.Index(newVar, "=")
		if eqIndex == -1 {
			continue
		}
		key := newVar[:eqIndex]
		found := false
		for i, v := range env {
			if strings.HasPrefix(v, key+"=") {
				env[i] = newVar
				found = true
				break
			}
		}
		if !found {
			env = append(env, newVar)
		}
	}
	return env
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// TrimOut обрезает вывод команды.
func TrimOut(b []byte) string {
	if len(b) < maxConsoleOut {
		return string(b)
	}
	return string(b[:1020]) + "\n********\n" + string(b[len(b)-1020:])
}

// maskParams скрывает закодированные команды PowerShell в логах.
func maskParams(params []string) []string {
	out := make([]string, len(params))
	copy(out, params)
	for i := 1; i < len(out); i++ {
		if strings.EqualFold(out[i-1], "-EncodedCommand") && len(out[i]) > 16 {
			out[i] = out[i][:16] + "..."
		}
	}
	return out
}
