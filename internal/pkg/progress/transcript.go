package progress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// transcriptTimeLayout: формат метки времени строки протокола.
const transcriptTimeLayout = "2006-01-02 15:04:05"

// ErrTranscriptClosed возвращается при записи в закрытый протокол.
var ErrTranscriptClosed = errors.New("transcript is closed")

// TranscriptSink пишет строки операции в файл протокола <dir>/yyyyMMdd-HHmmss-<operation>.log.
// Каждая строка записывается сразу, без буферизации.
type TranscriptSink struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	id      string
	started time.Time
	now     func() time.Time
	err     error
}

// OpenTranscript создаёт файл протокола и записывает заголовок.
func OpenTranscript(dir, operation, instance string) (*TranscriptSink, error) {
	return openTranscript(dir, operation, instance, time.Now)
}

func openTranscript(dir, operation, instance string, now func() time.Time) (*TranscriptSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory %s: %w", dir, err)
	}
	started := now()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", started.Format("20060102-150405"), operation))
	// #nosec G304 - path is built from the configured transcript directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}
	t := &TranscriptSink{
		file:    f,
		path:    path,
		id:      uuid.NewString(),
		started: started,
		now:     now,
	}
	header := fmt.Sprintf("=== %s | operation id %s | instance %s | started %s ===\n",
		operation, t.id, instance, started.Format(time.RFC3339))
	if _, err := f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write transcript header: %w", err)
	}
	return t, nil
}

// ID возвращает идентификатор операции, записанный в заголовок.
func (t *TranscriptSink) ID() string { return t.id }

// Path возвращает путь к файлу протокола.
func (t *TranscriptSink) Path() string { return t.path }

// Report дописывает строку с меткой времени.
// Ошибка записи запоминается и возвращается из Close; операция при этом не прерывается.
func (t *TranscriptSink) Report(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil || t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.file, "[%s] %s\n", t.now().Format(transcriptTimeLayout), line); err != nil {
		t.err = err
	}
}

// Close записывает итог операции и закрывает файл.
func (t *TranscriptSink) Close(outcome string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return ErrTranscriptClosed
	}
	footer := fmt.Sprintf("=== outcome: %s | duration %s ===\n", outcome, FormatDuration(t.now().Sub(t.started)))
	_, werr := t.file.WriteString(footer)
	cerr := t.file.Close()
	t.file = nil
	return errors.Join(t.err, werr, cerr)
}
