package progress

import "sync"

// Multi рассылает каждую строку всем приёмникам по порядку.
type Multi []Reporter

// NewMulti собирает приёмники, пропуская nil.
func NewMulti(reporters ...Reporter) Multi {
	m := make(Multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

// Report передаёт строку каждому приёмнику.
func (m Multi) Report(line string) {
	for _, r := range m {
		r.Report(line)
	}
}

// Noop: приёмник, отбрасывающий строки.
type Noop struct{}

// Report ничего не делает.
func (Noop) Report(string) {}

// Recorder накапливает строки. Безопасен для конкурентного использования.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report сохраняет строку.
func (r *Recorder) Report(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines возвращает копию накопленных строк.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
