// Package output форматирует результаты команд в JSON и текст.
package output

// StatusSuccess и StatusError: возможные значения поля Status в Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result: структурированный результат выполнения команды.
// Формат вывода выбирается через WSUS_OUTPUT_FORMAT (json или text).
type Result struct {
	// Status содержит статус выполнения: "success" или "error".
	Status string `json:"status"`

	// Command содержит имя выполненной команды.
	Command string `json:"command"`

	// Data содержит данные конкретной команды.
	Data any `json:"data,omitempty"`

	// Error заполняется только при status="error".
	Error *ErrorInfo `json:"error,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	// DryRun: результат содержит план, команда не выполнялась.
	DryRun bool `json:"dry_run,omitempty"`

	// PlanOnly: результат режима plan-only.
	PlanOnly bool `json:"plan_only,omitempty"`

	Plan *DryRunPlan `json:"plan,omitempty"`

	// Summary выводится блоком в тексте и как metadata.summary в JSON.
	Summary *SummaryInfo `json:"-"`
}

// ErrorInfo описывает ошибку: машиночитаемый код (например, "MAINT.CANCELLED")
// и сообщение. Сообщение не должно содержать секретов.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata содержит метаданные выполнения команды.
type Metadata struct {
	DurationMs int64 `json:"duration_ms"`

	// TraceID связывает результат с логами и трейсами.
	TraceID string `json:"trace_id,omitempty"`

	// APIVersion: версия формата результата.
	APIVersion string `json:"api_version"`

	Summary *SummaryInfo `json:"summary,omitempty"`
}
