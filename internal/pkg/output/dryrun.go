package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// DryRunPlan: план операций команды без их выполнения.
type DryRunPlan struct {
	Command          string     `json:"command"`
	Steps            []PlanStep `json:"steps"`
	Summary          string     `json:"summary,omitempty"`
	ValidationPassed bool       `json:"validation_passed"`
}

// PlanStep описывает один шаг плана.
type PlanStep struct {
	Order           int            `json:"order"`
	Operation       string         `json:"operation"`
	Parameters      map[string]any `json:"parameters"`
	ExpectedChanges []string       `json:"expected_changes,omitempty"`
	// Skipped: шаг не будет выполнен (например, CONTENT_DIR не задан).
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// WriteText выводит план под заголовком "=== DRY RUN ===".
func (p *DryRunPlan) WriteText(w io.Writer) error {
	return p.writeText(w, "=== DRY RUN ===", "=== END DRY RUN ===")
}

// WritePlanText выводит план под заголовком "=== OPERATION PLAN ===" (plan-only и verbose).
func (p *DryRunPlan) WritePlanText(w io.Writer) error {
	return p.writeText(w, "=== OPERATION PLAN ===", "=== END OPERATION PLAN ===")
}

func (p *DryRunPlan) writeText(w io.Writer, header, footer string) error {
	ew := &errWriter{w: w}
	ew.printf("\n%s\nКоманда: %s\nВалидация: %s\n\nПлан выполнения:\n", header, p.Command, boolToStatus(p.ValidationPassed))

	for _, step := range p.Steps {
		if step.Skipped {
			ew.printf("  %d. [SKIP] %s: %s\n", step.Order, step.Operation, step.SkipReason)
			continue
		}
		ew.printf("  %d. %s\n", step.Order, step.Operation)

		keys := make([]string, 0, len(step.Parameters))
		for k := range step.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ew.printf("      %s: %s\n", k, sanitizeValue(step.Parameters[k]))
		}

		if len(step.ExpectedChanges) > 0 {
			ew.printf("      Ожидаемые изменения:\n")
			for _, change := range step.ExpectedChanges {
				ew.printf("        - %s\n", change)
			}
		}
	}

	if p.Summary != "" {
		ew.printf("\nИтого: %s\n", p.Summary)
	}
	ew.printf("%s\n", footer)
	return ew.err
}

func boolToStatus(b bool) string {
	if b {
		return "✅ Пройдена"
	}
	return "❌ Не пройдена"
}

// sanitizeValue удаляет ANSI escape-последовательности и управляющие символы,
// переносы строк и табы заменяет пробелами.
func sanitizeValue(v any) string {
	s := fmt.Sprintf("%v", v)
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case r < 32 || r == 127:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
