package output

import (
	"io"
	"time"
)

// WritePlanOnlyResult пишет результат режима plan-only.
func WritePlanOnlyResult(w io.Writer, format, command, traceID, apiVersion string, start time.Time, plan *DryRunPlan) error {
	return writePlanResult(w, format, command, traceID, apiVersion, start, plan, true)
}

// WriteDryRunResult пишет результат режима dry-run.
func WriteDryRunResult(w io.Writer, format, command, traceID, apiVersion string, start time.Time, plan *DryRunPlan) error {
	return writePlanResult(w, format, command, traceID, apiVersion, start, plan, false)
}

func writePlanResult(w io.Writer, format, command, traceID, apiVersion string, start time.Time, plan *DryRunPlan, planOnly bool) error {
	if format != FormatJSON {
		if planOnly {
			return plan.WritePlanText(w)
		}
		return plan.WriteText(w)
	}

	result := &Result{
		Status:   StatusSuccess,
		Command:  command,
		Plan:     plan,
		PlanOnly: planOnly,
		DryRun:   !planOnly,
		Metadata: &Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: apiVersion,
		},
	}
	return NewJSONWriter().Write(w, result)
}
