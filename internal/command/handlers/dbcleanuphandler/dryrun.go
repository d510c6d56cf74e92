package dbcleanuphandler

import (
	"fmt"

	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// selectionOf возвращает выбор исполнителя очистки по настройкам.
func selectionOf(m *config.MaintenanceConfig) dbmaint.ExecutorSelection {
	return dbmaint.ExecutorSelection{BuiltIn: m.CleanupBuiltIn, LegacyFallback: m.CleanupLegacyFallback}
}

// buildPlan строит план очистки для выбранного исполнителя.
func buildPlan(m *config.MaintenanceConfig) *output.DryRunPlan {
	database := m.Database
	if database == "" {
		database = maintenance.DefaultDatabase
	}
	executor := selectionOf(m).Name()

	sizeStep := func(op string) output.PlanStep {
		return output.PlanStep{
			Operation:  op,
			Parameters: map[string]any{"query": dbmaint.SizeQuery(database)},
		}
	}

	step := output.PlanStep{
		Operation:  dbmaint.CleanupStepName,
		Parameters: map[string]any{"executor": executor},
	}
	switch executor {
	case dbmaint.ExecutorBuiltIn:
		shell := m.PowerShellPath
		if shell == "" {
			shell = dbmaint.DefaultPowerShellPath
		}
		step.Parameters["command"] = shell
		step.Parameters["script"] = dbmaint.CleanupScript(m.WsusPort)
		step.ExpectedChanges = []string{"Устаревшие обновления и ненужные файлы содержимого будут удалены"}
	case dbmaint.ExecutorLegacy:
		for i, name := range dbmaint.LegacyStepNames() {
			step.Parameters[fmt.Sprintf("step_%d", i+1)] = name
		}
		step.ExpectedChanges = []string{
			"Отклонённые обновления будут удалены",
			fmt.Sprintf("Файлы базы будут сжаты: %s", dbmaint.ShrinkStatement(database)),
		}
	default:
		step.Skipped = true
		step.SkipReason = "встроенная очистка и SQL-шаги отключены (WSUS_CLEANUP_BUILTIN, WSUS_CLEANUP_LEGACY_FALLBACK)"
	}

	steps := []output.PlanStep{sizeStep("Замер размера базы до очистки"), step, sizeStep("Замер размера базы после очистки")}
	return dryrun.BuildPlanWithSummary(constants.ActNRDbCleanup, steps,
		fmt.Sprintf("Очистка WSUS на %s исполнителем %s", m.SQLInstance, executor))
}
