package dbbackuphandler

import (
	"fmt"
	"path/filepath"

	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// buildPlan строит план резервного копирования без обращения к серверу.
func buildPlan(req maintenance.BackupRequest) *output.DryRunPlan {
	database := req.Database
	if database == "" {
		database = maintenance.DefaultDatabase
	}
	timeout := "без ограничения"
	if req.CommandTimeout > 0 {
		timeout = req.CommandTimeout.String()
	}

	steps := []output.PlanStep{
		{
			Operation: "Проверка прав sysadmin",
			Parameters: map[string]any{
				"sql_instance": req.SQLInstance,
				"query":        dbmaint.PrivilegeQuery,
			},
		},
		{
			Operation: "Оценка размера копии и свободного места",
			Parameters: map[string]any{
				"query":      dbmaint.SizeQuery(database),
				"backup_dir": filepath.Dir(req.BackupPath),
				"size_ratio": maintenance.BackupSizeRatio,
			},
		},
		{
			Operation: "Резервное копирование",
			Parameters: map[string]any{
				"statement": dbmaint.BackupStatement(database, req.BackupPath),
				"timeout":   timeout,
			},
			ExpectedChanges: []string{
				fmt.Sprintf("Файл %s будет создан или перезаписан", req.BackupPath),
			},
		},
	}
	return dryrun.BuildPlanWithSummary(constants.ActNRDbBackup, steps,
		fmt.Sprintf("Копия базы %s на %s в %s", database, req.SQLInstance, req.BackupPath))
}
