package dbrestorehandler

import (
	"fmt"
	"strings"

	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/output"
	"github.com/Kargones/wsus-dbmaint/internal/service/dbmaint"
)

// buildPlan строит план восстановления без обращения к серверу и службам.
func buildPlan(req maintenance.RestoreRequest, m *config.MaintenanceConfig) *output.DryRunPlan {
	database := req.Database
	if database == "" {
		database = maintenance.DefaultDatabase
	}
	services := maintenance.ServiceQuiesceSet(m.Services())
	postinstall := []string{"postinstall", "SQL_INSTANCE_NAME=" + req.SQLInstance}
	if req.ContentPath != "" {
		postinstall = append(postinstall, "CONTENT_DIR="+req.ContentPath)
	}

	steps := []output.PlanStep{
		{
			Operation:  "Проверка прав sysadmin",
			Parameters: map[string]any{"sql_instance": req.SQLInstance, "query": dbmaint.PrivilegeQuery},
		},
		{
			Operation:  "Проверка наличия файла копии",
			Parameters: map[string]any{"backup_path": req.BackupPath},
		},
		{
			Operation:  "Проверка целостности копии",
			Parameters: map[string]any{"statement": dbmaint.VerifyStatement(req.BackupPath)},
		},
		{
			Operation:       "Остановка служб WSUS",
			Parameters:      map[string]any{"order": strings.Join(services.StopOrder(), ", ")},
			ExpectedChanges: []string{"Службы WSUS будут остановлены до окончания восстановления"},
		},
		{
			Operation:  "Монопольный режим базы",
			Parameters: map[string]any{"statement": dbmaint.AccessModeStatement(database, maintenance.SingleUser)},
		},
		{
			Operation:       "Восстановление базы",
			Parameters:      map[string]any{"statement": dbmaint.RestoreStatement(database, req.BackupPath)},
			ExpectedChanges: []string{fmt.Sprintf("База %s будет заменена содержимым копии", database)},
		},
		{
			Operation:  "Многопользовательский режим базы",
			Parameters: map[string]any{"statement": dbmaint.AccessModeStatement(database, maintenance.MultiUser)},
		},
		{
			Operation: "Согласование с каталогом содержимого",
			Parameters: map[string]any{
				"command":   m.WsusUtilPath,
				"arguments": strings.Join(postinstall, " "),
			},
		},
		{
			Operation:  "Запуск служб WSUS",
			Parameters: map[string]any{"order": strings.Join(services.StartOrder(), ", ")},
		},
	}
	return dryrun.BuildPlanWithSummary(constants.ActNRDbRestore, steps,
		fmt.Sprintf("Восстановление базы %s на %s из %s", database, req.SQLInstance, req.BackupPath))
}
