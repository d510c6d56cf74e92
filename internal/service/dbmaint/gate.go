package dbmaint

import (
	"context"
	"fmt"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

// PrivilegeQuery проверяет членство текущего входа в роли sysadmin.
const PrivilegeQuery = "SELECT IS_SRVROLEMEMBER('sysadmin')"

// privilegeTimeout: таймаут проверки прав.
const privilegeTimeout = 15 * time.Second

// PermissionGate проверяет наличие прав sysadmin перед разрушающими операциями.
type PermissionGate struct {
	exec mssql.ScalarExecutor
	log  logging.Logger
}

// NewPermissionGate создаёт PermissionGate.
func NewPermissionGate(exec mssql.ScalarExecutor, log logging.Logger) *PermissionGate {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PermissionGate{exec: exec, log: log}
}

// CheckPrivilege возвращает Ok(true), если текущий вход входит в роль sysadmin, и Ok(false) иначе.
// Недоступность сервера возвращается как Fail с KindPrivilegeCheckUnavailable;
// вызывающая сторона должна блокировать операцию в обоих случаях.
func (g *PermissionGate) CheckPrivilege(ctx context.Context, sqlInstance string) maintenance.OperationResult[bool] {
	n, err := mssql.Int64(ctx, g.exec, sqlInstance, maintenance.MasterDatabase, PrivilegeQuery, privilegeTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return maintenance.FailOf[bool](maintenance.KindCancelled, "Privilege check was cancelled.", ctx.Err())
		}
		g.log.Warn("Не удалось проверить права sysadmin", "instance", sqlInstance, "error", err)
		return maintenance.FailOf[bool](maintenance.KindPrivilegeCheckUnavailable,
			fmt.Sprintf("SQL connection failed: %v", err), err)
	}
	if n != 1 {
		g.log.Warn("Текущий вход не входит в роль sysadmin", "instance", sqlInstance)
		return maintenance.OkWith(false, "Current user is not a SQL sysadmin.")
	}
	g.log.Debug("Права sysadmin подтверждены", "instance", sqlInstance)
	return maintenance.OkWith(true, "Current user is a SQL sysadmin.")
}

// requirePrivilege выполняет проверку и сообщает её ход в rep.
// Возвращает неуспешный результат, если операцию нужно прервать.
func (g *PermissionGate) requirePrivilege(ctx context.Context, sqlInstance, operation string, rep progress.Reporter) maintenance.OperationResult[struct{}] {
	rep.Report("Checking SQL sysadmin permissions...")
	res := g.CheckPrivilege(ctx, sqlInstance)
	switch {
	case res.Cancelled():
		return maintenance.Fail(maintenance.KindCancelled, res.Message, res.Cause)
	case !res.Success:
		msg := fmt.Sprintf("Database %s requires SQL sysadmin permissions. Unable to verify: %s", operation, res.Message)
		rep.Report("[FAIL] " + msg)
		return maintenance.Fail(maintenance.KindPrivilegeCheckUnavailable, msg, res.Cause)
	case !res.Data:
		msg := fmt.Sprintf("Database %s requires SQL sysadmin permissions. Current user is not a SQL sysadmin.", operation)
		rep.Report("[FAIL] " + msg)
		return maintenance.Fail(maintenance.KindNotPrivileged, msg, nil)
	}
	rep.Report("[OK] SQL sysadmin permissions confirmed.")
	return maintenance.Ok("")
}
