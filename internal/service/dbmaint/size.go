package dbmaint

import (
	"context"
	"fmt"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/adapter/mssql"
	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// sizeQueryTemplate суммирует файлы данных базы в ГБ (size хранится в страницах по 8 КБ).
const sizeQueryTemplate = "SELECT SUM(size * 8.0 / 1024 / 1024) FROM sys.master_files WHERE database_id = DB_ID(N'%s') AND type = 0"

// SizeQuery возвращает запрос выделенного размера базы.
func SizeQuery(database string) string {
	return fmt.Sprintf(sizeQueryTemplate, maintenance.EscapeSQLLiteral(database))
}

// sizeMeter снимает замеры размера базы. Ошибка замера не прерывает операцию.
type sizeMeter struct {
	exec    mssql.ScalarExecutor
	timeout time.Duration
	log     logging.Logger
	now     func() time.Time
}

// sample возвращает замер или UnknownSizeSample, если сервер недоступен или базы нет.
func (m sizeMeter) sample(ctx context.Context, sqlInstance, database string) maintenance.SizeSample {
	at := m.now()
	gb, err := mssql.Float64(ctx, m.exec, sqlInstance, maintenance.MasterDatabase, SizeQuery(database), m.timeout)
	if err != nil {
		m.log.Warn("Не удалось получить размер базы", "instance", sqlInstance, "database", database, "error", err)
		return maintenance.UnknownSizeSample(at)
	}
	if gb < 0 {
		return maintenance.UnknownSizeSample(at)
	}
	return maintenance.SizeSample{CapturedAt: at, AllocatedGB: gb}
}
