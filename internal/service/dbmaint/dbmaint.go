// Package dbmaint реализует обслуживание базы данных WSUS: проверку прав sysadmin,
// резервное копирование с проверкой целостности, восстановление с остановкой
// зависимых служб и встроенную очистку с замером размера до и после.
//
// Все операции возвращают maintenance.OperationResult; ожидаемые отказы не являются
// ошибками Go. Ход работы передаётся построчно в progress.Reporter.
//
// Компоненты не синхронизируют вызовы между собой: вызывающая сторона обязана
// не запускать параллельно несколько операций над одной базой.
package dbmaint

import (
	"context"
	"strings"
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
	"github.com/Kargones/wsus-dbmaint/internal/util/runner"
)

// Службы, останавливаемые на время восстановления.
const (
	// DefaultDistributionService: служба WSUS
	DefaultDistributionService = "WsusService"
	// DefaultWebService: веб-сервер IIS
	DefaultWebService = "W3SVC"
	// DefaultWsusUtilPath: расположение wsusutil.exe
	DefaultWsusUtilPath = `C:\Program Files\Update Services\Tools\wsusutil.exe`
)

// Значения таймаутов по умолчанию.
const (
	// DefaultSizeQueryTimeout: таймаут запроса размера базы
	DefaultSizeQueryTimeout = 10 * time.Second
	// DefaultAccessModeTimeout: таймаут ALTER DATABASE ... SET SINGLE_USER / MULTI_USER
	DefaultAccessModeTimeout = 30 * time.Second
)

// Options: общие настройки оркестраторов.
type Options struct {
	// Database: имя базы, если в запросе не задано (по умолчанию SUSDB)
	Database string
	// Services: службы в порядке остановки; запуск в обратном порядке
	Services maintenance.ServiceQuiesceSet
	// SizeQueryTimeout: таймаут запроса размера базы
	SizeQueryTimeout time.Duration
	// AccessModeTimeout: таймаут смены режима доступа
	AccessModeTimeout time.Duration
	// WsusUtilPath: путь к wsusutil.exe для postinstall
	WsusUtilPath string
}

// DefaultOptions возвращает настройки для стандартной установки WSUS.
func DefaultOptions() Options {
	return Options{
		Database:          maintenance.DefaultDatabase,
		Services:          maintenance.ServiceQuiesceSet{DefaultDistributionService, DefaultWebService},
		SizeQueryTimeout:  DefaultSizeQueryTimeout,
		AccessModeTimeout: DefaultAccessModeTimeout,
		WsusUtilPath:      DefaultWsusUtilPath,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Database == "" {
		o.Database = d.Database
	}
	if len(o.Services) == 0 {
		o.Services = d.Services
	}
	if o.SizeQueryTimeout <= 0 {
		o.SizeQueryTimeout = d.SizeQueryTimeout
	}
	if o.AccessModeTimeout <= 0 {
		o.AccessModeTimeout = d.AccessModeTimeout
	}
	if o.WsusUtilPath == "" {
		o.WsusUtilPath = d.WsusUtilPath
	}
	return o
}

func (o Options) database(requested string) string {
	if requested != "" {
		return requested
	}
	return o.Database
}

// ProcessRunner: возможность запуска внешних процессов.
// Строки вывода передаются в sink; ненулевой код завершения не является ошибкой.
type ProcessRunner interface {
	Run(ctx context.Context, executable string, args []string, sink progress.Reporter) (runner.Result, error)
}

// reporterOrNoop защищает от nil-приёмника.
func reporterOrNoop(r progress.Reporter) progress.Reporter {
	if r == nil {
		return progress.Noop{}
	}
	return r
}

// serviceLabels: подписи службы в строках прогресса.
type serviceLabels struct {
	// display: в строках "Stopping ...", "Restarting ..."
	display string
	// short: в строках "[OK] ... stopped."
	short string
}

func labelsFor(name string) serviceLabels {
	switch strings.ToUpper(name) {
	case strings.ToUpper(DefaultDistributionService):
		return serviceLabels{display: "WSUS service", short: "WSUS service"}
	case strings.ToUpper(DefaultWebService):
		return serviceLabels{display: "IIS (" + name + ")", short: "IIS"}
	default:
		return serviceLabels{display: name, short: name}
	}
}
