package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Kargones/wsus-dbmaint/internal/util/runner"
)

// Допустимые значения WSUS_SQL_ENCRYPT (режимы go-mssqldb).
var validEncryptModes = map[string]bool{
	"disable": true,
	"false":   true,
	"true":    true,
	"strict":  true,
}

// MaintenanceConfig содержит параметры обслуживания базы WSUS.
// Невалидная конфигурация обслуживания фатальна: команды без неё не выполняются.
type MaintenanceConfig struct {
	// SQLInstance: экземпляр SQL Server: host, host\INSTANCE или host,port
	SQLInstance string `yaml:"sqlInstance" env:"WSUS_SQL_INSTANCE" env-default:"localhost\\SQLEXPRESS" env-description:"Экземпляр SQL Server"`

	// Database: база WSUS
	Database string `yaml:"database" env:"WSUS_DATABASE" env-default:"SUSDB" env-description:"Имя базы WSUS"`

	// SQLUser: SQL-пользователь, пустое значение включает интегрированную аутентификацию
	SQLUser string `yaml:"sqlUser" env:"WSUS_SQL_USER" env-description:"SQL-пользователь (пусто - Windows-аутентификация)"`

	// SQLPassword: пароль SQL-пользователя
	SQLPassword string `yaml:"sqlPassword" env:"WSUS_SQL_PASSWORD" env-description:"Пароль SQL-пользователя"`

	// SQLEncrypt: режим шифрования соединения: disable, false, true, strict
	SQLEncrypt string `yaml:"sqlEncrypt" env:"WSUS_SQL_ENCRYPT" env-default:"disable" env-description:"Шифрование соединения (disable, false, true, strict)"`

	// BackupPath: файл или каталог резервной копии
	BackupPath string `yaml:"backupPath" env:"WSUS_BACKUP_PATH" env-description:"Файл или каталог резервной копии"`

	// ContentPath: каталог содержимого WSUS для postinstall
	ContentPath string `yaml:"contentPath" env:"WSUS_CONTENT_PATH" env-default:"C:\\WSUS" env-description:"Каталог содержимого WSUS"`

	// WsusUtilPath: путь к wsusutil.exe
	WsusUtilPath string `yaml:"wsusUtilPath" env:"WSUS_WSUSUTIL_PATH" env-default:"C:\\Program Files\\Update Services\\Tools\\wsusutil.exe" env-description:"Путь к wsusutil.exe"`

	// DistributionService: служба WSUS, останавливается первой
	DistributionService string `yaml:"distributionService" env:"WSUS_DISTRIBUTION_SERVICE" env-default:"WsusService" env-description:"Служба WSUS"`

	// WebService: веб-сервер IIS, останавливается второй
	WebService string `yaml:"webService" env:"WSUS_WEB_SERVICE" env-default:"W3SVC" env-description:"Служба IIS"`

	// ServiceStartAttempts: число попыток запуска службы
	ServiceStartAttempts int `yaml:"serviceStartAttempts" env:"WSUS_SERVICE_START_ATTEMPTS" env-default:"3" env-description:"Попыток запуска службы"`

	// ServiceRetryDelay: пауза между попытками запуска
	ServiceRetryDelay time.Duration `yaml:"serviceRetryDelay" env:"WSUS_SERVICE_RETRY_DELAY" env-default:"5s" env-description:"Пауза между попытками запуска службы"`

	// ServiceWaitTimeout: ожидание целевого состояния службы
	ServiceWaitTimeout time.Duration `yaml:"serviceWaitTimeout" env:"WSUS_SERVICE_WAIT_TIMEOUT" env-default:"30s" env-description:"Ожидание состояния службы"`

	// SizeQueryTimeout: таймаут запроса размера базы
	SizeQueryTimeout time.Duration `yaml:"sizeQueryTimeout" env:"WSUS_SIZE_QUERY_TIMEOUT" env-default:"10s" env-description:"Таймаут запроса размера базы"`

	// AccessModeTimeout: таймаут SINGLE_USER / MULTI_USER
	AccessModeTimeout time.Duration `yaml:"accessModeTimeout" env:"WSUS_ACCESS_MODE_TIMEOUT" env-default:"30s" env-description:"Таймаут смены режима доступа"`

	// CommandTimeout: таймаут BACKUP/RESTORE, 0 снимает ограничение
	CommandTimeout time.Duration `yaml:"commandTimeout" env:"WSUS_COMMAND_TIMEOUT" env-default:"0s" env-description:"Таймаут BACKUP/RESTORE (0 - без ограничения)"`

	// CleanupBuiltIn: разрешена встроенная очистка через PowerShell.
	// Умолчание true задаётся getDefaultMaintenanceConfig: env-default для bool
	// перезаписал бы явное false из YAML.
	CleanupBuiltIn bool `yaml:"cleanupBuiltIn" env:"WSUS_CLEANUP_BUILTIN" env-description:"Встроенная очистка WSUS (по умолчанию true)"`

	// CleanupLegacyFallback: разрешены SQL-шаги, если встроенная очистка отключена
	CleanupLegacyFallback bool `yaml:"cleanupLegacyFallback" env:"WSUS_CLEANUP_LEGACY_FALLBACK" env-description:"SQL-очистка при отключённой встроенной"`

	// PowerShellPath: исполняемый файл PowerShell
	PowerShellPath string `yaml:"powershellPath" env:"WSUS_POWERSHELL_PATH" env-default:"powershell.exe" env-description:"Путь к PowerShell"`

	// WsusPort: порт сервера WSUS для Get-WsusServer
	WsusPort int `yaml:"wsusPort" env:"WSUS_WSUS_PORT" env-default:"8530" env-description:"Порт WSUS (8530, 8531 для SSL)"`

	// ShrinkAttempts: попыток DBCC SHRINKDATABASE в SQL-очистке
	ShrinkAttempts int `yaml:"shrinkAttempts" env:"WSUS_SHRINK_ATTEMPTS" env-default:"3" env-description:"Попыток сжатия базы"`

	// ShrinkRetryDelay: пауза между попытками сжатия
	ShrinkRetryDelay time.Duration `yaml:"shrinkRetryDelay" env:"WSUS_SHRINK_RETRY_DELAY" env-default:"30s" env-description:"Пауза между попытками сжатия"`

	// TranscriptDir: каталог журналов операций, при пустом значении журналы не ведутся
	TranscriptDir string `yaml:"transcriptDir" env:"WSUS_TRANSCRIPT_DIR" env-description:"Каталог журналов операций"`

	// ConsoleCodePage: кодировка вывода внешних процессов
	ConsoleCodePage string `yaml:"consoleCodePage" env:"WSUS_CONSOLE_CODEPAGE" env-default:"cp866" env-description:"Кодовая страница консоли"`
}

// getDefaultMaintenanceConfig возвращает настройки стандартной установки WSUS.
func getDefaultMaintenanceConfig() *MaintenanceConfig {
	return &MaintenanceConfig{
		SQLInstance:          `localhost\SQLEXPRESS`,
		Database:             "SUSDB",
		SQLEncrypt:           "disable",
		ContentPath:          `C:\WSUS`,
		WsusUtilPath:         `C:\Program Files\Update Services\Tools\wsusutil.exe`,
		DistributionService:  "WsusService",
		WebService:           "W3SVC",
		ServiceStartAttempts: 3,
		ServiceRetryDelay:    5 * time.Second,
		ServiceWaitTimeout:   30 * time.Second,
		SizeQueryTimeout:     10 * time.Second,
		AccessModeTimeout:    30 * time.Second,
		CommandTimeout:       0,
		CleanupBuiltIn:       true,
		PowerShellPath:       "powershell.exe",
		WsusPort:             8530,
		ShrinkAttempts:       3,
		ShrinkRetryDelay:     30 * time.Second,
		ConsoleCodePage:      "cp866",
	}
}

// Validate проверяет параметры обслуживания. Все ошибки собираются в одну.
func (m *MaintenanceConfig) Validate() error {
	var errs *multierror.Error
	if strings.TrimSpace(m.SQLInstance) == "" {
		errs = multierror.Append(errs, errors.New("maintenance: sqlInstance обязателен"))
	}
	if strings.TrimSpace(m.Database) == "" {
		errs = multierror.Append(errs, errors.New("maintenance: database обязателен"))
	}
	if m.SQLPassword != "" && m.SQLUser == "" {
		errs = multierror.Append(errs, errors.New("maintenance: sqlPassword задан без sqlUser"))
	}
	if !validEncryptModes[strings.ToLower(m.SQLEncrypt)] {
		errs = multierror.Append(errs, fmt.Errorf("maintenance: недопустимый sqlEncrypt %q", m.SQLEncrypt))
	}
	if strings.TrimSpace(m.DistributionService) == "" || strings.TrimSpace(m.WebService) == "" {
		errs = multierror.Append(errs, errors.New("maintenance: имена служб не могут быть пустыми"))
	}
	if strings.EqualFold(m.DistributionService, m.WebService) {
		errs = multierror.Append(errs, fmt.Errorf("maintenance: служба %q указана дважды", m.WebService))
	}
	if m.ServiceStartAttempts < 1 {
		errs = multierror.Append(errs, errors.New("maintenance: serviceStartAttempts должен быть не меньше 1"))
	}
	if m.ShrinkAttempts < 1 {
		errs = multierror.Append(errs, errors.New("maintenance: shrinkAttempts должен быть не меньше 1"))
	}
	if m.ServiceRetryDelay < 0 || m.ServiceWaitTimeout <= 0 || m.SizeQueryTimeout <= 0 ||
		m.AccessModeTimeout <= 0 || m.CommandTimeout < 0 || m.ShrinkRetryDelay < 0 {
		errs = multierror.Append(errs, errors.New("maintenance: таймауты не могут быть отрицательными, таймауты ожидания должны быть положительными"))
	}
	if m.WsusPort < 1 || m.WsusPort > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("maintenance: недопустимый wsusPort %d", m.WsusPort))
	}
	if m.CleanupBuiltIn && strings.TrimSpace(m.PowerShellPath) == "" {
		errs = multierror.Append(errs, errors.New("maintenance: powershellPath обязателен для встроенной очистки"))
	}
	if !runner.SupportedCodePage(m.ConsoleCodePage) {
		errs = multierror.Append(errs, fmt.Errorf("maintenance: неподдерживаемая кодовая страница %q", m.ConsoleCodePage))
	}
	return errs.ErrorOrNil()
}

// Services возвращает службы в порядке остановки: сначала WSUS, затем IIS.
func (m *MaintenanceConfig) Services() []string {
	return []string{m.DistributionService, m.WebService}
}
