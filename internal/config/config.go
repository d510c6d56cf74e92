// Package config загружает настройки wsus-dbmaint из переменных окружения WSUS_*
// и необязательного YAML-файла. Переменные окружения имеют приоритет над файлом.
package config

import (
	"log/slog"
)

// InputParams: параметры запуска, задаваемые только переменными окружения.
type InputParams struct {
	// Command: имя выполняемой команды
	Command string `env:"WSUS_COMMAND" env-description:"Команда: nr-db-backup, nr-db-verify, nr-db-restore, nr-db-cleanup, help, version"`

	// OutputFormat: формат результата: text или json
	OutputFormat string `env:"WSUS_OUTPUT_FORMAT" env-default:"text" env-description:"Формат результата (text, json)"`

	// Progress: режим вывода прогресса: auto, plain, color, none
	Progress string `env:"WSUS_PROGRESS" env-default:"auto" env-description:"Вывод прогресса (auto, plain, color, none)"`

	// ConfigFile: путь к YAML-файлу настроек; отсутствие файла не является ошибкой
	ConfigFile string `env:"WSUS_CONFIG_FILE" env-default:"wsus-dbmaint.yaml" env-description:"Путь к YAML-файлу настроек"`
}

// Config содержит все настройки запуска.
type Config struct {
	// Command: имя выполняемой команды
	Command string
	// OutputFormat: формат результата: text или json
	OutputFormat string
	// Progress: режим вывода прогресса
	Progress string
	// ConfigFile: путь к YAML-файлу настроек
	ConfigFile string
	// FileLoaded: был ли прочитан YAML-файл
	FileLoaded bool

	Maintenance *MaintenanceConfig
	Logging     *LoggingConfig
	Metrics     *MetricsConfig
	Tracing     *TracingConfig
	Alerting    *AlertingConfig

	// Logger: логгер этапа загрузки конфигурации
	Logger *slog.Logger
}

// FileConfig: структура YAML-файла настроек.
//
//	maintenance:
//	  sqlInstance: WSUS01\SQLEXPRESS
//	  backupPath: D:\Backup
//	logging:
//	  level: debug
//	alerting:
//	  enabled: true
//	  webhook:
//	    enabled: true
//	    urls: ["https://hooks.example.com/wsus"]
type FileConfig struct {
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Alerting    AlertingConfig    `yaml:"alerting"`
}

// getDefaultFileConfig возвращает FileConfig, заполненный значениями по умолчанию.
// YAML декодируется поверх него, поэтому отсутствующие в файле ключи сохраняют умолчания.
func getDefaultFileConfig() *FileConfig {
	return &FileConfig{
		Maintenance: *getDefaultMaintenanceConfig(),
		Logging:     *getDefaultLoggingConfig(),
		Metrics:     *getDefaultMetricsConfig(),
		Tracing:     *getDefaultTracingConfig(),
		Alerting:    *getDefaultAlertingConfig(),
	}
}
