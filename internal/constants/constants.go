// Package constants содержит имена команд, переменных окружения и сообщения wsus-dbmaint.
package constants

// Сообщения приложения.
const (
	// MsgAppExit: завершение работы после ошибки
	MsgAppExit = "Завершение работы программы"
	// MsgErrProcessing: ключ атрибута лога при обработке ошибки
	MsgErrProcessing = "Обработка ошибки"
)

// Имена команд.
const (
	// ActNRDbBackup: резервное копирование базы WSUS
	ActNRDbBackup = "nr-db-backup"
	// ActNRDbVerify: проверка файла резервной копии
	ActNRDbVerify = "nr-db-verify"
	// ActNRDbRestore: восстановление базы из копии
	ActNRDbRestore = "nr-db-restore"
	// ActNRDbCleanup: встроенная очистка WSUS
	ActNRDbCleanup = "nr-db-cleanup"
	// ActNRVersion: информация о сборке
	ActNRVersion = "nr-version"
	// ActHelp: список команд
	ActHelp = "help"
)

// Устаревшие имена команд, оставленные для заданий планировщика.
const (
	ActLegacyBackup  = "backup"
	ActLegacyRestore = "restore"
	ActLegacyCleanup = "cleanup"
	ActLegacyVersion = "version"
)

// Переменные окружения режимов выполнения.
const (
	// EnvCommand: выбор команды
	EnvCommand = "WSUS_COMMAND"
	// EnvOutputFormat: формат результата: text или json
	EnvOutputFormat = "WSUS_OUTPUT_FORMAT"
	// EnvDryRun: только план без выполнения
	EnvDryRun = "WSUS_DRY_RUN"
	// EnvPlanOnly: только план, даже для команд без dry-run
	EnvPlanOnly = "WSUS_PLAN_ONLY"
	// EnvVerbose: план перед выполнением
	EnvVerbose = "WSUS_VERBOSE"
	// EnvProgress: режим вывода прогресса: auto, plain, color, none
	EnvProgress = "WSUS_PROGRESS"
	// EnvConfigFile: путь к YAML-конфигурации
	EnvConfigFile = "WSUS_CONFIG_FILE"
)

// APIVersion: версия формата JSON-результата.
const APIVersion = "v1"

// AppName: имя приложения в метриках, трейсах и логах.
const AppName = "wsus-dbmaint"

// Коды завершения процесса.
const (
	ExitOK             = 0
	ExitUnknownCommand = 2
	ExitConfigError    = 5
	ExitCommandFailed  = 8
)

// DefaultConfigFile: YAML-конфигурация в рабочем каталоге.
const DefaultConfigFile = "wsus-dbmaint.yaml"
