package config

import (
	"fmt"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// LoggingConfig содержит настройки для логирования.
// Умолчания совпадают с logging.DefaultConfig().
type LoggingConfig struct {
	// Level - уровень логирования (debug, info, warn, error)
	Level string `yaml:"level" env:"WSUS_LOG_LEVEL" env-default:"info" env-description:"Уровень логирования (debug, info, warn, error)"`

	// Format - формат логов (json, text)
	Format string `yaml:"format" env:"WSUS_LOG_FORMAT" env-default:"text" env-description:"Формат логов (json, text)"`

	// Output - вывод логов (stderr, file, tee)
	Output string `yaml:"output" env:"WSUS_LOG_OUTPUT" env-default:"stderr" env-description:"Вывод логов (stderr, file, tee)"`

	// FilePath - путь к файлу логов (если output=file или tee)
	FilePath string `yaml:"filePath" env:"WSUS_LOG_FILE" env-description:"Файл логов"`

	// MaxSize - максимальный размер файла лога в MB
	MaxSize int `yaml:"maxSize" env:"WSUS_LOG_MAX_SIZE" env-default:"50"`

	// MaxBackups - максимальное количество backup файлов
	MaxBackups int `yaml:"maxBackups" env:"WSUS_LOG_MAX_BACKUPS" env-default:"5"`

	// MaxAge - максимальный возраст backup файлов в днях
	MaxAge int `yaml:"maxAge" env:"WSUS_LOG_MAX_AGE" env-default:"30"`

	// Compress - сжимать ли backup файлы.
	// Умолчание true задаётся getDefaultLoggingConfig, чтобы compress: false из YAML не терялся.
	Compress bool `yaml:"compress" env:"WSUS_LOG_COMPRESS"`
}

// getDefaultLoggingConfig возвращает конфигурацию логирования по умолчанию.
func getDefaultLoggingConfig() *LoggingConfig {
	d := logging.DefaultConfig()
	return &LoggingConfig{
		Level:      d.Level,
		Format:     d.Format,
		Output:     d.Output,
		FilePath:   d.FilePath,
		MaxSize:    d.MaxSize,
		MaxBackups: d.MaxBackups,
		MaxAge:     d.MaxAge,
		Compress:   d.Compress,
	}
}

// validateLoggingConfig проверяет уровень, формат и вывод.
func validateLoggingConfig(lc *LoggingConfig) error {
	if !logging.IsValidLevel(lc.Level) {
		return fmt.Errorf("logging: недопустимый уровень %q", lc.Level)
	}
	switch lc.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("logging: недопустимый формат %q", lc.Format)
	}
	switch lc.Output {
	case logging.OutputStderr:
	case logging.OutputFile, logging.OutputTee:
		if lc.FilePath == "" {
			return fmt.Errorf("logging: filePath обязателен при output=%s", lc.Output)
		}
	default:
		return fmt.Errorf("logging: недопустимый вывод %q", lc.Output)
	}
	return nil
}

// ToLogging преобразует настройки в logging.Config.
func (lc *LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Format:     lc.Format,
		Level:      lc.Level,
		Output:     lc.Output,
		FilePath:   lc.FilePath,
		MaxSize:    lc.MaxSize,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge,
		Compress:   lc.Compress,
	}
}
