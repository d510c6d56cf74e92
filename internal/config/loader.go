package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/apperrors"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// GetInputParams читает параметры запуска из переменных окружения.
func GetInputParams() (*InputParams, error) {
	var p InputParams
	if err := cleanenv.ReadEnv(&p); err != nil {
		return nil, fmt.Errorf("%s: не удалось прочитать переменные окружения: %w", apperrors.ErrConfigParse, err)
	}
	p.OutputFormat = strings.ToLower(strings.TrimSpace(p.OutputFormat))
	p.Progress = strings.ToLower(strings.TrimSpace(p.Progress))
	return &p, nil
}

// MustLoad загружает конфигурацию из YAML-файла и переменных окружения.
//
// Порядок: умолчания, затем YAML-файл (WSUS_CONFIG_FILE, отсутствие файла допустимо),
// затем переменные окружения WSUS_*. Ошибка в настройках обслуживания фатальна.
// Невалидные metrics, tracing и alerting отключаются с предупреждением,
// невалидное логирование заменяется значениями по умолчанию.
func MustLoad() (*Config, error) {
	params, err := GetInputParams()
	if err != nil {
		return nil, err
	}

	l := getSlog(os.Getenv("WSUS_LOG_LEVEL"))
	cfg := &Config{
		Command:      params.Command,
		OutputFormat: params.OutputFormat,
		Progress:     params.Progress,
		ConfigFile:   params.ConfigFile,
		Logger:       l,
	}

	file, loaded, err := loadFileConfig(l, params.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.FileLoaded = loaded

	// Настройки обслуживания
	cfg.Maintenance = &file.Maintenance
	if err = cleanenv.ReadEnv(cfg.Maintenance); err != nil {
		return nil, fmt.Errorf("%s: maintenance: %w", apperrors.ErrConfigParse, err)
	}
	if err = cfg.Maintenance.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", apperrors.ErrConfigValidate, err)
	}
	l.Debug("Maintenance конфигурация загружена",
		slog.String("sql_instance", cfg.Maintenance.SQLInstance),
		slog.String("database", cfg.Maintenance.Database),
		slog.Bool("integrated_auth", cfg.Maintenance.SQLUser == ""),
	)

	// Логирование
	cfg.Logging = &file.Logging
	readSectionEnv(l, "Logging", cfg.Logging)
	if valErr := validateLoggingConfig(cfg.Logging); valErr != nil {
		l.Warn("невалидная конфигурация логирования, используются значения по умолчанию",
			slog.String("error", valErr.Error()),
		)
		cfg.Logging = getDefaultLoggingConfig()
	}

	// Метрики
	cfg.Metrics = &file.Metrics
	readSectionEnv(l, "Metrics", cfg.Metrics)
	if cfg.Metrics.Enabled {
		if valErr := validateMetricsConfig(cfg.Metrics); valErr != nil {
			l.Warn("невалидная конфигурация метрик, метрики отключены",
				slog.String("error", valErr.Error()),
				slog.String("reason", "validation_failed"),
			)
			cfg.Metrics = getDefaultMetricsConfig()
		}
	}

	// Трейсинг
	cfg.Tracing = &file.Tracing
	readSectionEnv(l, "Tracing", cfg.Tracing)
	if cfg.Tracing.Enabled {
		if valErr := validateTracingConfig(cfg.Tracing); valErr != nil {
			l.Warn("невалидная конфигурация трейсинга, трейсинг отключён",
				slog.String("error", valErr.Error()),
				slog.String("reason", "validation_failed"),
			)
			cfg.Tracing = getDefaultTracingConfig()
		}
	}

	// Алертинг
	cfg.Alerting = &file.Alerting
	readSectionEnv(l, "Alerting", cfg.Alerting)
	if cfg.Alerting.Enabled {
		if valErr := validateAlertingConfig(cfg.Alerting); valErr != nil {
			l.Warn("невалидная конфигурация алертинга, алертинг отключён",
				slog.String("error", valErr.Error()),
				slog.String("reason", "validation_failed"),
			)
			cfg.Alerting = getDefaultAlertingConfig()
		}
	}

	return cfg, nil
}

// readSectionEnv применяет переменные окружения поверх секции.
// Ошибка разбора не фатальна: секция остаётся со значениями из файла.
func readSectionEnv(l *slog.Logger, name string, section any) {
	if err := cleanenv.ReadEnv(section); err != nil {
		l.Warn("Ошибка загрузки "+name+" конфигурации из переменных окружения",
			slog.String("error", err.Error()),
		)
	}
}

// loadFileConfig читает YAML-файл поверх значений по умолчанию.
// Отсутствующий или пустой файл не ошибка; неизвестные ключи дают ошибку разбора.
func loadFileConfig(l *slog.Logger, path string) (*FileConfig, bool, error) {
	file := getDefaultFileConfig()
	if path == "" {
		return file, false, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		l.Debug("Файл конфигурации не найден, используются переменные окружения",
			slog.String("path", path),
		)
		return file, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %s: %w", apperrors.ErrConfigLoad, path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("%s: %s: %w", apperrors.ErrConfigParse, path, err)
	}

	l.Info("Конфигурация загружена из файла", slog.String("path", path))
	return file, true, nil
}

// getSlog создаёт логгер этапа загрузки конфигурации.
// Пишет в stderr: stdout занят результатом команды.
func getSlog(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	if logLevel != "" && logging.IsValidLevel(logLevel) {
		level = logging.ParseLevel(logLevel)
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return l.With(slog.Group("app",
		slog.String("name", constants.AppName),
		slog.String("version", constants.Version),
	))
}

// EnvDescription возвращает справку по переменным окружения для команды help.
func EnvDescription() (string, error) {
	var sb strings.Builder
	sections := []any{&InputParams{}, getDefaultMaintenanceConfig(), getDefaultLoggingConfig()}
	for _, s := range sections {
		text, err := cleanenv.GetDescription(s, nil)
		if err != nil {
			return "", fmt.Errorf("%s: %w", apperrors.ErrConfigParse, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
