package config

import (
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/metrics"
)

// MetricsConfig содержит настройки для Prometheus метрик.
type MetricsConfig struct {
	// Enabled: включены ли метрики (по умолчанию false).
	Enabled bool `yaml:"enabled" env:"WSUS_METRICS_ENABLED" env-description:"Отправка метрик в Pushgateway"`

	// PushgatewayURL: URL Prometheus Pushgateway.
	// Пример: "http://pushgateway:9091"
	PushgatewayURL string `yaml:"pushgatewayUrl" env:"WSUS_METRICS_PUSHGATEWAY_URL" env-description:"URL Prometheus Pushgateway"`

	// JobName: имя job для группировки метрик.
	JobName string `yaml:"jobName" env:"WSUS_METRICS_JOB_NAME" env-default:"wsus-dbmaint"`

	// Timeout: таймаут HTTP запросов к Pushgateway.
	Timeout time.Duration `yaml:"timeout" env:"WSUS_METRICS_TIMEOUT" env-default:"10s"`

	// InstanceLabel: переопределение instance label.
	// Если пусто: используется hostname.
	InstanceLabel string `yaml:"instanceLabel" env:"WSUS_METRICS_INSTANCE"`
}

// getDefaultMetricsConfig возвращает конфигурацию метрик по умолчанию.
// Метрики отключены по умолчанию.
func getDefaultMetricsConfig() *MetricsConfig {
	d := metrics.DefaultConfig()
	return &MetricsConfig{
		Enabled:        d.Enabled,
		PushgatewayURL: d.PushgatewayURL,
		JobName:        d.JobName,
		Timeout:        d.Timeout,
		InstanceLabel:  d.InstanceLabel,
	}
}

// ToMetrics преобразует настройки в metrics.Config.
func (mc *MetricsConfig) ToMetrics() metrics.Config {
	return metrics.Config{
		Enabled:        mc.Enabled,
		PushgatewayURL: mc.PushgatewayURL,
		JobName:        mc.JobName,
		Timeout:        mc.Timeout,
		InstanceLabel:  mc.InstanceLabel,
	}
}

// validateMetricsConfig проверяет обязательные поля при включённых метриках.
func validateMetricsConfig(mc *MetricsConfig) error {
	c := mc.ToMetrics()
	return c.Validate()
}
