package config

import (
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/tracing"
)

// TracingConfig содержит настройки OpenTelemetry трейсинга.
type TracingConfig struct {
	// Enabled включает отправку трейсов в OTLP бэкенд.
	Enabled bool `yaml:"enabled" env:"WSUS_TRACING_ENABLED" env-description:"Отправка трейсов в OTLP"`

	// Endpoint: URL OTLP HTTP endpoint (например, http://jaeger:4318).
	Endpoint string `yaml:"endpoint" env:"WSUS_TRACING_ENDPOINT" env-description:"OTLP HTTP endpoint"`

	// ServiceName: имя сервиса для resource attributes.
	ServiceName string `yaml:"serviceName" env:"WSUS_TRACING_SERVICE_NAME" env-default:"wsus-dbmaint"`

	// Environment: окружение (production, staging, development).
	Environment string `yaml:"environment" env:"WSUS_TRACING_ENVIRONMENT" env-default:"production"`

	// Insecure: использовать HTTP вместо HTTPS для OTLP endpoint.
	// По умолчанию false: экспорт идёт по HTTPS.
	Insecure bool `yaml:"insecure" env:"WSUS_TRACING_INSECURE"`

	// Timeout: таймаут для экспорта трейсов.
	Timeout time.Duration `yaml:"timeout" env:"WSUS_TRACING_TIMEOUT" env-default:"5s"`

	// SamplingRate: доля сэмплируемых трейсов от 0.0 до 1.0.
	SamplingRate float64 `yaml:"samplingRate" env:"WSUS_TRACING_SAMPLING_RATE" env-default:"1.0"`
}

// getDefaultTracingConfig возвращает конфигурацию трейсинга по умолчанию.
// Трейсинг отключён по умолчанию.
func getDefaultTracingConfig() *TracingConfig {
	d := tracing.DefaultConfig()
	return &TracingConfig{
		Enabled:      false,
		Endpoint:     "",
		ServiceName:  d.ServiceName,
		Environment:  d.Environment,
		Insecure:     d.Insecure,
		Timeout:      d.Timeout,
		SamplingRate: d.SamplingRate,
	}
}

// ToTracing преобразует настройки в tracing.Config.
func (tc *TracingConfig) ToTracing() tracing.Config {
	return tracing.Config{
		Enabled:      tc.Enabled,
		Endpoint:     tc.Endpoint,
		ServiceName:  tc.ServiceName,
		Version:      constants.Version,
		Environment:  tc.Environment,
		Insecure:     tc.Insecure,
		Timeout:      tc.Timeout,
		SamplingRate: tc.SamplingRate,
	}
}

// validateTracingConfig проверяет обязательные поля при включённом трейсинге.
func validateTracingConfig(tc *TracingConfig) error {
	c := tc.ToTracing()
	return c.Validate()
}
