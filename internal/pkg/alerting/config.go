package alerting

import "time"

// DefaultRateLimitWindow: интервал между алертами одного кода по умолчанию.
const DefaultRateLimitWindow = 5 * time.Minute

// Config содержит настройки для создания Alerter через NewAlerter.
type Config struct {
	// Enabled: включён ли алертинг (по умолчанию false).
	Enabled bool

	// RateLimitWindow: минимальный интервал между алертами одного кода.
	RateLimitWindow time.Duration

	Webhook WebhookConfig
}

// DefaultConfig возвращает выключенную конфигурацию с умолчаниями канала.
func DefaultConfig() Config {
	return Config{
		RateLimitWindow: DefaultRateLimitWindow,
		Webhook: WebhookConfig{
			Timeout:    DefaultWebhookTimeout,
			MaxRetries: DefaultMaxRetries,
		},
	}
}

// Validate проверяет конфигурацию включённого алертинга.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RateLimitWindow < 0 {
		return ErrRateLimitWindowInvalid
	}
	return c.Webhook.Validate()
}
