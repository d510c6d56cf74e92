package config

import (
	"time"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/alerting"
)

// AlertingConfig содержит настройки для алертинга.
type AlertingConfig struct {
	// Enabled: включён ли алертинг (по умолчанию false).
	Enabled bool `yaml:"enabled" env:"WSUS_ALERTING_ENABLED" env-description:"Отправка алертов при ошибках команд"`

	// RateLimitWindow: минимальный интервал между алертами одного типа.
	RateLimitWindow time.Duration `yaml:"rateLimitWindow" env:"WSUS_ALERTING_RATE_LIMIT_WINDOW" env-default:"5m"`

	// Webhook: конфигурация webhook канала.
	Webhook WebhookChannelConfig `yaml:"webhook"`

	// Rules: правила фильтрации алертов.
	Rules AlertRulesConfig `yaml:"rules"`
}

// AlertRulesConfig содержит настройки правил фильтрации алертов.
type AlertRulesConfig struct {
	// MinSeverity: минимальный уровень severity: INFO, WARNING, CRITICAL.
	MinSeverity string `yaml:"minSeverity" env:"WSUS_ALERTING_RULES_MIN_SEVERITY" env-default:"INFO"`

	// ExcludeErrorCodes: коды ошибок, для которых НЕ отправляются алерты. "MAINT.*" задаёт всю категорию.
	ExcludeErrorCodes []string `yaml:"excludeErrorCodes" env:"WSUS_ALERTING_RULES_EXCLUDE_ERRORS" env-separator:","`

	// IncludeErrorCodes: если задан, алерты отправляются ТОЛЬКО для этих кодов.
	// Имеет приоритет над ExcludeErrorCodes.
	IncludeErrorCodes []string `yaml:"includeErrorCodes" env:"WSUS_ALERTING_RULES_INCLUDE_ERRORS" env-separator:","`

	// ExcludeCommands: команды, для которых НЕ отправляются алерты.
	ExcludeCommands []string `yaml:"excludeCommands" env:"WSUS_ALERTING_RULES_EXCLUDE_COMMANDS" env-separator:","`

	// IncludeCommands: если задан, алерты отправляются ТОЛЬКО для этих команд.
	IncludeCommands []string `yaml:"includeCommands" env:"WSUS_ALERTING_RULES_INCLUDE_COMMANDS" env-separator:","`

	// ChannelOverrides: правила для конкретных каналов.
	// Override полностью заменяет глобальные правила канала, minSeverity нужно повторять.
	ChannelOverrides map[string]ChannelRuleConfig `yaml:"channels"`
}

// ChannelRuleConfig: правила для конкретного канала алертинга.
type ChannelRuleConfig struct {
	MinSeverity       string   `yaml:"minSeverity"`
	ExcludeErrorCodes []string `yaml:"excludeErrorCodes"`
	IncludeErrorCodes []string `yaml:"includeErrorCodes"`
	ExcludeCommands   []string `yaml:"excludeCommands"`
	IncludeCommands   []string `yaml:"includeCommands"`
}

// WebhookChannelConfig содержит настройки webhook канала.
type WebhookChannelConfig struct {
	// Enabled: включён ли webhook канал.
	Enabled bool `yaml:"enabled" env:"WSUS_ALERTING_WEBHOOK_ENABLED"`

	// URLs: список URL для отправки webhook.
	URLs []string `yaml:"urls" env:"WSUS_ALERTING_WEBHOOK_URLS" env-separator:","`

	// Headers: дополнительные HTTP заголовки (Authorization, X-Api-Key).
	// Задаются только в YAML: cleanenv не читает map из окружения.
	Headers map[string]string `yaml:"headers"`

	// Timeout: таймаут HTTP запросов.
	Timeout time.Duration `yaml:"timeout" env:"WSUS_ALERTING_WEBHOOK_TIMEOUT" env-default:"10s"`

	// MaxRetries: максимальное количество повторных попыток.
	MaxRetries int `yaml:"maxRetries" env:"WSUS_ALERTING_WEBHOOK_MAX_RETRIES" env-default:"3"`
}

// getDefaultAlertingConfig возвращает конфигурацию алертинга по умолчанию.
// Алертинг отключён по умолчанию.
func getDefaultAlertingConfig() *AlertingConfig {
	return &AlertingConfig{
		Enabled:         false,
		RateLimitWindow: alerting.DefaultRateLimitWindow,
		Webhook: WebhookChannelConfig{
			Enabled:    false,
			Timeout:    alerting.DefaultWebhookTimeout,
			MaxRetries: alerting.DefaultMaxRetries,
		},
		Rules: AlertRulesConfig{
			MinSeverity: "INFO",
		},
	}
}

// ToAlerting преобразует настройки в конфигурацию и правила пакета alerting.
func (ac *AlertingConfig) ToAlerting() (alerting.Config, alerting.RulesConfig) {
	cfg := alerting.Config{
		Enabled:         ac.Enabled,
		RateLimitWindow: ac.RateLimitWindow,
		Webhook: alerting.WebhookConfig{
			Enabled:    ac.Webhook.Enabled,
			URLs:       ac.Webhook.URLs,
			Headers:    ac.Webhook.Headers,
			Timeout:    ac.Webhook.Timeout,
			MaxRetries: ac.Webhook.MaxRetries,
		},
	}
	rules := alerting.RulesConfig{
		MinSeverity:       ac.Rules.MinSeverity,
		ExcludeErrorCodes: ac.Rules.ExcludeErrorCodes,
		IncludeErrorCodes: ac.Rules.IncludeErrorCodes,
		ExcludeCommands:   ac.Rules.ExcludeCommands,
		IncludeCommands:   ac.Rules.IncludeCommands,
	}
	if len(ac.Rules.ChannelOverrides) > 0 {
		rules.Channels = make(map[string]alerting.ChannelRulesConfig, len(ac.Rules.ChannelOverrides))
		for name, ch := range ac.Rules.ChannelOverrides {
			rules.Channels[name] = alerting.ChannelRulesConfig{
				MinSeverity:       ch.MinSeverity,
				ExcludeErrorCodes: ch.ExcludeErrorCodes,
				IncludeErrorCodes: ch.IncludeErrorCodes,
				ExcludeCommands:   ch.ExcludeCommands,
				IncludeCommands:   ch.IncludeCommands,
			}
		}
	}
	return cfg, rules
}

// validateAlertingConfig проверяет обязательные поля включённых каналов.
// Формат URL и заголовков проверяет alerting.Config.Validate.
func validateAlertingConfig(ac *AlertingConfig) error {
	if !ac.Enabled {
		return nil
	}
	cfg, _ := ac.ToAlerting()
	return cfg.Validate()
}
