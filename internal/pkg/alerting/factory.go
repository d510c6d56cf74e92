package alerting

import (
	"fmt"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// NewAlerter создаёт Alerter по конфигурации.
// Выключенный алертинг или отсутствие каналов дают NopAlerter.
// Иначе возвращается MultiChannelAlerter с правилами и общим rate limiter.
//
//	cfg := alerting.Config{
//	    Enabled: true,
//	    Webhook: alerting.WebhookConfig{Enabled: true, URLs: []string{"https://hooks.example.com/wsus"}},
//	}
//	alerter, err := alerting.NewAlerter(cfg, alerting.RulesConfig{MinSeverity: "WARNING"}, logger)
func NewAlerter(config Config, rules RulesConfig, logger logging.Logger) (Alerter, error) {
	if !config.Enabled {
		return NewNopAlerter(), nil
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	window := config.RateLimitWindow
	if window == 0 {
		window = DefaultRateLimitWindow
	}

	channels := make(map[string]Alerter)
	if config.Webhook.Enabled {
		webhook, err := NewWebhookAlerter(config.Webhook, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("создание webhook alerter: %w", err)
		}
		channels[ChannelWebhook] = webhook
	}

	if len(channels) == 0 {
		logger.Warn("alerting включён, но нет настроенных каналов, используется NopAlerter")
		return NewNopAlerter(), nil
	}

	for name, ch := range rules.Channels {
		if ch.MinSeverity == "" && rules.MinSeverity != "" {
			logger.Warn("правило канала без minSeverity, используется INFO",
				"channel", name,
				"global_min_severity", rules.MinSeverity,
			)
		}
	}

	return NewMultiChannelAlerter(channels, NewRulesEngine(rules), NewRateLimiter(window), logger), nil
}
