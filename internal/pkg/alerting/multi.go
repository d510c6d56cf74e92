package alerting

import (
	"context"
	"sort"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

var _ Alerter = (*MultiChannelAlerter)(nil)

// MultiChannelAlerter рассылает алерт по каналам с учётом правил и общего rate limiter.
type MultiChannelAlerter struct {
	channels     map[string]Alerter
	channelNames []string
	rules        *RulesEngine
	rateLimiter  *RateLimiter
	logger       logging.Logger
}

// NewMultiChannelAlerter создаёт alerter над именованными каналами.
// rules и rateLimiter могут быть nil.
func NewMultiChannelAlerter(channels map[string]Alerter, rules *RulesEngine, rateLimiter *RateLimiter, logger logging.Logger) *MultiChannelAlerter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)

	return &MultiChannelAlerter{
		channels:     channels,
		channelNames: names,
		rules:        rules,
		rateLimiter:  rateLimiter,
		logger:       logger,
	}
}

// Send проверяет rate limit один раз для всех каналов, затем отправляет
// алерт в каждый канал, чьи правила его пропускают. Всегда возвращает nil.
func (m *MultiChannelAlerter) Send(ctx context.Context, alert Alert) error {
	if m.rateLimiter != nil && !m.rateLimiter.Allow(alert.ErrorCode) {
		m.logger.Debug("алерт подавлен rate limiter", "error_code", alert.ErrorCode)
		return nil
	}

	sent, skipped := 0, 0
	for _, name := range m.channelNames {
		if ctx.Err() != nil {
			return nil
		}
		if m.rules != nil && !m.rules.Evaluate(alert, name) {
			m.logger.Debug("алерт отклонён правилами",
				"channel", name,
				"error_code", alert.ErrorCode,
				"command", alert.Command,
				"severity", alert.Severity.String(),
			)
			skipped++
			continue
		}
		_ = m.channels[name].Send(ctx, alert)
		sent++
	}

	m.logger.Debug("рассылка алерта завершена",
		"error_code", alert.ErrorCode,
		"channels_sent", sent,
		"channels_skipped", skipped,
	)
	return nil
}
