package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiChannelAlerter_RulesAndRateLimit(t *testing.T) {
	webhook := &recordingAlerter{}
	other := &recordingAlerter{}
	rules := NewRulesEngine(RulesConfig{
		Channels: map[string]ChannelRulesConfig{"other": {MinSeverity: "CRITICAL"}},
	})
	m := NewMultiChannelAlerter(map[string]Alerter{ChannelWebhook: webhook, "other": other}, rules, NewRateLimiter(time.Hour), nil)

	warn := restoreAlert()
	warn.Severity = SeverityWarning
	require.NoError(t, m.Send(context.Background(), warn))
	assert.Equal(t, 1, webhook.count())
	assert.Equal(t, 0, other.count(), "канал other принимает только CRITICAL")

	require.NoError(t, m.Send(context.Background(), restoreAlert()))
	assert.Equal(t, 1, webhook.count(), "повтор того же кода подавлен для всех каналов")
	assert.Equal(t, 0, other.count())
}

func TestMultiChannelAlerter_CancelledContext(t *testing.T) {
	webhook := &recordingAlerter{}
	m := NewMultiChannelAlerter(map[string]Alerter{ChannelWebhook: webhook}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Send(ctx, restoreAlert()))
	assert.Zero(t, webhook.count())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	r := NewRateLimiter(5 * time.Minute)
	r.SetNowFunc(func() time.Time { return now })

	assert.True(t, r.Allow("MAINT.CANCELLED"))
	assert.False(t, r.Allow("MAINT.CANCELLED"))
	assert.True(t, r.Allow("MAINT.FILE_NOT_FOUND"), "коды ограничиваются независимо")

	now = now.Add(5 * time.Minute)
	assert.True(t, r.Allow("MAINT.CANCELLED"), "окно истекло")

	r.Reset("MAINT.CANCELLED")
	assert.True(t, r.Allow("MAINT.CANCELLED"))
}

func TestRateLimiter_CleansExpiredEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	r := NewRateLimiter(time.Minute)
	r.SetNowFunc(func() time.Time { return now })

	for i := 0; i <= cleanupThreshold; i++ {
		r.Allow(time.Duration(i).String())
	}
	now = now.Add(time.Hour)
	r.Allow("MAINT.CANCELLED")
	assert.Len(t, r.sent, 1)
}

func TestNewAlerter(t *testing.T) {
	t.Run("выключен", func(t *testing.T) {
		a, err := NewAlerter(Config{}, RulesConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &NopAlerter{}, a)
	})

	t.Run("включён без каналов", func(t *testing.T) {
		logger := &testLogger{}
		a, err := NewAlerter(Config{Enabled: true}, RulesConfig{}, logger)
		require.NoError(t, err)
		assert.IsType(t, &NopAlerter{}, a)
		assert.Len(t, logger.warnings(), 1)
	})

	t.Run("невалидный webhook", func(t *testing.T) {
		_, err := NewAlerter(Config{Enabled: true, Webhook: WebhookConfig{Enabled: true}}, RulesConfig{}, nil)
		assert.ErrorIs(t, err, ErrWebhookURLRequired)
	})

	t.Run("отрицательное окно", func(t *testing.T) {
		_, err := NewAlerter(Config{Enabled: true, RateLimitWindow: -time.Second}, RulesConfig{}, nil)
		assert.ErrorIs(t, err, ErrRateLimitWindowInvalid)
	})

	t.Run("webhook", func(t *testing.T) {
		logger := &testLogger{}
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.Webhook.Enabled = true
		cfg.Webhook.URLs = []string{"https://hooks.example.com/wsus"}
		a, err := NewAlerter(cfg, RulesConfig{
			MinSeverity: "WARNING",
			Channels:    map[string]ChannelRulesConfig{ChannelWebhook: {}},
		}, logger)
		require.NoError(t, err)
		multi, ok := a.(*MultiChannelAlerter)
		require.True(t, ok)
		assert.Equal(t, []string{ChannelWebhook}, multi.channelNames)
		assert.Len(t, logger.warnings(), 1, "правило канала без minSeverity")
	})

	t.Run("nop", func(t *testing.T) {
		assert.NoError(t, NewNopAlerter().Send(context.Background(), restoreAlert()))
	})
}
