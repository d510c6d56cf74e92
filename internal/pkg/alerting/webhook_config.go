package alerting

import (
	"net/url"
	"time"
)

// Значения по умолчанию для webhook канала.
const (
	DefaultWebhookTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
)

// WebhookConfig содержит настройки webhook канала.
type WebhookConfig struct {
	Enabled bool

	// URLs: получатели; алерт отправляется на каждый.
	URLs []string

	// Headers: дополнительные HTTP заголовки (Authorization, X-Api-Key).
	Headers map[string]string

	// Timeout: таймаут одного HTTP запроса.
	Timeout time.Duration

	// MaxRetries: число повторов после первой попытки.
	MaxRetries int
}

// Validate проверяет URL и заголовки включённого канала.
func (w *WebhookConfig) Validate() error {
	if !w.Enabled {
		return nil
	}
	if len(w.URLs) == 0 {
		return ErrWebhookURLRequired
	}
	for _, rawURL := range w.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			return ErrWebhookURLInvalid
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return ErrWebhookURLInvalid
		}
	}
	if w.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	for key, value := range w.Headers {
		if containsInvalidHeaderChars(key) || containsInvalidHeaderChars(value) {
			return ErrWebhookHeaderInvalid
		}
	}
	return nil
}

// containsInvalidHeaderChars ищет управляющие символы; HTAB допустим (RFC 7230).
func containsInvalidHeaderChars(s string) bool {
	for _, r := range s {
		if r == '\t' {
			continue
		}
		if r <= 0x1f || r == 0x7f {
			return true
		}
	}
	return false
}
