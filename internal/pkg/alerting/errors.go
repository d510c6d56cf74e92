package alerting

import "errors"

// Ошибки валидации конфигурации.
var (
	// ErrWebhookURLRequired: URL для webhook не указан.
	ErrWebhookURLRequired = errors.New("alerting: at least one url is required when webhook channel is enabled")

	// ErrWebhookURLInvalid: URL не http(s) или без хоста.
	ErrWebhookURLInvalid = errors.New("alerting: webhook url has invalid format (must have scheme and host)")

	// ErrWebhookHeaderInvalid: HTTP заголовок содержит управляющие символы.
	ErrWebhookHeaderInvalid = errors.New("alerting: webhook header contains invalid characters")

	// ErrNegativeRetries: отрицательное число повторов.
	ErrNegativeRetries = errors.New("alerting: webhook maxRetries must not be negative")

	// ErrRateLimitWindowInvalid: отрицательный интервал rate limiting.
	ErrRateLimitWindowInvalid = errors.New("alerting: rateLimitWindow must not be negative")
)
