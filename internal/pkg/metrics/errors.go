package metrics

import "errors"

// Ошибки валидации Config. Сообщения называют переменные окружения,
// которыми оператор исправляет настройку.
var (
	ErrPushgatewayURLRequired = errors.New("metrics: WSUS_METRICS_PUSHGATEWAY_URL is required when metrics are enabled")
	ErrPushgatewayURLInvalid  = errors.New("metrics: WSUS_METRICS_PUSHGATEWAY_URL must be an absolute http(s) URL")
	ErrJobNameRequired        = errors.New("metrics: WSUS_METRICS_JOB_NAME is empty")
	ErrInvalidTimeout         = errors.New("metrics: WSUS_METRICS_TIMEOUT must be positive")
)
