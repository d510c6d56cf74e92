package alerting

import "context"

var _ Alerter = (*NopAlerter)(nil)

// NopAlerter игнорирует все алерты. Используется при alerting.enabled=false.
type NopAlerter struct{}

// NewNopAlerter создаёт Alerter, который ничего не отправляет.
func NewNopAlerter() Alerter {
	return &NopAlerter{}
}

// Send ничего не делает.
func (n *NopAlerter) Send(_ context.Context, _ Alert) error {
	return nil
}
