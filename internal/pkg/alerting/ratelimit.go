package alerting

import (
	"sync"
	"time"
)

// cleanupThreshold: число записей, после которого удаляются истёкшие.
const cleanupThreshold = 100

// RateLimiter подавляет повтор алерта с тем же кодом в пределах окна.
// Состояние живёт в памяти процесса: между запусками CLI оно не сохраняется,
// поэтому подавляются только повторы внутри одного запуска.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	sent   map[string]time.Time
	now    func() time.Time
}

// NewRateLimiter создаёт RateLimiter с указанным окном.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		sent:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow сообщает, можно ли отправить алерт с кодом errorCode,
// и при положительном ответе запоминает время отправки.
func (r *RateLimiter) Allow(errorCode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.sent) > cleanupThreshold {
		for code, at := range r.sent {
			if now.Sub(at) >= r.window {
				delete(r.sent, code)
			}
		}
	}

	if at, ok := r.sent[errorCode]; ok && now.Sub(at) < r.window {
		return false
	}
	r.sent[errorCode] = now
	return true
}

// Reset забывает отправку алерта с кодом errorCode.
func (r *RateLimiter) Reset(errorCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sent, errorCode)
}

// SetNowFunc подменяет источник времени.
func (r *RateLimiter) SetNowFunc(fn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = fn
}
