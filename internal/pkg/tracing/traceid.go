// Package tracing связывает логи, результат команды и span-ы OpenTelemetry
// общим trace ID: 32 hex-символа (16 байт), совместимо с W3C Trace Context.
package tracing

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var fallbackCounter atomic.Uint64

// GenerateTraceID генерирует уникальный trace ID из случайного UUID.
// Если источник случайности недоступен, ID строится из времени и счётчика.
func GenerateTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackTraceID()
	}
	return hex.EncodeToString(id[:])
}

// fallbackTraceID всегда возвращает ровно 32 hex-символа.
func fallbackTraceID() string {
	counter := fallbackCounter.Add(1)
	timestamp := uint64(time.Now().UnixNano())
	return fmt.Sprintf("%016x%016x", timestamp, counter)
}
