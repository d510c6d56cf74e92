// Package testutil содержит общие утилиты для тестов обработчиков команд.
package testutil

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CaptureStdout выполняет fn и возвращает всё, что записано в os.Stdout:
// туда обработчики пишут результат команды.
func CaptureStdout(t *testing.T, fn func()) string {
	t.Helper()
	return capture(t, &os.Stdout, fn)
}

// CaptureStderr выполняет fn и возвращает вывод в os.Stderr:
// прогресс консоли и предупреждения об устаревших именах команд.
func CaptureStderr(t *testing.T, fn func()) string {
	t.Helper()
	return capture(t, &os.Stderr, fn)
}

// capture подменяет *target на pipe. Чтение идёт параллельно с fn,
// иначе вывод больше буфера pipe заблокирует запись.
func capture(t *testing.T, target **os.File, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err, "не удалось создать pipe")

	orig := *target
	*target = w
	defer func() { *target = orig }()

	done := make(chan error, 1)
	var buf bytes.Buffer
	go func() {
		_, readErr := buf.ReadFrom(r)
		done <- readErr
	}()

	fn()

	_ = w.Close() //nolint:errcheck // pipe тестового помощника
	require.NoError(t, <-done, "не удалось прочитать перехваченный вывод")
	_ = r.Close() //nolint:errcheck // pipe тестового помощника
	return buf.String()
}
