//go:build !windows

package svcctl

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DBusAPI: подмножество методов dbus.Conn, используемое контроллером.
type DBusAPI interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// DBusAPIFactory создаёт подключение к systemd.
type DBusAPIFactory = func(ctx context.Context) (DBusAPI, error)

// NewDBusAPI подключается к системной шине systemd.
var NewDBusAPI DBusAPIFactory = func(ctx context.Context) (DBusAPI, error) {
	return dbus.NewWithContext(ctx)
}

// Compile-time проверка реализации интерфейса
var _ Controller = (*systemdController)(nil)

// systemdController управляет unit-ами systemd через D-Bus.
// Используется на Linux-хостах, где SQL Server и зависимые службы работают как unit-ы.
type systemdController struct {
	mu   sync.Mutex
	conn DBusAPI
}

// NewController подключается к systemd.
func NewController(ctx context.Context) (Controller, error) {
	return newSystemdController(ctx, NewDBusAPI)
}

func newSystemdController(ctx context.Context, factory DBusAPIFactory) (*systemdController, error) {
	conn, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSvcConnect, err)
	}
	return &systemdController{conn: conn}, nil
}

// unitName дополняет имя суффиксом .service, если тип unit-а не указан.
func unitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// Status возвращает состояние unit-а.
func (c *systemdController) Status(ctx context.Context, name string) (State, error) {
	unit := unitName(name)
	units, err := c.conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return StateUnknown, fmt.Errorf("%s: %w", ErrSvcQuery, err)
	}
	for _, u := range units {
		if u.Name != unit {
			continue
		}
		if u.LoadState == "not-found" {
			return StateUnknown, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fromActiveState(u.ActiveState), nil
	}
	return StateUnknown, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// RequestStop ставит в очередь задание остановки и ждёт его завершения.
func (c *systemdController) RequestStop(ctx context.Context, name string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.StopUnitContext(ctx, unitName(name), "replace", ch); err != nil {
		return fmt.Errorf("%s: dbus stop request failed: %w", ErrSvcControl, err)
	}
	return awaitJob(ctx, ch, "stop", name)
}

// RequestStart ставит в очередь задание запуска и ждёт его завершения.
func (c *systemdController) RequestStart(ctx context.Context, name string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.StartUnitContext(ctx, unitName(name), "replace", ch); err != nil {
		return fmt.Errorf("%s: dbus start request failed: %w", ErrSvcControl, err)
	}
	return awaitJob(ctx, ch, "start", name)
}

// Close закрывает соединение с шиной.
func (c *systemdController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// awaitJob ждёт результат задания systemd: "done", "canceled", "timeout", "failed", "dependency", "skipped".
func awaitJob(ctx context.Context, ch <-chan string, op, name string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-ch:
		if result == "done" || result == "skipped" {
			return nil
		}
		return fmt.Errorf("%s: %s job for %s finished with %q", ErrSvcControl, op, name, result)
	}
}

func fromActiveState(s string) State {
	switch s {
	case "active", "reloading":
		return StateRunning
	case "inactive", "failed":
		return StateStopped
	case "activating":
		return StateStartPending
	case "deactivating":
		return StateStopPending
	default:
		return StateUnknown
	}
}
