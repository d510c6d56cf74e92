//go:build windows

package svcctl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// Compile-time проверка реализации интерфейса
var _ Controller = (*windowsController)(nil)

// windowsController управляет службами через диспетчер служб Windows (SCM).
type windowsController struct {
	mu sync.Mutex
	m  *mgr.Mgr
}

// NewController подключается к диспетчеру служб Windows.
func NewController(_ context.Context) (Controller, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSvcConnect, err)
	}
	return &windowsController{m: m}, nil
}

func (c *windowsController) open(name string) (*mgr.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		return nil, fmt.Errorf("%s: service manager is closed", ErrSvcConnect)
	}
	s, err := c.m.OpenService(name)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", ErrSvcQuery, err)
	}
	return s, nil
}

// Status возвращает состояние службы.
func (c *windowsController) Status(_ context.Context, name string) (State, error) {
	s, err := c.open(name)
	if err != nil {
		return StateUnknown, err
	}
	defer s.Close()

	st, err := s.Query()
	if err != nil {
		return StateUnknown, fmt.Errorf("%s: %w", ErrSvcQuery, err)
	}
	return fromWindowsState(st.State), nil
}

// RequestStop отправляет службе управляющий код SERVICE_CONTROL_STOP.
func (c *windowsController) RequestStop(_ context.Context, name string) error {
	s, err := c.open(name)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Control(svc.Stop); err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return nil
		}
		return fmt.Errorf("%s: %w", ErrSvcControl, err)
	}
	return nil
}

// RequestStart запускает службу.
func (c *windowsController) RequestStart(_ context.Context, name string) error {
	s, err := c.open(name)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return nil
		}
		return fmt.Errorf("%s: %w", ErrSvcControl, err)
	}
	return nil
}

// Close отключается от диспетчера служб.
func (c *windowsController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		return nil
	}
	err := c.m.Disconnect()
	c.m = nil
	return err
}

func fromWindowsState(s svc.State) State {
	switch s {
	case svc.Stopped:
		return StateStopped
	case svc.StartPending, svc.ContinuePending:
		return StateStartPending
	case svc.StopPending, svc.PausePending:
		return StateStopPending
	case svc.Running:
		return StateRunning
	case svc.Paused:
		return StatePaused
	default:
		return StateUnknown
	}
}
