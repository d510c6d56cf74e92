package svcctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/Kargones/wsus-dbmaint/internal/entity/maintenance"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

// Значения по умолчанию для Options.
const (
	DefaultStartAttempts = 3
	DefaultRetryDelay    = 5 * time.Second
	DefaultWaitTimeout   = 30 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
)

// Compile-time проверка реализации интерфейса
var _ ServiceManager = (*Manager)(nil)

// Options задаёт политику ожидания и повторов.
type Options struct {
	// StartAttempts: число попыток запуска службы
	StartAttempts int
	// RetryDelay: пауза между попытками запуска
	RetryDelay time.Duration
	// WaitTimeout: время ожидания целевого состояния в одной попытке
	WaitTimeout time.Duration
	// PollInterval: период опроса состояния
	PollInterval time.Duration
	// Clock: источник времени для повторов и ожидания
	Clock clock.Clock
}

func (o Options) withDefaults() Options {
	if o.StartAttempts <= 0 {
		o.StartAttempts = DefaultStartAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	return o
}

// Manager реализует ServiceManager поверх Controller.
type Manager struct {
	ctl  Controller
	opts Options
	log  logging.Logger
}

// NewManager создаёт менеджер служб. Нулевые поля opts заменяются значениями по умолчанию.
func NewManager(ctl Controller, opts Options, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{ctl: ctl, opts: opts.withDefaults(), log: log}
}

// Stop останавливает службу. Уже остановленная служба считается успехом.
func (m *Manager) Stop(ctx context.Context, name string) maintenance.OperationResult[struct{}] {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to stop %s", name), ctxErr)
	}
	state, err := m.ctl.Status(ctx, name)
	if err != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to stop %s", name), err)
	}
	if state == StateStopped {
		m.log.Debug("Служба уже остановлена", "service", name)
		return maintenance.Ok(fmt.Sprintf("%s is already stopped.", name))
	}

	m.log.Info("Остановка службы", "service", name, "state", state.String())
	if err := m.ctl.RequestStop(ctx, name); err != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to stop %s", name), err)
	}
	if err := m.waitFor(ctx, name, StateStopped); err != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to stop %s", name), err)
	}

	m.log.Info("Служба остановлена", "service", name)
	return maintenance.Ok(fmt.Sprintf("%s stopped successfully.", name))
}

// Start запускает службу с повторными попытками. Уже запущенная служба считается успехом.
// Отсутствующая служба и отмена ctx не повторяются.
func (m *Manager) Start(ctx context.Context, name string) maintenance.OperationResult[struct{}] {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to start %s", name), ctxErr)
	}
	state, err := m.ctl.Status(ctx, name)
	if err != nil {
		return m.fail(ctx, fmt.Sprintf("Failed to start %s", name), err)
	}
	if state == StateRunning {
		m.log.Debug("Служба уже запущена", "service", name)
		return maintenance.Ok(fmt.Sprintf("%s is already running.", name))
	}

	attempt := 0
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			attempt++
			m.log.Info("Запуск службы", "service", name, "attempt", attempt, "max", m.opts.StartAttempts)
			if err := m.ctl.RequestStart(ctx, name); err != nil {
				return err
			}
			return m.waitFor(ctx, name, StateRunning)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, ErrNotFound) || ctx.Err() != nil
		},
		NotifyFunc: func(lastError error, attempt int) {
			m.log.Warn("Попытка запуска службы не удалась", "service", name, "attempt", attempt, "error", lastError)
		},
		Attempts: m.opts.StartAttempts,
		Delay:    m.opts.RetryDelay,
		Clock:    m.opts.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) && ctx.Err() == nil {
			return m.fail(ctx, fmt.Sprintf("Failed to start %s after %d attempts", name, attempt), lastAttemptError(err))
		}
		return m.fail(ctx, fmt.Sprintf("Failed to start %s", name), lastAttemptError(err))
	}

	m.log.Info("Служба запущена", "service", name)
	return maintenance.Ok(fmt.Sprintf("%s started successfully.", name))
}

// waitFor опрашивает состояние службы, пока оно не станет want или не истечёт WaitTimeout.
func (m *Manager) waitFor(ctx context.Context, name string, want State) error {
	deadline := m.opts.Clock.After(m.opts.WaitTimeout)
	for {
		state, err := m.ctl.Status(ctx, name)
		if err != nil {
			return err
		}
		if state == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%s: %s is %s, expected %s after %v", ErrSvcTimeout, name, state, want, m.opts.WaitTimeout)
		case <-m.opts.Clock.After(m.opts.PollInterval):
		}
	}
}

// lastAttemptError возвращает ошибку последней попытки retry.Call.
// Фатальная ошибка приходит обёрнутой errors.Trace и возвращается как есть:
// LastError для неё не определён.
func lastAttemptError(err error) error {
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) || retry.IsRetryStopped(err) {
		if cause := retry.LastError(err); cause != nil {
			return cause
		}
	}
	return err
}

func (m *Manager) fail(ctx context.Context, prefix string, err error) maintenance.OperationResult[struct{}] {
	kind := maintenance.KindServiceTransitionFailed
	if ctx.Err() != nil {
		kind = maintenance.KindCancelled
	}
	m.log.Error(prefix, "error", err)
	if errors.Is(err, ErrNotFound) {
		return maintenance.Fail(kind, fmt.Sprintf("%s: service not found.", prefix), err)
	}
	return maintenance.Fail(kind, fmt.Sprintf("%s: %v", prefix, err), err)
}
