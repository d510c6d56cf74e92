package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	// blank import для драйвера SQL Server
	_ "github.com/denisenkom/go-mssqldb"
)

// driverName: имя драйвера go-mssqldb для URL-строк подключения.
const driverName = "sqlserver"

// Compile-time проверка реализации интерфейса
var _ QueryExecutor = (*Executor)(nil)

// Opener открывает пул соединений. В тестах подменяется на sqlmock.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Executor: реализация QueryExecutor поверх database/sql.
// Пулы соединений кэшируются по строке подключения (экземпляр + база).
type Executor struct {
	opts ConnectionOptions
	open Opener

	mu    sync.Mutex
	pools map[string]*sql.DB
}

// NewExecutor создаёт исполнитель запросов с указанными параметрами подключения.
// Подключение устанавливается отложенно при первом запросе.
func NewExecutor(opts ConnectionOptions) *Executor {
	return NewExecutorWithOpener(opts, sql.Open)
}

// NewExecutorWithOpener создаёт исполнитель с пользовательской функцией открытия пула.
func NewExecutorWithOpener(opts ConnectionOptions, open Opener) *Executor {
	if open == nil {
		open = sql.Open
	}
	return &Executor{
		opts:  opts,
		open:  open,
		pools: make(map[string]*sql.DB),
	}
}

// pool возвращает пул соединений для пары экземпляр/база, открывая его при необходимости.
func (e *Executor) pool(instance, database string) (*sql.DB, error) {
	dsn, err := BuildDSN(instance, database, e.opts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.pools[dsn]; ok {
		return db, nil
	}
	db, err := e.open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", ErrMSSQLConnect, RedactDSN(dsn), err)
	}
	e.pools[dsn] = db
	return db, nil
}

// ExecuteScalar выполняет запрос и возвращает первый столбец первой строки.
func (e *Executor) ExecuteScalar(ctx context.Context, instance, database, query string, timeout time.Duration) (any, error) {
	db, err := e.pool(instance, database)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := withStatementTimeout(ctx, timeout)
	defer cancel()

	var value any
	err = db.QueryRowContext(execCtx, query).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(ctx, execCtx, ErrMSSQLQuery, timeout, err)
	}
	return value, nil
}

// ExecuteNonQuery выполняет инструкцию и возвращает число затронутых строк.
func (e *Executor) ExecuteNonQuery(ctx context.Context, instance, database, statement string, timeout time.Duration) (int64, error) {
	db, err := e.pool(instance, database)
	if err != nil {
		return 0, err
	}

	execCtx, cancel := withStatementTimeout(ctx, timeout)
	defer cancel()

	res, err := db.ExecContext(execCtx, statement)
	if err != nil {
		return 0, classify(ctx, execCtx, ErrMSSQLExec, timeout, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return rows, nil
}

// Close закрывает все открытые пулы соединений.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for dsn, db := range e.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", ErrMSSQLConnect, err)
		}
		delete(e.pools, dsn)
	}
	return firstErr
}

// withStatementTimeout ограничивает инструкцию по времени, если timeout > 0.
func withStatementTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > NoTimeout {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// classify отличает отмену вызывающей стороной от таймаута инструкции и ошибки движка.
// Отмена оборачивает ctx.Err(), чтобы вызывающий мог проверить её через errors.Is.
func classify(parent, execCtx context.Context, code string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", ErrMSSQLCancelled, parent.Err())
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: operation timed out after %v: %w", ErrMSSQLTimeout, timeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", code, err)
}
