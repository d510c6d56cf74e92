// Package mssql предоставляет возможность выполнения запросов к Microsoft SQL Server.
// Пакет разделён по принципу ISP на сфокусированные интерфейсы:
// ScalarExecutor, NonQueryExecutor.
// Композитный интерфейс QueryExecutor объединяет их и добавляет Close.
//
// Запросы передаются обычным текстом; экранирование подставляемых литералов
// лежит на вызывающей стороне.
package mssql

import (
	"context"
	"time"
)

// Коды ошибок для MSSQL операций.
const (
	// ErrMSSQLConnect: ошибка подключения к серверу MSSQL
	ErrMSSQLConnect = "MSSQL.CONNECT_FAILED"
	// ErrMSSQLQuery: ошибка выполнения SQL запроса
	ErrMSSQLQuery = "MSSQL.QUERY_FAILED"
	// ErrMSSQLExec: ошибка выполнения SQL инструкции
	ErrMSSQLExec = "MSSQL.EXEC_FAILED"
	// ErrMSSQLTimeout: превышено время ожидания операции
	ErrMSSQLTimeout = "MSSQL.TIMEOUT"
	// ErrMSSQLCancelled: операция отменена вызывающей стороной
	ErrMSSQLCancelled = "MSSQL.CANCELLED"
	// ErrMSSQLConvert: значение скалярного запроса не приводится к нужному типу
	ErrMSSQLConvert = "MSSQL.CONVERT_FAILED"
)

// NoTimeout: таймаут инструкции не ограничен. Ограничение задаётся только через ctx.
const NoTimeout time.Duration = 0

// ConnectionOptions содержит параметры подключения, общие для всех экземпляров.
type ConnectionOptions struct {
	// User: имя SQL-пользователя. Пустое значение означает интегрированную аутентификацию.
	User string
	// Password: пароль SQL-пользователя
	Password string
	// Port: порт, если в имени экземпляра он не указан. При 0 порт определяет драйвер.
	Port int
	// Encrypt: режим шифрования go-mssqldb: disable, false, true, strict
	Encrypt string
	// ConnectTimeout: таймаут установки соединения
	ConnectTimeout time.Duration
	// AppName: имя приложения, видимое в sys.dm_exec_sessions
	AppName string
}

// ScalarExecutor выполняет запросы, возвращающие одно значение.
type ScalarExecutor interface {
	// ExecuteScalar возвращает первый столбец первой строки или nil, если строк нет.
	// timeout == NoTimeout снимает ограничение по времени.
	ExecuteScalar(ctx context.Context, instance, database, query string, timeout time.Duration) (any, error)
}

// NonQueryExecutor выполняет инструкции без результирующего набора.
type NonQueryExecutor interface {
	// ExecuteNonQuery возвращает число затронутых строк или -1, если драйвер его не сообщил.
	ExecuteNonQuery(ctx context.Context, instance, database, statement string, timeout time.Duration) (int64, error)
}

// QueryExecutor: композитный интерфейс возможности выполнения запросов.
type QueryExecutor interface {
	ScalarExecutor
	NonQueryExecutor
	// Close закрывает все открытые пулы соединений.
	Close() error
}
