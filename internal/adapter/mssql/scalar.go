package mssql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNullScalar возвращается, если запрос вернул NULL или ни одной строки.
var ErrNullScalar = errors.New("scalar query returned no value")

// Float64 выполняет скалярный запрос и приводит результат к float64.
// decimal/numeric go-mssqldb возвращает как []byte, это тоже поддерживается.
func Float64(ctx context.Context, q ScalarExecutor, instance, database, query string, timeout time.Duration) (float64, error) {
	v, err := q.ExecuteScalar(ctx, instance, database, query, timeout)
	if err != nil {
		return 0, err
	}
	return AsFloat64(v)
}

// Int64 выполняет скалярный запрос и приводит результат к int64.
func Int64(ctx context.Context, q ScalarExecutor, instance, database, query string, timeout time.Duration) (int64, error) {
	v, err := q.ExecuteScalar(ctx, instance, database, query, timeout)
	if err != nil {
		return 0, err
	}
	return AsInt64(v)
}

// AsFloat64 приводит значение драйвера к float64.
func AsFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%s: %w", ErrMSSQLConvert, ErrNullScalar)
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	default:
		return 0, fmt.Errorf("%s: unsupported scalar type %T", ErrMSSQLConvert, v)
	}
}

// AsInt64 приводит значение драйвера к int64.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	f, err := AsFloat64(v)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMSSQLConvert, err)
	}
	return f, nil
}
