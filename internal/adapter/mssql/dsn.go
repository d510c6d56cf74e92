package mssql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/urlutil"
)

const (
	defaultConnectTimeoutSec = 5
	defaultAppName           = "wsus-dbmaint"
)

// BuildDSN формирует URL-строку подключения go-mssqldb для экземпляра вида
// "host", "host\INSTANCE", "host,port" или "host,port\INSTANCE".
//
// Параметры экранируются средствами net/url, поэтому обратная косая черта
// в имени экземпляра и спецсимволы пароля не ломают строку подключения.
func BuildDSN(instance, database string, opts ConnectionOptions) (string, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return "", fmt.Errorf("%s: sql instance is required", ErrMSSQLConnect)
	}
	if strings.HasPrefix(instance, `\\`) || strings.HasPrefix(strings.ToLower(instance), "np:") {
		return "", fmt.Errorf("%s: named pipe instance %q is not supported, use host\\instance", ErrMSSQLConnect, instance)
	}

	host, name, _ := strings.Cut(instance, `\`)
	port := ""
	if h, p, ok := strings.Cut(host, ","); ok {
		host, port = strings.TrimSpace(h), strings.TrimSpace(p)
		if _, err := strconv.Atoi(port); err != nil {
			return "", fmt.Errorf("%s: invalid port %q in instance %q", ErrMSSQLConnect, port, instance)
		}
	}
	switch strings.ToLower(host) {
	case ".", "(local)", "(localdb)", "":
		host = "localhost"
	}
	if port == "" && opts.Port > 0 {
		if opts.Port > 65535 {
			return "", fmt.Errorf("%s: invalid port %d, must be between 1 and 65535", ErrMSSQLConnect, opts.Port)
		}
		port = strconv.Itoa(opts.Port)
	}

	u := &url.URL{Scheme: "sqlserver", Host: host}
	if port != "" {
		u.Host = host + ":" + port
	}
	if name != "" {
		u.Path = name
	}
	if opts.User != "" {
		u.User = url.UserPassword(opts.User, opts.Password)
	}

	q := url.Values{}
	if database != "" {
		q.Set("database", database)
	}
	encrypt := opts.Encrypt
	if encrypt == "" {
		encrypt = "disable"
	}
	q.Set("encrypt", encrypt)
	q.Set("TrustServerCertificate", "true")
	timeout := defaultConnectTimeoutSec
	if opts.ConnectTimeout > 0 {
		timeout = int(opts.ConnectTimeout.Seconds())
	}
	q.Set("connection timeout", strconv.Itoa(timeout))
	appName := opts.AppName
	if appName == "" {
		appName = defaultAppName
	}
	q.Set("app name", appName)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// RedactDSN скрывает пароль в строке подключения для логов и ошибок.
func RedactDSN(dsn string) string {
	return urlutil.RedactURL(dsn)
}
