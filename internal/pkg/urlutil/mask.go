// Package urlutil скрывает секреты в URL перед записью в лог.
package urlutil

import "net/url"

// invalidURL подставляется вместо строки, которую не удалось разобрать.
const invalidURL = "***invalid-url***"

// MaskURL оставляет от адреса только схему и хост.
// Путь и query webhook-ов и Pushgateway могут содержать токены.
//
//	MaskURL("https://hooks.example.com/services/T1/B2?token=x") == "https://hooks.example.com/***"
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalidURL
	}
	return u.Scheme + "://" + u.Host + "/***"
}

// RedactURL заменяет пароль в userinfo и значения секретных параметров query на "xxxxx".
// Путь и остальные параметры сохраняются: строка подключения SQL Server
// без пароля пригодна для диагностики.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalidURL
	}
	q := u.Query()
	changed := false
	for _, key := range secretParams {
		if q.Has(key) {
			q.Set(key, "xxxxx")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

// secretParams: имена параметров query, значения которых не пишутся в лог.
var secretParams = []string{"password", "token", "access_token"}
