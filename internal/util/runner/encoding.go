package runner

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decoderFor возвращает обёртку, перекодирующую вывод консоли в UTF-8.
func decoderFor(codePage string) (func(io.Reader) io.Reader, error) {
	enc, err := lookupEncoding(codePage)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return func(r io.Reader) io.Reader { return r }, nil
	}
	return func(r io.Reader) io.Reader {
		return transform.NewReader(r, enc.NewDecoder())
	}, nil
}

// lookupEncoding сопоставляет имя кодовой страницы кодировке x/text.
// nil означает, что вывод уже в UTF-8.
func lookupEncoding(codePage string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(codePage)) {
	case "", "utf-8", "utf8", "65001":
		return nil, nil
	case "cp866", "ibm866", "866":
		return charmap.CodePage866, nil
	case "cp437", "437":
		return charmap.CodePage437, nil
	case "cp850", "850":
		return charmap.CodePage850, nil
	case "cp1251", "windows-1251", "1251":
		return charmap.Windows1251, nil
	case "cp1252", "windows-1252", "1252":
		return charmap.Windows1252, nil
	case "utf-16le", "utf16le", "1200":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	default:
		return nil, fmt.Errorf("unsupported console code page: %s", codePage)
	}
}

// EncodePowerShellCommand кодирует скрипт для параметра -EncodedCommand:
// base64 от UTF-16LE. Так конвейер "|" не попадает в командную строку.
func EncodePowerShellCommand(script string) (string, error) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(script)
	if err != nil {
		return "", fmt.Errorf("failed to encode powershell command: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(utf16)), nil
}

// PowerShellParams возвращает параметры неинтерактивного запуска закодированного скрипта.
func PowerShellParams(script string) ([]string, error) {
	encoded, err := EncodePowerShellCommand(script)
	if err != nil {
		return nil, err
	}
	return []string{
		"-NonInteractive",
		"-NoProfile",
		"-ExecutionPolicy", "Bypass",
		"-EncodedCommand", encoded,
	}, nil
}

// SupportedCodePage сообщает, умеет ли раннер декодировать кодовую страницу.
func SupportedCodePage(codePage string) bool {
	_, err := lookupEncoding(codePage)
	return err == nil
}
