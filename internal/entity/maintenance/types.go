package maintenance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultDatabase - база данных WSUS.
	DefaultDatabase = "SUSDB"
	// MasterDatabase - системная база, в контексте которой выполняются BACKUP/RESTORE/ALTER.
	MasterDatabase = "master"
	// BackupSizeRatio - ожидаемое отношение сжатой резервной копии к выделенному размеру базы.
	BackupSizeRatio = 0.8
	// UnknownSize - маркер «размер не удалось измерить», отличный от нуля.
	UnknownSize = -1.0
)

// BackupRequest описывает запрос на резервное копирование.
// CommandTimeout ограничивает операцию через ctx вызывающей стороны,
// сама инструкция BACKUP выполняется без таймаута. 0 снимает ограничение.
type BackupRequest struct {
	SQLInstance    string
	Database       string
	BackupPath     string
	CommandTimeout time.Duration
}

// RestoreRequest описывает запрос на восстановление базы из файла.
// CommandTimeout трактуется так же, как в BackupRequest.
type RestoreRequest struct {
	SQLInstance    string
	Database       string
	BackupPath     string
	ContentPath    string
	CommandTimeout time.Duration
}

// SizeSample - замер выделенного размера базы.
// AllocatedGB == UnknownSize, если движок был недоступен.
type SizeSample struct {
	CapturedAt  time.Time
	AllocatedGB float64
}

// Known сообщает, удалось ли измерить размер.
func (s SizeSample) Known() bool {
	return s.AllocatedGB >= 0
}

// UnknownSizeSample возвращает замер с маркером «не измерено».
func UnknownSizeSample(at time.Time) SizeSample {
	return SizeSample{CapturedAt: at, AllocatedGB: UnknownSize}
}

// EstimatedBackupGB возвращает ожидаемый размер сжатой копии.
func (s SizeSample) EstimatedBackupGB() float64 {
	if !s.Known() {
		return UnknownSize
	}
	return s.AllocatedGB * BackupSizeRatio
}

// CleanupStepReport - отчёт об одном внешнем шаге очистки.
type CleanupStepReport struct {
	Index           int
	Total           int
	Name            string
	DurationSeconds float64
	Failed          bool
	FailureMessage  string
}

// Header возвращает строку начала шага: "[Step 1/1] name...".
func (r CleanupStepReport) Header() string {
	return fmt.Sprintf("[Step %d/%d] %s...", r.Index, r.Total, r.Name)
}

// String возвращает итоговую строку шага для прогресса.
func (r CleanupStepReport) String() string {
	if r.Failed {
		return fmt.Sprintf("%s failed (%s, %s)", r.Header(), r.FailureMessage, FormatSeconds(r.DurationSeconds))
	}
	return fmt.Sprintf("%s done (%s)", r.Header(), FormatSeconds(r.DurationSeconds))
}

// AccessMode - режим доступа к базе.
type AccessMode int

const (
	// MultiUser - обычный режим.
	MultiUser AccessMode = iota
	// SingleUser - монопольный режим на время RESTORE.
	SingleUser
)

// String возвращает ключевое слово T-SQL для режима.
func (m AccessMode) String() string {
	if m == SingleUser {
		return "SINGLE_USER"
	}
	return "MULTI_USER"
}

// ServiceQuiesceSet - упорядоченный список служб, останавливаемых перед монопольным режимом.
// Запуск выполняется в обратном порядке. Сам SQL Server в список не входит никогда.
type ServiceQuiesceSet []string

// StopOrder возвращает порядок остановки.
func (s ServiceQuiesceSet) StopOrder() []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// StartOrder возвращает порядок запуска (обратный остановке).
func (s ServiceQuiesceSet) StartOrder() []string {
	out := make([]string, 0, len(s))
	for i := len(s) - 1; i >= 0; i-- {
		out = append(out, s[i])
	}
	return out
}

// EscapeSQLLiteral удваивает одинарные кавычки для подстановки в N'...'.
func EscapeSQLLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// QuoteIdentifier заключает имя объекта в квадратные скобки, удваивая ']'.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// FormatGB форматирует размер в ГБ с двумя знаками: "3.00".
func FormatGB(gb float64) string {
	return fmt.Sprintf("%.2f", gb)
}

// FormatSeconds форматирует длительность в целых секундах: "12s".
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.0fs", math.Round(seconds))
}

// BytesToGB переводит байты в гигабайты.
func BytesToGB(b uint64) float64 {
	return float64(b) / 1024.0 / 1024.0 / 1024.0
}
