package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Kargones/wsus-dbmaint/internal/config"
)

// Deprecatable реализуется обработчиками устаревших имён команд.
type Deprecatable interface {
	IsDeprecated() bool
	NewName() string
}

var (
	_ Handler      = (*DeprecatedBridge)(nil)
	_ Deprecatable = (*DeprecatedBridge)(nil)
)

// DeprecatedBridge исполняет команду под старым именем (backup, restore, cleanup, version).
// Перед каждым вызовом пишет предупреждение в stderr: stdout занят результатом.
type DeprecatedBridge struct {
	actual     Handler
	deprecated string
	newName    string
	warnOut    io.Writer
}

// Name возвращает устаревшее имя.
func (b *DeprecatedBridge) Name() string {
	return b.deprecated
}

// Description возвращает описание основной команды.
func (b *DeprecatedBridge) Description() string {
	return b.actual.Description()
}

// IsDeprecated всегда true.
func (b *DeprecatedBridge) IsDeprecated() bool {
	return true
}

// NewName возвращает актуальное имя команды.
func (b *DeprecatedBridge) NewName() string {
	return b.newName
}

// Execute предупреждает об устаревшем имени и вызывает основную команду.
// Отменённый контекст возвращается сразу, без предупреждения.
func (b *DeprecatedBridge) Execute(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := b.warnOut
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "WARNING: command '%s' is deprecated, use '%s' instead\n", b.deprecated, b.newName)
	return b.actual.Execute(ctx, cfg)
}
