// Package command содержит интерфейс обработчика и реестр команд wsus-dbmaint.
// Обработчики регистрируются сами из пакетов handlers/*, main.go о них не знает.
package command

import (
	"context"

	"github.com/Kargones/wsus-dbmaint/internal/config"
)

// Handler: обработчик одной команды.
type Handler interface {
	// Name возвращает имя команды, совпадающее с константой из internal/constants.
	Name() string

	// Description возвращает строку для help.
	Description() string

	// Execute выполняет команду. Ошибка означает ненулевой код выхода.
	Execute(ctx context.Context, cfg *config.Config) error
}
