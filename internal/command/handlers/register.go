// Package handlers регистрирует все обработчики команд в реестре.
// Регистрация явная: без init() и побочных эффектов импорта.
package handlers

import (
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/dbbackuphandler"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/dbcleanuphandler"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/dbrestorehandler"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/dbverifyhandler"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/help"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/version"
)

// RegisterAll регистрирует обработчики. Вызывается один раз из main до выполнения команды.
func RegisterAll(deps shared.Deps) error {
	registrations := []func() error{
		func() error { return dbbackuphandler.RegisterCmd(deps) },
		func() error { return dbverifyhandler.RegisterCmd(deps) },
		func() error { return dbrestorehandler.RegisterCmd(deps) },
		func() error { return dbcleanuphandler.RegisterCmd(deps) },
		help.RegisterCmd,
		version.RegisterCmd,
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
