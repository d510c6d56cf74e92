package smoketest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
)

func init() {
	if err := handlers.RegisterAll(shared.Deps{}); err != nil {
		panic("smoketest: failed to register handlers: " + err.Error())
	}
}

var allCommands = []string{
	constants.ActNRDbBackup,
	constants.ActNRDbVerify,
	constants.ActNRDbRestore,
	constants.ActNRDbCleanup,
	constants.ActNRVersion,
	constants.ActHelp,
}

var deprecatedAliases = []struct {
	deprecated string
	newName    string
}{
	{constants.ActLegacyBackup, constants.ActNRDbBackup},
	{constants.ActLegacyRestore, constants.ActNRDbRestore},
	{constants.ActLegacyCleanup, constants.ActNRDbCleanup},
	{constants.ActLegacyVersion, constants.ActNRVersion},
}

func TestSmoke_AllCommandsRegistered(t *testing.T) {
	for _, name := range allCommands {
		t.Run(name, func(t *testing.T) {
			h, ok := command.Get(name)
			require.True(t, ok, "команда %s не зарегистрирована", name)
			assert.Equal(t, name, h.Name())
			assert.NotEmpty(t, h.Description())
		})
	}
}

func TestSmoke_DeprecatedAliases(t *testing.T) {
	for _, a := range deprecatedAliases {
		t.Run(a.deprecated, func(t *testing.T) {
			h, ok := command.Get(a.deprecated)
			require.True(t, ok)

			dep, ok := h.(command.Deprecatable)
			require.True(t, ok, "%s должен быть DeprecatedBridge", a.deprecated)
			assert.True(t, dep.IsDeprecated())
			assert.Equal(t, a.newName, dep.NewName())
		})
	}
}

func TestSmoke_RegistryContents(t *testing.T) {
	names := command.Names()
	assert.Len(t, names, len(allCommands)+len(deprecatedAliases))
	assert.IsNonDecreasing(t, names)
	assert.Equal(t, names, command.Names(), "список команд детерминирован")
}
