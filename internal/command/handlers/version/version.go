// Package version реализует команду nr-version: версия сборки и таблица
// соответствия команд их устаревшим именам.
package version

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
)

// RegisterCmd регистрирует nr-version и устаревшее имя version.
func RegisterCmd() error {
	return command.RegisterWithAlias(&VersionHandler{}, constants.ActLegacyVersion)
}

// VersionData содержит информацию о версии приложения.
type VersionData struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit"`

	// RollbackMapping: команды nr-* и их устаревшие имена для скриптов планировщика
	RollbackMapping []RollbackEntry `json:"rollback_mapping"`
}

// RollbackEntry: команда и её устаревшее имя; пусто, если имени нет.
type RollbackEntry struct {
	NRCommand   string `json:"nr_command"`
	LegacyAlias string `json:"legacy_alias"`
}

// WriteText выводит версию в компактном текстовом виде.
func (d *VersionData) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s version %s\n  Go:     %s\n  Commit: %s\n", constants.AppName, d.Version, d.GoVersion, d.Commit)
	if len(d.RollbackMapping) > 0 {
		sb.WriteString("\nRollback Mapping:\n")
		for _, entry := range d.RollbackMapping {
			alias := entry.LegacyAlias
			if alias == "" {
				alias = "(нет)"
			}
			fmt.Fprintf(&sb, "  %-20s → %s\n", entry.NRCommand, alias)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// buildVersionData подставляет "dev" и "unknown" для пустых значений сборки.
func buildVersionData(version, commit string) *VersionData {
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return &VersionData{
		Version:         version,
		GoVersion:       runtime.Version(),
		Commit:          commit,
		RollbackMapping: buildRollbackMapping(),
	}
}

func buildRollbackMapping() []RollbackEntry {
	commands := command.ListAllWithAliases()
	entries := make([]RollbackEntry, 0, len(commands))
	for _, cmd := range commands {
		if !strings.HasPrefix(cmd.Name, "nr-") {
			continue
		}
		entries = append(entries, RollbackEntry{NRCommand: cmd.Name, LegacyAlias: cmd.DeprecatedAlias})
	}
	return entries
}

// VersionHandler обрабатывает команду nr-version.
type VersionHandler struct{}

// Name возвращает имя команды.
func (h *VersionHandler) Name() string {
	return constants.ActNRVersion
}

// Description возвращает описание команды для help.
func (h *VersionHandler) Description() string {
	return "Вывод информации о версии приложения"
}

// Execute выводит версию. Алерты и метрики этапов не нужны: команда не может завершиться отказом обслуживания.
func (h *VersionHandler) Execute(ctx context.Context, cfg *config.Config) error {
	if !dryrun.IsDryRun() && dryrun.IsPlanOnly() {
		return dryrun.WritePlanOnlyUnsupported(os.Stdout, constants.ActNRVersion)
	}
	s := shared.NewSession(ctx, cfg, constants.ActNRVersion, shared.Deps{})
	return s.Success(buildVersionData(constants.Version, constants.PreCommitHash))
}
