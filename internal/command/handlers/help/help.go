// Package help реализует команду help: список команд с устаревшими именами
// и справка по переменным окружения.
package help

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Kargones/wsus-dbmaint/internal/command"
	"github.com/Kargones/wsus-dbmaint/internal/command/handlers/shared"
	"github.com/Kargones/wsus-dbmaint/internal/config"
	"github.com/Kargones/wsus-dbmaint/internal/constants"
	"github.com/Kargones/wsus-dbmaint/internal/pkg/dryrun"
)

// RegisterCmd регистрирует команду help.
func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Data содержит информацию обо всех доступных командах.
type Data struct {
	Commands []CommandInfo `json:"commands"`
	// Environment: справка по переменным окружения; только в текстовом выводе
	Environment string `json:"-"`
}

// CommandInfo описывает одну команду.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Alias: устаревшее имя, которое продолжает работать
	Alias string `json:"alias,omitempty"`
}

// Handler обрабатывает команду help.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActHelp
}

// Description возвращает описание команды для help.
func (h *Handler) Description() string {
	return "Вывод списка доступных команд"
}

// Execute выводит список команд.
func (h *Handler) Execute(ctx context.Context, cfg *config.Config) error {
	if !dryrun.IsDryRun() && dryrun.IsPlanOnly() {
		return dryrun.WritePlanOnlyUnsupported(os.Stdout, constants.ActHelp)
	}
	s := shared.NewSession(ctx, cfg, constants.ActHelp, shared.Deps{})

	data := buildData()
	if !s.JSON() {
		env, err := config.EnvDescription()
		if err != nil {
			s.Log.Warn("Справка по переменным окружения недоступна", slog.String("error", err.Error()))
		}
		data.Environment = env
	}
	return s.Success(data)
}

// buildData собирает команды из реестра; устаревшие имена идут в Alias основной команды.
func buildData() *Data {
	data := &Data{Commands: []CommandInfo{}}
	for _, info := range command.ListAllWithAliases() {
		h, ok := command.Get(info.Name)
		if !ok {
			continue
		}
		data.Commands = append(data.Commands, CommandInfo{
			Name:        info.Name,
			Description: h.Description(),
			Alias:       info.DeprecatedAlias,
		})
	}
	return data
}

// WriteText выводит справку в человекочитаемом виде.
func (d *Data) WriteText(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(constants.AppName + ": обслуживание базы WSUS (SUSDB)\n")
	sb.WriteString("\nКоманды (WSUS_COMMAND):\n")

	maxLen := 0
	for _, cmd := range d.Commands {
		maxLen = max(maxLen, len(cmd.Name))
	}
	for _, cmd := range d.Commands {
		desc := cmd.Description
		if cmd.Alias != "" {
			desc = fmt.Sprintf("%s [устаревшее имя: %s]", desc, cmd.Alias)
		}
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxLen, cmd.Name, desc)
	}

	sb.WriteString("\nРежимы:\n")
	sb.WriteString("  WSUS_OUTPUT_FORMAT=json  Машиночитаемый вывод\n")
	sb.WriteString("  WSUS_DRY_RUN=true        План операций без выполнения\n")
	sb.WriteString("  WSUS_PLAN_ONLY=true      Только план операций\n")
	sb.WriteString("  WSUS_VERBOSE=true        План перед выполнением\n")

	if d.Environment != "" {
		sb.WriteString("\nПеременные окружения:\n")
		sb.WriteString(d.Environment)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
