package alerting

import "strings"

// RulesConfig содержит правила фильтрации алертов.
// IncludeX имеет приоритет над ExcludeX.
type RulesConfig struct {
	// MinSeverity: минимальный уровень: INFO, WARNING, CRITICAL.
	MinSeverity string

	ExcludeErrorCodes []string
	IncludeErrorCodes []string
	ExcludeCommands   []string
	IncludeCommands   []string

	// Channels: правила каналов. Правило канала заменяет глобальное целиком.
	Channels map[string]ChannelRulesConfig
}

// ChannelRulesConfig: правила для конкретного канала алертинга.
type ChannelRulesConfig struct {
	MinSeverity       string
	ExcludeErrorCodes []string
	IncludeErrorCodes []string
	ExcludeCommands   []string
	IncludeCommands   []string
}

// filter: фильтр include/exclude. Непустой include имеет приоритет над exclude.
type filter struct {
	include matcher
	exclude matcher
}

// allows сообщает, проходит ли значение фильтр.
func (f filter) allows(value string) bool {
	if len(f.include) > 0 {
		return f.include.match(value)
	}
	return !f.exclude.match(value)
}

// matcher: множество значений. Элемент вида "MAINT.*" совпадает со всеми кодами категории.
type matcher map[string]struct{}

func (m matcher) match(value string) bool {
	if len(m) == 0 {
		return false
	}
	if _, ok := m[value]; ok {
		return true
	}
	if category, _, found := strings.Cut(value, "."); found {
		_, ok := m[category+".*"]
		return ok
	}
	return false
}

// ruleConfig: набор правил одного канала или глобальный.
type ruleConfig struct {
	minSeverity Severity
	codes       filter
	commands    filter
}

// RulesEngine оценивает алерты по правилам фильтрации.
type RulesEngine struct {
	global   ruleConfig
	channels map[string]ruleConfig
}

// NewRulesEngine создаёт RulesEngine из конфигурации.
func NewRulesEngine(config RulesConfig) *RulesEngine {
	engine := &RulesEngine{
		global:   buildRuleConfig(config.MinSeverity, config.ExcludeErrorCodes, config.IncludeErrorCodes, config.ExcludeCommands, config.IncludeCommands),
		channels: make(map[string]ruleConfig, len(config.Channels)),
	}
	for name, ch := range config.Channels {
		engine.channels[name] = buildRuleConfig(ch.MinSeverity, ch.ExcludeErrorCodes, ch.IncludeErrorCodes, ch.ExcludeCommands, ch.IncludeCommands)
	}
	return engine
}

// Evaluate проверяет, должен ли алерт быть отправлен в указанный канал.
func (e *RulesEngine) Evaluate(alert Alert, channel string) bool {
	rule := e.global
	if channelRule, ok := e.channels[channel]; ok {
		rule = channelRule
	}
	return alert.Severity >= rule.minSeverity &&
		rule.codes.allows(alert.ErrorCode) &&
		rule.commands.allows(alert.Command)
}

// parseSeverity конвертирует строковое представление severity в Severity.
func parseSeverity(s string) Severity {
	switch strings.ToUpper(s) {
	case "WARNING":
		return SeverityWarning
	case "CRITICAL":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// buildRuleConfig создаёт ruleConfig из строковых параметров.
func buildRuleConfig(minSeverity string, excludeErrors, includeErrors, excludeCommands, includeCommands []string) ruleConfig {
	return ruleConfig{
		minSeverity: parseSeverity(minSeverity),
		codes:       filter{include: toSet(includeErrors), exclude: toSet(excludeErrors)},
		commands:    filter{include: toSet(includeCommands), exclude: toSet(excludeCommands)},
	}
}

// toSet переводит список в matcher; пробелы по краям отбрасываются.
func toSet(items []string) matcher {
	if len(items) == 0 {
		return nil
	}
	m := make(matcher, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			m[item] = struct{}{}
		}
	}
	return m
}
