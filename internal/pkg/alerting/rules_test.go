package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesEngine_Evaluate(t *testing.T) {
	alert := func(code, command string, sev Severity) Alert {
		return Alert{ErrorCode: code, Command: command, Severity: sev}
	}

	tests := []struct {
		name    string
		rules   RulesConfig
		alert   Alert
		channel string
		want    bool
	}{
		{"пустые правила пропускают всё", RulesConfig{}, alert("MAINT.CANCELLED", "nr-db-backup", SeverityInfo), ChannelWebhook, true},
		{"ниже минимального уровня", RulesConfig{MinSeverity: "CRITICAL"},
			alert("MAINT.ENGINE_EXECUTION_FAILED", "nr-db-backup", SeverityWarning), ChannelWebhook, false},
		{"уровень в нижнем регистре", RulesConfig{MinSeverity: "warning"},
			alert("MAINT.ENGINE_EXECUTION_FAILED", "nr-db-backup", SeverityWarning), ChannelWebhook, true},
		{"исключённый код", RulesConfig{ExcludeErrorCodes: []string{"MAINT.CANCELLED"}},
			alert("MAINT.CANCELLED", "nr-db-restore", SeverityCritical), ChannelWebhook, false},
		{"include важнее exclude", RulesConfig{
			IncludeErrorCodes: []string{"MAINT.CANCELLED"},
			ExcludeErrorCodes: []string{"MAINT.CANCELLED"},
		}, alert("MAINT.CANCELLED", "nr-db-restore", SeverityCritical), ChannelWebhook, true},
		{"код вне include", RulesConfig{IncludeErrorCodes: []string{"MAINT.INTEGRITY_CHECK_FAILED"}},
			alert("MAINT.CANCELLED", "nr-db-restore", SeverityCritical), ChannelWebhook, false},
		{"исключённая команда", RulesConfig{ExcludeCommands: []string{"nr-db-cleanup"}},
			alert("MAINT.ENGINE_EXECUTION_FAILED", "nr-db-cleanup", SeverityCritical), ChannelWebhook, false},
		{"команда вне include", RulesConfig{IncludeCommands: []string{"nr-db-restore"}},
			alert("MAINT.ENGINE_EXECUTION_FAILED", "nr-db-backup", SeverityCritical), ChannelWebhook, false},
		{"категория в include", RulesConfig{IncludeErrorCodes: []string{"MAINT.*"}},
			alert("MAINT.SERVICES_NOT_RESUMED", "nr-db-restore", SeverityCritical), ChannelWebhook, true},
		{"чужая категория вне include", RulesConfig{IncludeErrorCodes: []string{"MAINT.*"}},
			alert("CONFIG.MISSING", "nr-db-restore", SeverityCritical), ChannelWebhook, false},
		{"категория в exclude", RulesConfig{ExcludeErrorCodes: []string{" CONFIG.* "}},
			alert("CONFIG.MISSING", "nr-db-cleanup", SeverityCritical), ChannelWebhook, false},
		{"правило канала заменяет глобальное", RulesConfig{
			MinSeverity: "CRITICAL",
			Channels:    map[string]ChannelRulesConfig{ChannelWebhook: {MinSeverity: "INFO"}},
		}, alert("MAINT.FILE_NOT_FOUND", "nr-db-verify", SeverityInfo), ChannelWebhook, true},
		{"правило другого канала не действует", RulesConfig{
			MinSeverity: "CRITICAL",
			Channels:    map[string]ChannelRulesConfig{"other": {MinSeverity: "INFO"}},
		}, alert("MAINT.FILE_NOT_FOUND", "nr-db-verify", SeverityInfo), ChannelWebhook, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewRulesEngine(tt.rules)
			assert.Equal(t, tt.want, engine.Evaluate(tt.alert, tt.channel))
		})
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARNING", SeverityWarning.String())
	assert.Equal(t, "CRITICAL", SeverityCritical.String())
	assert.Equal(t, "UNKNOWN", Severity(42).String())
	assert.Equal(t, SeverityInfo, parseSeverity("bogus"))
}
