package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/hookcall/internal/hook"
)

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	return fields
}

func TestValidator_Bench(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no strategies", func(c *Config) { c.Bench.Strategies = nil }, "bench.strategies"},
		{"unknown strategy", func(c *Config) { c.Bench.Strategies = []string{"turbo"} }, "bench.strategies"},
		{"duplicate strategy", func(c *Config) { c.Bench.Strategies = []string{"generic", "generic"} }, "bench.strategies"},
		{"zero iterations", func(c *Config) { c.Bench.Iterations = 0 }, "bench.iterations"},
		{"negative warmup", func(c *Config) { c.Bench.Warmup = -1 }, "bench.warmup"},
		{"negative duration", func(c *Config) { c.Bench.MaxDuration = -1 }, "bench.max_duration"},
		{"negative case", func(c *Config) { c.Bench.Cases = []CaseConfig{{Plugins: -1}} }, "bench.cases[0]"},
		{"nesting without plugins", func(c *Config) { c.Bench.Cases = []CaseConfig{{Nesting: 2}} }, "bench.cases[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Contains(t, validationFields(t, cfg.Validate()), tt.field)
		})
	}
}

func TestValidator_Plugins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plugins.Scripts = []string{"ok.js", "ok.lua", "bad.py"}
	cfg.Plugins.Hooks = []hook.Spec{
		{Name: "fun", ArgNames: []string{"a", "a"}},
		{Name: ""},
		{Name: "fun"},
	}

	fields := validationFields(t, cfg.Validate())
	assert.Contains(t, fields, "plugins.scripts[2]")
	assert.Contains(t, fields, "plugins.hooks[0].args")
	assert.Contains(t, fields, "plugins.hooks[1].name")
	assert.Contains(t, fields, "plugins.hooks[2]")
	assert.NotContains(t, fields, "plugins.scripts[0]")
}

func TestValidator_ReportAndLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Report.Format = "json"
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"
	cfg.Logging.Output = "file"

	fields := validationFields(t, cfg.Validate())
	assert.ElementsMatch(t, []string{
		"report.path",
		"logging.level",
		"logging.format",
		"logging.file_path",
	}, fields)
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
	err := ValidationErrors{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}
	assert.Equal(t, "configuration validation failed:\n  - a: bad\n  - b: worse", err.Error())
	assert.True(t, err.HasErrors())
}

func TestLoader_LoadAndValidate(t *testing.T) {
	_, err := NewLoader().WithCmdArgs(map[string]string{"bench.iterations": "0"}).LoadAndValidate()
	assert.Error(t, err)

	cfg, err := NewLoader().LoadAndValidate()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
