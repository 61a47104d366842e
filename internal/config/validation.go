package config

import (
	"fmt"
	"strings"

	"yqhp/hookcall/internal/hook"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateBenchConfig(&cfg.Bench)
	v.validatePluginsConfig(&cfg.Plugins)
	v.validateReportConfig(&cfg.Report)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validStrategies 支持的调用策略
var validStrategies = map[string]bool{
	"generic":  true,
	"compiled": true,
}

func (v *Validator) validateBenchConfig(cfg *BenchConfig) {
	if len(cfg.Strategies) == 0 {
		v.addError("bench.strategies", "at least one strategy is required")
	}
	seen := make(map[string]bool)
	for _, s := range cfg.Strategies {
		if !validStrategies[s] {
			v.addError("bench.strategies", fmt.Sprintf("invalid strategy '%s', must be one of: generic, compiled", s))
		}
		if seen[s] {
			v.addError("bench.strategies", fmt.Sprintf("strategy '%s' listed twice", s))
		}
		seen[s] = true
	}

	if cfg.Iterations <= 0 {
		v.addError("bench.iterations", "iterations must be positive")
	}
	if cfg.Warmup < 0 {
		v.addError("bench.warmup", "warmup must be non-negative")
	}
	if cfg.MaxDuration < 0 {
		v.addError("bench.max_duration", "max duration must be non-negative")
	}

	for i, c := range cfg.Cases {
		field := fmt.Sprintf("bench.cases[%d]", i)
		if c.Plugins < 0 || c.Wrappers < 0 || c.Nesting < 0 {
			v.addError(field, "plugins, wrappers and nesting must be non-negative")
		}
		if c.Plugins == 0 && c.Nesting > 0 {
			v.addError(field, "nesting needs at least one plugin")
		}
	}
}

func (v *Validator) validatePluginsConfig(cfg *PluginsConfig) {
	for i, s := range cfg.Scripts {
		if !strings.HasSuffix(s, ".js") && !strings.HasSuffix(s, ".lua") {
			v.addError(fmt.Sprintf("plugins.scripts[%d]", i), fmt.Sprintf("unsupported script '%s', expected .js or .lua", s))
		}
	}

	seen := make(map[string]bool)
	for i, spec := range cfg.Hooks {
		v.validateHookSpec(fmt.Sprintf("plugins.hooks[%d]", i), spec)
		if seen[spec.Name] {
			v.addError(fmt.Sprintf("plugins.hooks[%d]", i), fmt.Sprintf("hook '%s' declared twice", spec.Name))
		}
		seen[spec.Name] = true
	}
}

func (v *Validator) validateHookSpec(field string, spec hook.Spec) {
	if spec.Name == "" {
		v.addError(field+".name", "hook name is required")
	}
	args := make(map[string]bool)
	for _, a := range spec.ArgNames {
		if a == "" {
			v.addError(field+".args", "argument names must not be empty")
		}
		if args[a] {
			v.addError(field+".args", fmt.Sprintf("argument '%s' declared twice", a))
		}
		args[a] = true
	}
}

func (v *Validator) validateReportConfig(cfg *ReportConfig) {
	validFormats := map[string]bool{
		"table": true,
		"json":  true,
		"both":  true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("report.format", fmt.Sprintf("invalid report format '%s', must be one of: table, json, both", cfg.Format))
	}
	if (cfg.Format == "json" || cfg.Format == "both") && cfg.Path == "" {
		v.addError("report.path", "path is required for json reports")
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if cfg.Level == "" {
		v.addError("logging.level", "log level is required")
	} else if !validLevels[strings.ToLower(cfg.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", cfg.Level))
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("logging.format", fmt.Sprintf("invalid log format '%s', must be one of: json, console", cfg.Format))
	}

	validOutputs := map[string]bool{
		"stdout": true,
		"stderr": true,
		"file":   true,
		"both":   true,
	}
	if !validOutputs[strings.ToLower(cfg.Output)] {
		v.addError("logging.output", fmt.Sprintf("invalid log output '%s', must be one of: stdout, stderr, file, both", cfg.Output))
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "file path is required when logging to a file")
	}
	if cfg.MaxSize < 0 || cfg.MaxBackups < 0 || cfg.MaxAge < 0 {
		v.addError("logging", "rotation limits must be non-negative")
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// LoadAndValidate loads configuration and validates it.
func (l *Loader) LoadAndValidate() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
