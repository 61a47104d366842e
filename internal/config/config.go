package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/hookcall/internal/hook"
)

// Config represents the complete configuration for hookbench.
type Config struct {
	Bench   BenchConfig   `yaml:"bench"`
	Plugins PluginsConfig `yaml:"plugins"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// BenchConfig holds the measurement settings.
type BenchConfig struct {
	Strategies  []string      `yaml:"strategies" env:"HB_BENCH_STRATEGIES"`
	Iterations  int           `yaml:"iterations" env:"HB_BENCH_ITERATIONS"`
	Warmup      int           `yaml:"warmup" env:"HB_BENCH_WARMUP"`
	MaxDuration time.Duration `yaml:"max_duration" env:"HB_BENCH_MAX_DURATION"`
	Multicall   bool          `yaml:"multicall" env:"HB_BENCH_MULTICALL"`
	// Cases replaces the default case table when non-empty.
	Cases []CaseConfig `yaml:"cases"`
}

// CaseConfig is one row of the case table.
type CaseConfig struct {
	Plugins  int `yaml:"plugins"`
	Wrappers int `yaml:"wrappers"`
	Nesting  int `yaml:"nesting"`
}

// PluginsConfig describes script plugins and the hooks they answer.
type PluginsConfig struct {
	Scripts []string    `yaml:"scripts" env:"HB_PLUGINS_SCRIPTS"`
	Hooks   []hook.Spec `yaml:"hooks"`
	Compile bool        `yaml:"compile" env:"HB_PLUGINS_COMPILE"`
	Trace   bool        `yaml:"trace" env:"HB_PLUGINS_TRACE"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Format string `yaml:"format" env:"HB_REPORT_FORMAT"`
	Path   string `yaml:"path" env:"HB_REPORT_PATH"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"HB_LOG_LEVEL"`
	Format     string `yaml:"format" env:"HB_LOG_FORMAT"`
	Output     string `yaml:"output" env:"HB_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"HB_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"HB_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"HB_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"HB_LOG_MAX_AGE"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Bench: BenchConfig{
			Strategies:  []string{"generic", "compiled"},
			Iterations:  10000,
			Warmup:      1000,
			MaxDuration: 10 * time.Second,
			Multicall:   false,
		},
		Plugins: PluginsConfig{
			Scripts: []string{},
			Hooks:   []hook.Spec{},
		},
		Report: ReportConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
	cmdArgs    map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "HB_",
		cmdArgs:   make(map[string]string),
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the prefix for environment variables. The prefix
// replaces the leading "HB_" of every env tag.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithCmdArgs sets command-line arguments for configuration override.
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < command-line flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("从文件加载配置失败: %w", err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	if err := l.applyCmdOverrides(cfg); err != nil {
		return nil, fmt.Errorf("应用命令行参数覆盖失败: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	return l.applyEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envName := l.envPrefix + strings.TrimPrefix(envTag, "HB_")

		envValue := os.Getenv(envName)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("从环境变量 %s 设置字段 %s 失败: %w", envName, fieldType.Name, err)
		}
	}

	return nil
}

// applyCmdOverrides applies command-line argument overrides to the configuration.
func (l *Loader) applyCmdOverrides(cfg *Config) error {
	for key, value := range l.cmdArgs {
		if err := SetValue(cfg, key, value); err != nil {
			return fmt.Errorf("设置配置值 %s 失败: %w", key, err)
		}
	}
	return nil
}

// SetValue sets a configuration value by dot-notation path, using the yaml
// key names (for example "bench.iterations").
func SetValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		field, ok := fieldByKey(v, part)
		if !ok {
			return fmt.Errorf("未知的配置路径: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("期望 %s 是结构体，实际是 %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

// fieldByKey finds a struct field by yaml key or, case-insensitively, by name.
func fieldByKey(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if tag == key || strings.EqualFold(f.Name, strings.ReplaceAll(key, "_", "")) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("无法设置字段")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("无效的时间格式: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("无效的整数: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("无效的布尔值: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		// 字符串切片使用逗号分隔
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("不支持的切片类型: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))

	default:
		return fmt.Errorf("不支持的字段类型: %s", field.Kind())
	}

	return nil
}

// ParseOverrides parses "key=value" pairs into an override map.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("无效的覆盖参数 %q，格式应为 key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}
