package config

import (
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigRoundTripProperty checks deserialize(serialize(config)) == config.
func TestConfigRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("config round-trip preserves data", prop.ForAll(
		func(config *Config) bool {
			yamlBytes, err := config.Serialize()
			if err != nil {
				return false
			}
			parsed, err := ParseConfig(yamlBytes)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(config, parsed)
		},
		genConfig(),
	))

	properties.TestingRun(t)
}

// TestGeneratedConfigsValidateProperty checks generated configs pass validation.
func TestGeneratedConfigsValidateProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("generated configs are valid", prop.ForAll(
		func(config *Config) bool {
			return config.Validate() == nil
		},
		genConfig(),
	))

	properties.TestingRun(t)
}

// TestOverridePrecedenceProperty checks command-line overrides always win.
func TestOverridePrecedenceProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("bench.iterations override wins", prop.ForAll(
		func(n int) bool {
			cfg, err := NewLoader().WithCmdArgs(map[string]string{
				"bench.iterations": strconv.Itoa(n),
			}).Load()
			return err == nil && cfg.Bench.Iterations == n
		},
		gen.IntRange(1, 1_000_000),
	))

	properties.TestingRun(t)
}

// genConfig generates a complete configuration.
func genConfig() gopter.Gen {
	return gopter.CombineGens(
		genBenchConfig(),
		gen.OneConstOf("debug", "info", "warn", "error"),
		gen.OneConstOf("json", "console"),
		gen.Bool(),
	).Map(func(values []interface{}) *Config {
		cfg := DefaultConfig()
		cfg.Bench = values[0].(BenchConfig)
		cfg.Logging.Level = values[1].(string)
		cfg.Logging.Format = values[2].(string)
		cfg.Plugins.Compile = values[3].(bool)
		return cfg
	})
}

// genBenchConfig generates a bench configuration.
func genBenchConfig() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("generic", "compiled"),
		gen.IntRange(1, 100000),
		gen.IntRange(0, 1000),
		gen.IntRange(1, 60),
		gen.Bool(),
		gen.SliceOfN(3, genCaseConfig()),
	).Map(func(values []interface{}) BenchConfig {
		return BenchConfig{
			Strategies:  []string{values[0].(string)},
			Iterations:  values[1].(int),
			Warmup:      values[2].(int),
			MaxDuration: time.Duration(values[3].(int)) * time.Second,
			Multicall:   values[4].(bool),
			Cases:       values[5].([]CaseConfig),
		}
	})
}

// genCaseConfig generates one case table row.
func genCaseConfig() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 200),
		gen.IntRange(0, 50),
		gen.IntRange(0, 5),
	).Map(func(values []interface{}) CaseConfig {
		return CaseConfig{
			Plugins:  values[0].(int),
			Wrappers: values[1].(int),
			Nesting:  values[2].(int),
		}
	})
}
