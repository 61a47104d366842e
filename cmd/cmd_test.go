package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/hookcall/internal/bench"
)

// executeCommand 重置全局 flags 后执行命令
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, debug, quiet, overrides = "", false, false, nil
	planHook, planScripts, planPlugins, planWrappers, planNesting = "", nil, 1, 0, 0
	callScripts, callCompile = nil, false

	var buf bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	cfgPath := writeFile(t, dir, "bench.yaml", `
bench:
  iterations: 20
  warmup: 2
  cases:
    - {plugins: 2, wrappers: 1, nesting: 1}
report:
  format: both
  path: `+reportPath+`
`)

	out, err := executeCommand(t, "run", "--config", cfgPath, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "call_hook[generic-002-001-001]")
	assert.Contains(t, out, "call_hook[compiled-002-001-001]")
	assert.Contains(t, out, "speedup")

	rep, err := bench.LoadJSON(reportPath)
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, int64(20), rep.Results[0].Iterations)
	require.Len(t, rep.Speedups, 1)
}

func TestRunCommandInvalidOverride(t *testing.T) {
	_, err := executeCommand(t, "run", "--set", "bench.iterations")
	assert.Error(t, err)
}

func TestPlanCommand(t *testing.T) {
	out, err := executeCommand(t, "plan", "--plugins", "2", "--wrappers", "1", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "plan fun(hooks, nesting)")
	assert.Contains(t, out, "enter")
	assert.Contains(t, out, "symbols (3):")
	assert.Contains(t, out, "wrap_plug_0")
}

func TestCallCommand(t *testing.T) {
	dir := t.TempDir()
	js := writeFile(t, dir, "adder.js", `
hookimpl("add", ["a", "b"], function (a, b) { return a + b; });
`)
	lua := writeFile(t, dir, "doubler.lua", `
hookwrapper("add", {}, function() end, function(result, err)
  return {result[1] * 2}
end)
`)
	cfgPath := writeFile(t, dir, "hooks.yaml", `
plugins:
  hooks:
    - name: add
      args: [a, b]
`)

	for _, compile := range []bool{false, true} {
		args := []string{"call", "add", `{"a": 1, "b": 2}`, "--config", cfgPath, "--script", js, "--script", lua, "-q"}
		if compile {
			args = append(args, "--compile")
		}
		out, err := executeCommand(t, args...)
		require.NoError(t, err)
		assert.JSONEq(t, `[6]`, out)
	}
}

func TestCallCommandUnknownHook(t *testing.T) {
	dir := t.TempDir()
	js := writeFile(t, dir, "adder.js", `hookimpl("add", ["a", "b"], function (a, b) { return a + b; });`)

	_, err := executeCommand(t, "call", "missing", "--script", js, "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add")
}

func TestCallCommandBadJSON(t *testing.T) {
	_, err := executeCommand(t, "call", "add", "{not json", "-q")
	assert.Error(t, err)
}
