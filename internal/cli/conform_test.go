package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies the harness scenarios into a fresh directory.
func copyScenarios(t *testing.T) string {
	t.Helper()
	src := filepath.Join("..", "harness", "testdata", "scenarios")
	dst := t.TempDir()

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644))
	}
	return dst
}

func runConformJSON(t *testing.T, args ...string) (ConformResult, CLIResponse, error) {
	t.Helper()
	out, _, err := execute(t, hermeticOptions(t), append([]string{"--format", "json", "conform"}, args...)...)
	var result ConformResult
	resp := decodeResponse(t, out, &result)
	return result, resp, err
}

func TestConformCommand_UpdateThenMatch(t *testing.T) {
	dir := copyScenarios(t)

	result, resp, err := runConformJSON(t, dir, "--update")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)
	for _, sr := range result.Scenarios {
		assert.Equal(t, "updated", sr.Golden, sr.Name)
	}
	assert.FileExists(t, filepath.Join(dir, "golden", "name_identity.golden"))

	result, _, err = runConformJSON(t, dir)
	require.NoError(t, err)
	for _, sr := range result.Scenarios {
		assert.Equal(t, "match", sr.Golden, sr.Name)
		assert.True(t, sr.Pass, sr.Name)
	}
}

func TestConformCommand_GoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	_, _, err := runConformJSON(t, dir, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "string_values.golden")
	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))

	result, resp, err := runConformJSON(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFORM_FAILED", resp.Error.Code)
	assert.Equal(t, 1, result.Failed)

	for _, sr := range result.Scenarios {
		if sr.Name == "string_values" {
			assert.Equal(t, "mismatch", sr.Golden)
			assert.False(t, sr.Pass)
		}
	}
}

func TestConformCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_len
description: "Length is off by one"
type: name
cases:
  - op: len
    input: "abc"
    expect: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_len.yaml"), []byte(scenario), 0o644))

	out, _, err := execute(t, hermeticOptions(t), "conform", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_len")
	assert.Contains(t, out, "Conformance Summary: 0 passed, 1 failed, 1 total")
	assert.Contains(t, out, "Error [E_CONFORM_FAILED]")
}

func TestConformCommand_Filter(t *testing.T) {
	dir := copyScenarios(t)

	result, _, err := runConformJSON(t, dir, "--filter", "name_*")
	require.NoError(t, err)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "name_identity", result.Scenarios[0].Name)
	assert.Empty(t, result.Scenarios[0].Golden)
}

func TestConformCommand_Errors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		out, _, err := execute(t, hermeticOptions(t), "conform", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "E_NOT_FOUND")
	})

	t.Run("malformed scenario", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\ntype: name\nbogus: 1\n"), 0o644))

		out, _, err := execute(t, hermeticOptions(t), "conform", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "E_SCENARIO")
	})

	t.Run("empty dir", func(t *testing.T) {
		out, _, err := execute(t, hermeticOptions(t), "conform", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found.")
	})
}
