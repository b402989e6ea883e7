package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestDir = "../manifest/testdata/manifests"

func TestManifestsCommand_Valid(t *testing.T) {
	out, _, err := execute(t, hermeticOptions(t), "--format", "json", "manifests", manifestDir)
	require.NoError(t, err)

	var result ManifestsResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	require.Len(t, result.Components, 2)

	thermal := result.Components[0]
	assert.Equal(t, "SimpleThermal", thermal.Name)
	assert.Equal(t, []string{"heater_on:bool", "ambient_temperature:real", "heater_power:real"}, thermal.Inputs)
	assert.Equal(t, []string{"temperature", "heat_flow", "time"}, thermal.Outputs)

	tank := result.Components[1]
	assert.Equal(t, "Tank", tank.Name)
	assert.Equal(t, []string{"tank-solver", "--stdio"}, tank.Command)
}

func TestManifestsCommand_Text(t *testing.T) {
	out, _, err := execute(t, hermeticOptions(t), "manifests", manifestDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 component(s)")
	assert.Contains(t, out, "runtime: tank-solver --stdio")
}

func TestManifestsCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := `component: Broken: {
	inputs: [{name: "x"}, {name: "x"}]
	outputs: []
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte(bad), 0o644))

	out, _, err := execute(t, hermeticOptions(t), "--format", "json", "manifests", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ManifestsResult
	resp := decodeResponse(t, out, &result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_MANIFEST", resp.Error.Code)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestManifestsCommand_MissingDir(t *testing.T) {
	_, _, err := execute(t, hermeticOptions(t), "manifests", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSplitJoined(t *testing.T) {
	_, err := os.Stat(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, []string{err.Error()}, splitJoined(err))
}
