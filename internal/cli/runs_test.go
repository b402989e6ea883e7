package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondlegend4/modelica-gdext/internal/store"
	"github.com/bondlegend4/modelica-gdext/internal/testutil"
)

// recordRuns records one thermal run per ID into a fresh database.
func recordRuns(t *testing.T, ids ...string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	for _, id := range ids {
		opts := hermeticOptions(t)
		opts.Format = "json"
		executeSim(t, &SimOptions{RootOptions: opts, RunIDs: testutil.NewFixedRunIDGenerator(id)},
			"--frames", "3", "--db", db)
	}
	return db
}

func TestRunsCommand_List(t *testing.T) {
	db := recordRuns(t, "run-a", "run-b")

	out, _, err := execute(t, hermeticOptions(t), "--format", "json", "runs", "--db", db)
	require.NoError(t, err)

	var runs []store.Run
	resp := decodeResponse(t, out, &runs)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Less(t, runs[0].Seq, runs[1].Seq)
	for _, r := range runs {
		assert.Equal(t, "SimpleThermal", r.Component)
		assert.Equal(t, store.StatusFinished, r.Status)
		assert.Equal(t, int64(3), r.Frames)
	}
}

func TestRunsCommand_ListText(t *testing.T) {
	db := recordRuns(t, "run-a")

	out, _, err := execute(t, hermeticOptions(t), "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "COMPONENT")
	assert.Contains(t, out, "run-a")
	assert.Contains(t, out, "finished")
}

func TestRunsCommand_Detail(t *testing.T) {
	db := recordRuns(t, "run-a")

	out, _, err := execute(t, hermeticOptions(t), "--format", "json", "runs", "--db", db, "--run", "run-a")
	require.NoError(t, err)

	var detail RunDetail
	decodeResponse(t, out, &detail)
	assert.Equal(t, "run-a", detail.Run.ID)
	require.Len(t, detail.Frames, 3)
	for i, f := range detail.Frames {
		assert.Equal(t, int64(i+1), f.Number)
		assert.Contains(t, f.Outputs, "temperature")
	}

	out, _, err = execute(t, hermeticOptions(t), "runs", "--db", db, "--run", "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-a: SimpleThermal, finished, 3 frame(s)")
	assert.Contains(t, out, "time=")
}

func TestRunsCommand_Errors(t *testing.T) {
	t.Run("unknown run", func(t *testing.T) {
		db := recordRuns(t, "run-a")
		out, _, err := execute(t, hermeticOptions(t), "runs", "--db", db, "--run", "ghost")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "run not found: ghost")
	})

	t.Run("missing database", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "none.db")
		out, _, err := execute(t, hermeticOptions(t), "runs", "--db", db)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "E_NOT_FOUND")
		assert.NoFileExists(t, db)
	})

	t.Run("db required", func(t *testing.T) {
		_, _, err := execute(t, hermeticOptions(t), "runs")
		require.Error(t, err)
	})
}

func TestRunsCommand_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, hermeticOptions(t), "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}
