package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies the named repository scenarios into a temp dir.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join("../../testdata/scenarios", n+".yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, n+".yaml"), data, 0644))
	}
	return dir
}

func TestTest_RepositoryScenarios(t *testing.T) {
	out, err := execute(t, "test", "../../testdata/scenarios")
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ combat_attack")
	assert.Contains(t, out, "✓ relay_fanin")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_UpdateThenCompareGolden(t *testing.T) {
	dir := copyScenarios(t, "combat_attack", "inbox_routing")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "golden", "combat_attack.golden"))
	assert.FileExists(t, filepath.Join(dir, "golden", "inbox_routing.golden"))

	out, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")

	golden := filepath.Join(dir, "golden", "combat_attack.golden")
	require.NoError(t, os.WriteFile(golden, []byte(`{"trace":[]}`), 0644))

	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ combat_attack")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "✓ inbox_routing")
}

func TestTest_ParallelScenarioSkipsGolden(t *testing.T) {
	dir := copyScenarios(t, "relay_fanin")

	_, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "golden", "relay_fanin.golden"))
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", "../../testdata/scenarios", "--filter", "combat_*")
	require.NoError(t, err, out)

	assert.Contains(t, out, "combat_attack")
	assert.Contains(t, out, "combat_errors")
	assert.NotContains(t, out, "inbox_routing")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTest_JSON(t *testing.T) {
	dir := copyScenarios(t, "combat_errors")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, float64(1), data["passed"])
	assert.Equal(t, float64(1), data["failed"])
	assert.Equal(t, float64(2), data["total"])
}

func TestTest_EmptyAndMissingDirs(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "c.golden"), goldenFilePath(filepath.Join("a", "b", "c.yaml")))
}
