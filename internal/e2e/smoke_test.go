package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	stdout, stderr, err := runS5(t, binaryPath, home, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)

	stdout, stderr, err = runS5(t, binaryPath, home, "vote", "v1", "like")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "queued like on v1")

	stdout, stderr, err = runS5(t, binaryPath, home, "queue", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "queued: 1")

	stdout, stderr, err = runS5(t, binaryPath, home, "reset")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "cleared queued votes")

	stdout, stderr, err = runS5(t, binaryPath, home, "queue", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "queued: 0")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "s5-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/s5")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build s5 binary: %s", string(output))
	return binaryPath
}

func runS5(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"S5_STORE_BACKEND=file",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
