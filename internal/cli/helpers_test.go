package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rshade/cryptoassets-importer/internal/cli"
	"github.com/rshade/cryptoassets-importer/internal/config"
)

// testEnv isolates a command run: its own home directory and quiet logs.
type testEnv struct {
	home string
	vars map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	// Commands must resolve their home through the injected lookup, never
	// through the process environment.
	t.Setenv(config.EnvHome, filepath.Join(t.TempDir(), "process-home"))
	t.Cleanup(config.ResetGlobalConfigForTest)
	return &testEnv{
		home: home,
		vars: map[string]string{
			config.EnvHome:     home,
			config.EnvLogLevel: "error",
		},
	}
}

func (e *testEnv) lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// execute runs the root command with args and returns stdout, stderr and the error.
func (e *testEnv) execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmdWithEnv("test", e.lookup)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content to path, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
