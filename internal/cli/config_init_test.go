package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cryptoassets-importer/internal/config"
)

func TestConfigInit_DefaultPath(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration initialized successfully")

	path := filepath.Join(env.home, "config.yaml")
	assert.Contains(t, stdout, path)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	_, _, err = env.execute(t, "config", "init")
	require.ErrorIs(t, err, config.ErrConfigExists)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = env.execute(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigInit_ExplicitPathWithBrokenConfig(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "import: [broken")

	// init must work even when the existing file does not parse.
	_, _, err := env.execute(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "concurrency: 50")
}

func TestConfigValidate(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.execute(t, "config", "validate", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration is valid")
	assert.Contains(t, stdout, "erc20 [signed]")
	assert.Contains(t, stdout, "currencies-exchange [json]")

	path := filepath.Join(env.home, "config.yaml")
	writeFile(t, path, "version: 2.0.0\nimport:\n  concurrency: 0\n")
	_, _, err = env.execute(t, "config", "validate")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnsupportedVersion)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConfigShow_AppliesEnvironment(t *testing.T) {
	env := newTestEnv(t)
	env.vars[config.EnvConcurrency] = "7"

	stdout, _, err := env.execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "concurrency: 7")
	assert.Contains(t, stdout, "tickers_url: "+config.New().Registry.TickersURL)
}

func TestRoot_BrokenConfigFailsOtherCommands(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.home, "config.yaml"), "import: [broken")

	_, _, err := env.execute(t, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}
