package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
)

func TestConfigShowCmd(t *testing.T) {
	t.Run("masks keys", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()
		appConfig.LLM.APIKey = "sk-secret"

		out, err := executeCommand("config", "show")

		require.NoError(t, err)
		assert.Contains(t, out, "[chunking]")
		assert.Contains(t, out, "********")
		assert.NotContains(t, out, "sk-secret")
		assert.Equal(t, "sk-secret", appConfig.LLM.APIKey, "the loaded config is not modified")
	})

	t.Run("yaml", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()

		out, err := executeCommand("config", "show", "--format", "yaml")

		require.NoError(t, err)
		assert.Contains(t, out, "chunking:")
		assert.Contains(t, out, "chunk_size:")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()

		_, err := executeCommand("config", "show", "--format", "ini")

		assert.ErrorContains(t, err, `unknown format "ini"`)
	})
}

func TestConfigInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := executeCommand("config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	loaded, err := file.Load(path)
	require.NoError(t, err)
	assert.Equal(t, file.Default().Chunking, loaded.Chunking)

	_, err = executeCommand("config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = executeCommand("config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigInitCmd_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := executeCommand("config", "init", "--config", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunking:")
}
