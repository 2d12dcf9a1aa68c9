package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"env": "test", "mongodb": {"uri": "mongodb://localhost:27017"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "index-queue", cfg.RabbitMQ.IndexQueue)
	assert.Equal(t, "shows-details-queue", cfg.RabbitMQ.DetailsQueue)
	assert.Equal(t, "-deadletter", cfg.RabbitMQ.DeadLetterSuffix)
	assert.Equal(t, 200, cfg.Import.FullPageThreshold)
	assert.Equal(t, 3, cfg.Import.MaxRetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Import.BaseDelay())
	assert.Equal(t, "https://api.tvmaze.com", cfg.TVMaze.BaseURL)
}

func TestLoadConfig_KeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9000,
		"rabbitmq": {"index_queue": "idx", "dead_letter_suffix": "-dlq"},
		"import": {"full_page_threshold": 250, "base_delay_seconds": 5}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "idx-dlq", cfg.RabbitMQ.DeadLetterQueue(cfg.RabbitMQ.IndexQueue))
	assert.Equal(t, 250, cfg.Import.FullPageThreshold)
	assert.Equal(t, 5*time.Second, cfg.Import.BaseDelay())
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("MONGODB_PASSWORD", "from-env")
	t.Setenv("RABBITMQ_PASSWORD", "rabbit-env")
	path := writeConfig(t, `{"mongodb": {"password": "from-file"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.MongoDB.Password)
	assert.Equal(t, "rabbit-env", cfg.RabbitMQ.Password)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	path := writeConfig(t, `{not json`)
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}
