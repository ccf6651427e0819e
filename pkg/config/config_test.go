package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{"api_key": "k", "shared_secret": "s"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "s", cfg.SharedSecret)
	assert.Equal(t, BackendRTM, cfg.Backend)
	assert.Equal(t, "P: ", cfg.ProjectPrefix)
	assert.Equal(t, "next-action", cfg.NextActionTag)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `{
		"api_key": "client-id",
		"shared_secret": "client-secret",
		"backend": "gtasks",
		"project_prefix": "@",
		"color": "never",
		"log": {"level": "debug", "encoding": "json"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendGTasks, cfg.Backend)
	assert.Equal(t, "@", cfg.ProjectPrefix)
	assert.Equal(t, ColorNever, cfg.Color)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
}

func TestLoad_MissingSharedSecret(t *testing.T) {
	path := writeConfig(t, `{"api_key": "k"}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "shared_secret")
	assert.NotContains(t, err.Error(), "api_key")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_UnknownBackend(t *testing.T) {
	path := writeConfig(t, `{"api_key": "k", "shared_secret": "s", "backend": "todoist"}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "todoist")
}

func TestLoad_EmptyNextActionTag(t *testing.T) {
	for _, tag := range []string{`""`, `"   "`} {
		path := writeConfig(t, `{"api_key": "k", "shared_secret": "s", "next_action_tag": `+tag+`}`)

		_, err := Load(path)
		require.Error(t, err, tag)
		assert.True(t, errors.Is(err, ErrConfig))
		assert.Contains(t, err.Error(), "next_action_tag")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"api_key": `)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}
