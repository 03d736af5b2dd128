// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/internal/secrets"
	"github.com/pdiddy/cookbook/pkg/types"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addStageFlags(cmd)
	cmd.Flags().Duration("image-timeout", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(testCommand(t), v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfig_FlagsOverrideOnlyWhenSet(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("extraction.model", "mistral:7b")

	cfg, err := loadConfig(testCommand(t, "--ocr-backend", "container", "--image-timeout", "90s"), v)
	require.NoError(t, err)
	assert.Equal(t, types.OCRContainer, cfg.OCR.Backend)
	assert.Equal(t, 90*time.Second, cfg.Batch.ImageTimeout)
	// --model was not passed, so the configured value stands.
	assert.Equal(t, "mistral:7b", cfg.Extraction.Model)
	assert.Equal(t, 120*time.Second, cfg.Extraction.Timeout)
}

func TestLoadConfig_APIKeyFromSecrets(t *testing.T) {
	old := loadedSecrets
	t.Cleanup(func() { loadedSecrets = old })
	loadedSecrets = secrets.Secrets{secrets.OllamaAPIKey: "sk-local"}

	v := viper.New()
	setDefaults(v)
	cfg, err := loadConfig(testCommand(t), v)
	require.NoError(t, err)
	assert.Equal(t, "sk-local", cfg.Extraction.APIKey)

	v.Set("extraction.api_key", "from-config")
	cfg, err = loadConfig(testCommand(t), v)
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.Extraction.APIKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	_, err := loadConfig(testCommand(t, "--ocr-backend", "cloud"), v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
