// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/secrets"
	"github.com/pdiddy/cookbook/pkg/types"
)

// envKeyReplacer maps "ocr.backend" to COOKBOOK_OCR_BACKEND.
var envKeyReplacer = strings.NewReplacer(".", "_")

// flagKeys binds command-line flags to config keys. A flag only overrides
// the key when the running command defines it.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"target-width":  "preprocess.target_width",
	"ocr-backend":   "ocr.backend",
	"ocr-image":     "ocr.image",
	"lang":          "ocr.language",
	"model":         "extraction.model",
	"ollama-url":    "extraction.url",
	"max-retries":   "extraction.max_retries",
	"timeout":       "extraction.timeout",
	"root":          "batch.project_root",
	"image-timeout": "batch.image_timeout",
	"catalog-dir":   "catalog.catalog_dir",
	"recipes-dir":   "catalog.recipes_dir",
	"max-results":   "catalog.max_results",
	"addr":          "serve.addr",
	"allow-origin":  "serve.allowed_origins",
}

// setDefaults registers every config key so environment variables can
// override keys that appear in no config file.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("preprocess.target_width", d.Preprocess.TargetWidth)
	v.SetDefault("preprocess.max_height", d.Preprocess.MaxHeight)
	v.SetDefault("preprocess.block_size", d.Preprocess.BlockSize)
	v.SetDefault("preprocess.offset", d.Preprocess.Offset)

	v.SetDefault("ocr.backend", string(d.OCR.Backend))
	v.SetDefault("ocr.binary", d.OCR.Binary)
	v.SetDefault("ocr.image", d.OCR.Image)
	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("ocr.min_chars", d.OCR.MinChars)

	v.SetDefault("extraction.model", d.Extraction.Model)
	v.SetDefault("extraction.url", d.Extraction.URL)
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.max_retries", d.Extraction.MaxRetries)
	v.SetDefault("extraction.timeout", d.Extraction.Timeout)
	v.SetDefault("extraction.user_agent", d.Extraction.UserAgent)

	v.SetDefault("batch.project_root", d.Batch.ProjectRoot)
	v.SetDefault("batch.image_timeout", d.Batch.ImageTimeout)
	v.SetDefault("batch.debug", d.Batch.Debug)

	v.SetDefault("catalog.catalog_dir", d.Catalog.CatalogDir)
	v.SetDefault("catalog.recipes_dir", d.Catalog.RecipesDir)
	v.SetDefault("catalog.max_results", d.Catalog.MaxResults)

	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.allowed_origins", d.Serve.AllowedOrigins)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// loadConfig binds cmd's flags, decodes the merged settings, fills the API
// key from .secrets when the config leaves it empty, and validates.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (types.Config, error) {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return types.Config{}, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Extraction.APIKey == "" {
		cfg.Extraction.APIKey = loadedSecrets.Get(secrets.OllamaAPIKey)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads the config and the diagnostics logger for a command.
func setup(cmd *cobra.Command) (types.Config, *logging.Provider, error) {
	cfg, err := loadConfig(cmd, viper.GetViper())
	if err != nil {
		return cfg, nil, err
	}
	logs, err := logging.NewProvider(cfg.Logging)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logs, nil
}
