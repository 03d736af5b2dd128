// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cookbook CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cookbook/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the cookbook CLI.
var rootCmd = &cobra.Command{
	Use:   "cookbook",
	Short: "Digitize, check, and catalog a Markdown family cookbook",
	Long: `cookbook maintains a family cookbook kept as Markdown files.

It turns photographed recipe cards into Recipe Documents (process, batch),
checks documents against the cookbook template (parse, validate, fmt),
keeps the Cookbook Index table of contents in step with the recipe set
(index), and builds a searchable catalog served over a small read-only
API (catalog, serve).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cookbook.yaml or ~/.config/cookbook/cookbook.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret key files")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "diagnostic log format: console, json, pretty")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cookbook")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cookbook"))
		}
	}

	viper.SetEnvPrefix("COOKBOOK")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
