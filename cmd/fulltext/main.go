// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fulltext CLI: bulk acquisition
// of article full text and metadata for collections of DOIs.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jomare1188/studious-funicular/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API credentials loaded from the secrets directory
// at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the loaded secret
// for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the fulltext CLI.
var rootCmd = &cobra.Command{
	Use:   "fulltext",
	Short: "Bulk full-text and metadata acquisition for DOI collections",
	Long: `fulltext downloads article full text for collections of DOIs, trying
publisher APIs first and falling back to open-access sources. Each DOI is
classified by its registrant prefix, fetched through the matching source
under a per-source rate budget, and persisted as a structured JSON record
or a PDF. Identifiers that exhaust every source land in a failure ledger.

Collections are JSON files named <collection>_articles.json, one directory
per run. Credentials live in a secrets directory, one file per key.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir)
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
		known := make(map[string]bool, len(secrets.Known))
		for _, k := range secrets.Known {
			known[k] = true
		}
		for k := range s {
			if !known[k] {
				fmt.Fprintf(os.Stderr, "warning: unrecognized secret file %q\n", k)
			}
		}

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fulltext.yaml or ~/.config/fulltext/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of per-file API credentials")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fulltext")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fulltext"))
		}
	}

	viper.SetEnvPrefix("FULLTEXT")
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
