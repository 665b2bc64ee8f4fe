// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jomare1188/studious-funicular/internal/harvest"
	"github.com/jomare1188/studious-funicular/internal/index"
	"github.com/jomare1188/studious-funicular/internal/rate"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "fulltext/0.1"
	indexFile        = "harvest.db"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [input-dir]",
	Short: "Acquire full text for every DOI in a directory of collections",
	Long: `Harvest reads every <collection>_articles.json file under the input
directory and acquires full text for each DOI: publisher APIs and PDF
endpoints first, the Unpaywall aggregator as the last resort. Artifacts
land under the output directory, one subdirectory per collection, with a
failed_dois.json ledger per collection and a combined all_failed_dois.json
at the end. Already-acquired identifiers are skipped.

Send SIGUSR1 to dump the per-source rate budget to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("output", "files", "base directory for harvested artifacts")
	harvestCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	harvestCmd.Flags().String("email", "", "operator email for the Unpaywall polite pool")
	harvestCmd.Flags().Int("request-limit", 0, "admitted requests per source before cooldown (default 450)")
	harvestCmd.Flags().Duration("cooldown", 0, "per-source cooldown duration (default 90s)")
	harvestCmd.Flags().Duration("collection-delay", 0, "pause between collection files (default 2s)")
	harvestCmd.Flags().String("index", "", "acquisition index database path (default <output>/harvest.db)")
	harvestCmd.Flags().Bool("no-index", false, "run without the acquisition index")
	harvestCmd.Flags().Int("max-retries", 3, "HTTP client retries on transient failures")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	inputDir := "."
	if len(args) == 1 {
		inputDir = args[0]
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	output, _ := cmd.Flags().GetString("output")
	email, _ := cmd.Flags().GetString("email")
	requestLimit, _ := cmd.Flags().GetInt("request-limit")
	cooldown, _ := cmd.Flags().GetDuration("cooldown")
	collectionDelay, _ := cmd.Flags().GetDuration("collection-delay")
	indexPath, _ := cmd.Flags().GetString("index")
	noIndex, _ := cmd.Flags().GetBool("no-index")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")

	cfg := types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		Rate: types.RateConfig{
			RequestLimit: requestLimit,
			Cooldown:     cooldown,
		},
		OutputDir:       output,
		Email:           secretDefault("unpaywall-email", email),
		SecretsDir:      secretsDir,
		IndexPath:       indexPath,
		CollectionDelay: collectionDelay,
	}

	collections, err := harvest.LoadCollections(inputDir)
	if err != nil {
		return err
	}

	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = maxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = cfg.Timeout

	var idx *index.Index
	if !noIndex {
		path := cfg.IndexPath
		if path == "" {
			path = filepath.Join(cfg.OutputDir, indexFile)
		}
		idx, err = index.Open(path)
		if err != nil {
			return fmt.Errorf("opening acquisition index: %w", err)
		}
		defer idx.Close()
	}

	runner := harvest.NewRunner(cfg, client, loadedSecrets, idx)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := make(chan os.Signal, 1)
	signal.Notify(status, syscall.SIGUSR1)
	defer close(status)
	defer signal.Stop(status)
	go watchStatus(status, runner.Gate(), os.Stderr)

	log.WithFields(log.Fields{
		"collections": len(collections),
		"output":      cfg.OutputDir,
	}).Info("starting harvest")

	if err := runner.Run(ctx, collections); err != nil {
		return fmt.Errorf("harvest run: %w", err)
	}
	return nil
}

// watchStatus dumps the per-source rate budget to w on each signal,
// returning once ch is closed.
func watchStatus(ch <-chan os.Signal, g *rate.Gate, w io.Writer) {
	for range ch {
		g.WriteStatus(w)
	}
}
