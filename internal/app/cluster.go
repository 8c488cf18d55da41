package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/clustering"
)

type clusterOutput struct {
	*clustering.Result
	FileErrors     int    `json:"file_errors"`
	RecentPosts    int    `json:"recent_posts,omitempty"`
	Flagged        int    `json:"flagged_duplicates,omitempty"`
	DuplicateError string `json:"duplicate_check_error,omitempty"`
}

func runCluster(args []string) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", "", "Directory containing scraped article .json files")
	out := fs.String("out", "", "Write the clustering result to this file (default stdout)")
	checkDuplicates := fs.Bool("check-duplicates", false, "Flag clusters already published on the WordPress site")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*dir) == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		return 2
	}

	cfg, logger, code := loadEnvironment(envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer rt.Close()

	batch, err := rt.loader.LoadDirectory(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load articles: %v\n", err)
		return 1
	}
	for _, fileErr := range batch.Errors {
		fmt.Fprintf(os.Stderr, "SKIPPED %s: %s\n", fileErr.File, fileErr.Error)
	}

	result, err := rt.service.Cluster(ctx, batch.Articles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Clustering failed: %v\n", err)
		return 1
	}

	output := clusterOutput{Result: result, FileErrors: len(batch.Errors)}
	if *checkDuplicates {
		if rt.detector == nil {
			fmt.Fprintln(os.Stderr, "Warning: --check-duplicates ignored, WP_URL is not configured")
		} else {
			checked := rt.detector.Check(ctx, result.Clusters)
			result.Clusters = checked.Clusters
			output.RecentPosts = checked.RecentPosts
			output.Flagged = checked.Flagged
			if checked.Err != nil {
				output.DuplicateError = checked.Err.Error()
				fmt.Fprintf(os.Stderr, "Warning: duplicate check skipped: %v\n", checked.Err)
			}
		}
	}

	if err := writeJSON(*out, output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}

	fmt.Fprintf(
		os.Stderr,
		"cluster articles=%d clusters=%d dropped_indices=%d rules_loaded=%d flagged=%d batch_id=%s\n",
		len(batch.Articles),
		len(result.Clusters),
		len(result.DroppedIndices),
		result.RulesLoaded,
		output.Flagged,
		result.BatchID,
	)
	return 0
}
