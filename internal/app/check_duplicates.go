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
)

func runCheckDuplicates(args []string) int {
	fs := flag.NewFlagSet("check-duplicates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	in := fs.String("in", "", "Clusters JSON (output of the cluster command or a bare array)")
	out := fs.String("out", "", "Write the flagged clusters to this file (default stdout)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*in) == "" {
		fmt.Fprintln(os.Stderr, "--in is required")
		return 2
	}

	clusters, err := readClusters(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read clusters: %v\n", err)
		return 1
	}

	cfg, logger, code := loadEnvironment(envLoader)
	if code != 0 {
		return code
	}
	if !cfg.DuplicateCheckEnabled() {
		fmt.Fprintln(os.Stderr, "WP_URL is not configured")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer rt.Close()

	result := rt.detector.Check(ctx, clusters)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "Warning: duplicate check skipped: %v\n", result.Err)
	}

	if err := writeJSON(*out, result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "check-duplicates clusters=%d recent_posts=%d flagged=%d\n", len(result.Clusters), result.RecentPosts, result.Flagged)
	return 0
}
