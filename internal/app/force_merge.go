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

func runForceMerge(args []string) int {
	fs := flag.NewFlagSet("force-merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	in := fs.String("in", "", "Clusters JSON (output of the cluster command or a bare array)")
	idsRaw := fs.String("ids", "", "Comma-separated cluster ids to merge (default: every cluster in --in)")
	out := fs.String("out", "", "Write the merge result to this file (default stdout)")
	timeout := fs.Duration("timeout", time.Minute, "Overall timeout")

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
	ids, err := parseIDs(*idsRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--ids: %v\n", err)
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer rt.Close()

	var result *clustering.LearnResult
	if len(ids) == 0 {
		result, err = rt.service.Learn(ctx, clusters)
	} else {
		result, err = rt.service.ForceMerge(ctx, clusters, ids)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Force merge rejected: %v\n", err)
		if errors.Is(err, clustering.ErrInvalidForceMerge) {
			return 2
		}
		return 1
	}
	if result.RuleError != "" {
		fmt.Fprintf(os.Stderr, "Warning: merge done but rule not saved: %s\n", result.RuleError)
	}

	if err := writeJSON(*out, result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}

	learned := "none"
	if result.Rule != nil {
		learned = strings.Join(result.Rule.Tokens, ",")
	}
	fmt.Fprintf(
		os.Stderr,
		"force-merge merged_id=%d sources=%d learned_tokens=%s rule_count=%d\n",
		result.Merged.ID,
		len(result.Merged.Sources),
		learned,
		result.RuleCount,
	)
	return 0
}
