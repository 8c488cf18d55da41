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
	"horse.fit/newsdesk/internal/rules"
)

func runRules(args []string) int {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 20, "Show at most this many of the newest rules")
	asJSON := fs.Bool("json", false, "Print rules as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 || *limit > rules.MaxRules {
		fmt.Fprintf(os.Stderr, "--limit must be between 1 and %d\n", rules.MaxRules)
		return 2
	}

	cfg, logger, code := loadEnvironment(envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, closeStore, err := openRuleStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open rule store: %v\n", err)
		return 1
	}
	defer closeStore()

	list, err := store.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Str("rule_store", cfg.RuleStoreDriverName()).Msg("rules load failed")
		fmt.Fprintf(os.Stderr, "Failed to load rules: %v\n", err)
		return 1
	}

	total := len(list)
	if total > *limit {
		list = list[total-*limit:]
	}

	if *asJSON {
		if err := writeJSON("", map[string]any{"count": total, "rules": list}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write rules: %v\n", err)
			return 1
		}
		return 0
	}

	for i := len(list) - 1; i >= 0; i-- {
		rule := list[i]
		fmt.Printf(
			"%s  tokens=%s  headlines=%d\n",
			rule.CreatedAt.UTC().Format(time.RFC3339),
			strings.Join(rule.Tokens, ","),
			len(rule.Headlines),
		)
	}
	fmt.Printf("rules total=%d shown=%d store=%s\n", total, len(list), cfg.RuleStoreDriverName())
	return 0
}
