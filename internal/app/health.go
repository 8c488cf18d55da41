package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/logging"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Rule store check timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, code := loadEnvironment(envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, closeStore, err := openRuleStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer closeStore()

	list, err := store.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Str("rule_store", cfg.RuleStoreDriverName()).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: rule store unreadable: %v\n", err)
		return 1
	}

	client, err := newOracleClient(cfg, logging.Component(logger, "oracle"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: oracle misconfigured: %v\n", err)
		return 1
	}

	logger.Info().
		Str("rule_store", cfg.RuleStoreDriverName()).
		Int("rules", len(list)).
		Strs("oracle_models", client.Models()).
		Bool("duplicate_check", cfg.DuplicateCheckEnabled()).
		Msg("health check passed")
	fmt.Printf(
		"ok: rule_store=%s rules=%d oracle=%s duplicate_check=%t\n",
		cfg.RuleStoreDriverName(),
		len(list),
		cfg.OracleProvider,
		cfg.DuplicateCheckEnabled(),
	)
	return 0
}
