package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	RuleStoreFile     = "file"
	RuleStorePostgres = "postgres"
	RuleStoreSQLite   = "sqlite"
	RuleStoreMemory   = "memory"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	RuleStoreDriver     string `envconfig:"RULE_STORE_DRIVER" default:"file"`
	RuleStorePath       string `envconfig:"RULE_STORE_PATH" default:"data/learned_rules.json"`
	RuleStoreSQLitePath string `envconfig:"RULE_STORE_SQLITE_PATH" default:"data/newsdesk.db"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"NP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NP_DB_MAX_CONNS" default:"4"`

	OracleProvider     string        `envconfig:"ORACLE_PROVIDER" default:"gemini"`
	OracleEndpoint     string        `envconfig:"ORACLE_ENDPOINT" default:""`
	OracleAPIKey       string        `envconfig:"ORACLE_API_KEY" default:""`
	OracleModels       string        `envconfig:"ORACLE_MODELS" default:""`
	OracleTimeout      time.Duration `envconfig:"ORACLE_TIMEOUT" default:"120s"`
	OracleMaxAttempts  int           `envconfig:"ORACLE_MAX_ATTEMPTS" default:"3"`
	OracleRetryBackoff time.Duration `envconfig:"ORACLE_RETRY_BACKOFF" default:"2s"`
	OracleMinInterval  time.Duration `envconfig:"ORACLE_MIN_INTERVAL" default:"500ms"`

	WordPressURL         string        `envconfig:"WP_URL" default:""`
	WordPressUser        string        `envconfig:"WP_USER" default:""`
	WordPressAppPassword string        `envconfig:"WP_APP_PASSWORD" default:""`
	DuplicateWindow      time.Duration `envconfig:"DUPLICATE_WINDOW" default:"24h"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.RuleStoreDriverName() {
	case RuleStoreFile:
		if strings.TrimSpace(c.RuleStorePath) == "" {
			return fmt.Errorf("RULE_STORE_PATH is required for the file rule store")
		}
	case RuleStoreSQLite:
		if strings.TrimSpace(c.RuleStoreSQLitePath) == "" {
			return fmt.Errorf("RULE_STORE_SQLITE_PATH is required for the sqlite rule store")
		}
	case RuleStorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres rule store")
		}
	case RuleStoreMemory:
	default:
		return fmt.Errorf("RULE_STORE_DRIVER must be one of file, postgres, sqlite, memory (got %q)", c.RuleStoreDriver)
	}

	if c.DBMinConns < 0 {
		return fmt.Errorf("NP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NP_DB_MIN_CONNS (%d) cannot exceed NP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.OracleMaxAttempts < 1 {
		return fmt.Errorf("ORACLE_MAX_ATTEMPTS must be >= 1")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be > 0")
	}
	if c.OracleRetryBackoff < 0 || c.OracleMinInterval < 0 {
		return fmt.Errorf("ORACLE_RETRY_BACKOFF and ORACLE_MIN_INTERVAL must be >= 0")
	}
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("DUPLICATE_WINDOW must be > 0")
	}
	if raw := strings.TrimSpace(c.WordPressURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("WP_URL must be an absolute URL (got %q)", raw)
		}
	}
	return nil
}

func (c *Config) RuleStoreDriverName() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.RuleStoreDriver))
}

// OracleModelList returns the configured model fallback order without blanks or repeats.
func (c *Config) OracleModelList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.OracleModels)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// DuplicateCheckEnabled reports whether a publishing site is configured.
func (c *Config) DuplicateCheckEnabled() bool {
	return c != nil && strings.TrimSpace(c.WordPressURL) != ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
