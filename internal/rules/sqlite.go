package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps rules in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(dbPath)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	conn, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cleanPath, err)
	}
	conn.SetMaxOpenConns(1)

	store := &SQLiteStore{db: conn}
	if err := store.init(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS learned_rules (
			position   INTEGER PRIMARY KEY,
			tokens     TEXT NOT NULL,
			headlines  TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing learned_rules schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]LearnedRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, tokens, headlines, created_at FROM learned_rules ORDER BY position ASC`)
	if err != nil {
		return []LearnedRule{}, fmt.Errorf("%w: query learned rules: %v", ErrUnreadable, err)
	}
	defer rows.Close()

	list := []LearnedRule{}
	for rows.Next() {
		var (
			position                      int
			tokensRaw, headlinesRaw, when string
		)
		if err := rows.Scan(&position, &tokensRaw, &headlinesRaw, &when); err != nil {
			return []LearnedRule{}, fmt.Errorf("%w: scan learned rule: %v", ErrUnreadable, err)
		}

		var rule LearnedRule
		if err := json.Unmarshal([]byte(tokensRaw), &rule.Tokens); err != nil {
			return []LearnedRule{}, fmt.Errorf("%w: rule %d tokens: %v", ErrUnreadable, position, err)
		}
		if err := json.Unmarshal([]byte(headlinesRaw), &rule.Headlines); err != nil {
			return []LearnedRule{}, fmt.Errorf("%w: rule %d headlines: %v", ErrUnreadable, position, err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, when)
		if err != nil {
			return []LearnedRule{}, fmt.Errorf("%w: rule %d created_at: %v", ErrUnreadable, position, err)
		}
		rule.CreatedAt = createdAt.UTC()
		list = append(list, rule)
	}
	if err := rows.Err(); err != nil {
		return []LearnedRule{}, fmt.Errorf("%w: iterate learned rules: %v", ErrUnreadable, err)
	}
	return list, nil
}

// Append reads, trims and rewrites the table in one transaction. Stored rows
// are carried over verbatim, and a failed read aborts without writing.
func (s *SQLiteStore) Append(ctx context.Context, rule LearnedRule) (int, error) {
	tokens, err := json.Marshal(nonNil(rule.Tokens))
	if err != nil {
		return 0, fmt.Errorf("encode tokens: %w", err)
	}
	headlines, err := json.Marshal(nonNil(rule.Headlines))
	if err != nil {
		return 0, fmt.Errorf("encode headlines: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rule rewrite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored, err := readStoredRules(ctx, tx)
	if err != nil {
		return 0, err
	}
	stored = append(stored, storedRule{
		tokens:    string(tokens),
		headlines: string(headlines),
		createdAt: rule.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if len(stored) > MaxRules {
		stored = stored[len(stored)-MaxRules:]
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM learned_rules`); err != nil {
		return 0, fmt.Errorf("clear learned rules: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO learned_rules (position, tokens, headlines, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare rule insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range stored {
		if _, err := stmt.ExecContext(ctx, i+1, item.tokens, item.headlines, item.createdAt); err != nil {
			return 0, fmt.Errorf("insert rule %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rule rewrite: %w", err)
	}
	return len(stored), nil
}

type storedRule struct {
	tokens    string
	headlines string
	createdAt string
}

func readStoredRules(ctx context.Context, tx *sql.Tx) ([]storedRule, error) {
	rows, err := tx.QueryContext(ctx, `SELECT tokens, headlines, created_at FROM learned_rules ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("read learned rules: %w", err)
	}
	defer rows.Close()

	var stored []storedRule
	for rows.Next() {
		var item storedRule
		if err := rows.Scan(&item.tokens, &item.headlines, &item.createdAt); err != nil {
			return nil, fmt.Errorf("scan learned rule: %w", err)
		}
		stored = append(stored, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learned rules: %w", err)
	}
	return stored, nil
}
