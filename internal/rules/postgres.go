package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"horse.fit/newsdesk/internal/db"
)

// RuleRowStore is the slice of *db.Pool used by PostgresStore.
type RuleRowStore interface {
	ListLearnedRules(ctx context.Context) ([]db.LearnedRuleRow, error)
	AppendLearnedRule(ctx context.Context, row db.LearnedRuleRow, limit int) (int, error)
}

// PostgresStore keeps rules in the newsdesk.learned_rules table.
type PostgresStore struct {
	rows RuleRowStore
}

func NewPostgresStore(rows RuleRowStore) *PostgresStore {
	return &PostgresStore{rows: rows}
}

func (s *PostgresStore) Load(ctx context.Context) ([]LearnedRule, error) {
	if s == nil || s.rows == nil {
		return []LearnedRule{}, fmt.Errorf("postgres rule store is not initialized")
	}

	rows, err := s.rows.ListLearnedRules(ctx)
	if err != nil {
		return []LearnedRule{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	list := make([]LearnedRule, 0, len(rows))
	for _, row := range rows {
		rule, err := ruleFromRow(row)
		if err != nil {
			return []LearnedRule{}, fmt.Errorf("%w: rule at position %d: %v", ErrUnreadable, row.Position, err)
		}
		list = append(list, rule)
	}
	return list, nil
}

// Append fails without touching the table when existing rules cannot be read.
func (s *PostgresStore) Append(ctx context.Context, rule LearnedRule) (int, error) {
	if s == nil || s.rows == nil {
		return 0, fmt.Errorf("postgres rule store is not initialized")
	}

	row, err := rowFromRule(rule)
	if err != nil {
		return 0, err
	}
	count, err := s.rows.AppendLearnedRule(ctx, row, MaxRules)
	if err != nil {
		return 0, fmt.Errorf("persist learned rule: %w", err)
	}
	return count, nil
}

func ruleFromRow(row db.LearnedRuleRow) (LearnedRule, error) {
	rule := LearnedRule{CreatedAt: row.CreatedAt.UTC()}
	if err := json.Unmarshal(row.Tokens, &rule.Tokens); err != nil {
		return LearnedRule{}, fmt.Errorf("decode tokens: %w", err)
	}
	if len(row.Headlines) > 0 {
		if err := json.Unmarshal(row.Headlines, &rule.Headlines); err != nil {
			return LearnedRule{}, fmt.Errorf("decode headlines: %w", err)
		}
	}
	return rule, nil
}

func rowFromRule(rule LearnedRule) (db.LearnedRuleRow, error) {
	tokens, err := json.Marshal(nonNil(rule.Tokens))
	if err != nil {
		return db.LearnedRuleRow{}, fmt.Errorf("encode tokens: %w", err)
	}
	headlines, err := json.Marshal(nonNil(rule.Headlines))
	if err != nil {
		return db.LearnedRuleRow{}, fmt.Errorf("encode headlines: %w", err)
	}
	return db.LearnedRuleRow{
		Tokens:    tokens,
		Headlines: headlines,
		CreatedAt: rule.CreatedAt.UTC(),
	}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
