package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ListLearnedRules returns every persisted rule ordered oldest first.
func (p *Pool) ListLearnedRules(ctx context.Context) ([]LearnedRuleRow, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	var rows []LearnedRuleRow
	if err := p.gdb.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list learned rules: %w", err)
	}
	return rows, nil
}

// AppendLearnedRule adds row after the existing rules, keeps the newest limit
// rows and rewrites the table with positions from 1. Read, trim and rewrite
// happen in one transaction under an exclusive table lock. Existing rows are
// carried over as stored, so an undecodable row never costs the others.
// It returns the number of rows left in the table.
func (p *Pool) AppendLearnedRule(ctx context.Context, row LearnedRuleRow, limit int) (int, error) {
	if p == nil || p.gdb == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}
	if limit < 1 {
		return 0, fmt.Errorf("rule limit must be >= 1")
	}

	count := 0
	err := p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("LOCK TABLE newsdesk.learned_rules IN EXCLUSIVE MODE").Error; err != nil {
			return fmt.Errorf("lock learned rules: %w", err)
		}

		var existing []LearnedRuleRow
		if err := tx.Order("position ASC").Find(&existing).Error; err != nil {
			return fmt.Errorf("read learned rules: %w", err)
		}

		batch := append(existing, row)
		if len(batch) > limit {
			batch = batch[len(batch)-limit:]
		}
		for i := range batch {
			batch[i].Position = i + 1
		}

		if err := tx.Where("1 = 1").Delete(&LearnedRuleRow{}).Error; err != nil {
			return fmt.Errorf("clear learned rules: %w", err)
		}
		if err := tx.CreateInBatches(batch, 100).Error; err != nil {
			return fmt.Errorf("insert %d learned rules: %w", len(batch), err)
		}
		count = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
