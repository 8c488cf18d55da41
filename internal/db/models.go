package db

import (
	"encoding/json"
	"time"
)

// LearnedRuleRow maps newsdesk.learned_rules. Position orders rules oldest first.
type LearnedRuleRow struct {
	Position  int             `gorm:"column:position;primaryKey;autoIncrement:false"`
	Tokens    json.RawMessage `gorm:"column:tokens;type:jsonb;not null"`
	Headlines json.RawMessage `gorm:"column:headlines;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;not null"`
}

func (LearnedRuleRow) TableName() string { return "newsdesk.learned_rules" }

func autoMigrateModels() []any {
	return []any{
		&LearnedRuleRow{},
	}
}
