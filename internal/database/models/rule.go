package models

import (
	"context"
	"fmt"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/dbretry"
	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RuleModel handles database operations for voice moderation rules.
type RuleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRule creates a new rule model instance.
func NewRule(db *bun.DB, logger *zap.Logger) *RuleModel {
	return &RuleModel{
		db:     db,
		logger: logger.Named("db_rule"),
	}
}

// GetActiveRules retrieves all active rules ordered by priority, lowest
// first. Ties keep insertion order via the id column.
func (m *RuleModel) GetActiveRules(ctx context.Context) ([]*types.Rule, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Rule, error) {
		var rules []*types.Rule

		err := m.db.NewSelect().
			Model(&rules).
			Where("is_active = TRUE").
			Order("priority ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active rules: %w", err)
		}

		return rules, nil
	})
}

// CreateRule stores a new rule and returns it with its assigned ID.
func (m *RuleModel) CreateRule(ctx context.Context, rule *types.Rule) error {
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if rule.ActionParams == nil {
		rule.ActionParams = map[string]any{}
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(rule).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created rule",
		zap.Int64("rule_id", rule.ID),
		zap.String("name", rule.Name))

	return nil
}

// UpdateRule rewrites an existing rule's configuration.
func (m *RuleModel) UpdateRule(ctx context.Context, rule *types.Rule) error {
	rule.UpdatedAt = time.Now()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model(rule).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}

		return nil
	})
}

// SetRuleActive flips a rule's active flag. Used by cron toggles and the
// administration surface.
func (m *RuleModel) SetRuleActive(ctx context.Context, ruleID int64, active bool) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Rule)(nil)).
			Set("is_active = ?", active).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", ruleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set rule active state: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Set rule active state",
		zap.Int64("rule_id", ruleID),
		zap.Bool("active", active))

	return nil
}

// DeleteRule removes a rule. Its schedules are removed by the cascading
// foreign key.
func (m *RuleModel) DeleteRule(ctx context.Context, ruleID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.Rule)(nil)).
			Where("id = ?", ruleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}

		return nil
	})
}
