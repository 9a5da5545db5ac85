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

// KickTargetModel handles database operations for idle-timeout targets.
type KickTargetModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewKickTarget creates a new kick target model instance.
func NewKickTarget(db *bun.DB, logger *zap.Logger) *KickTargetModel {
	return &KickTargetModel{
		db:     db,
		logger: logger.Named("db_kick_target"),
	}
}

// GetActiveTargets retrieves all active idle-timeout targets.
func (m *KickTargetModel) GetActiveTargets(ctx context.Context) ([]*types.KickTarget, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.KickTarget, error) {
		var targets []*types.KickTarget

		err := m.db.NewSelect().
			Model(&targets).
			Where("is_active = TRUE").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active kick targets: %w", err)
		}

		return targets, nil
	})
}

// UpsertTarget stores an idle-timeout target, replacing the timeout when the
// member is already targeted.
func (m *KickTargetModel) UpsertTarget(ctx context.Context, target *types.KickTarget) error {
	now := time.Now()
	target.CreatedAt = now
	target.UpdatedAt = now

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(target).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("timeout_sec = EXCLUDED.timeout_sec").
			Set("is_active = EXCLUDED.is_active").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert kick target: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Upserted kick target",
		zap.Uint64("user_id", target.DiscordID),
		zap.Int("timeout_sec", target.TimeoutSec))

	return nil
}

// DeleteTarget removes a member's idle-timeout target.
func (m *KickTargetModel) DeleteTarget(ctx context.Context, userID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.KickTarget)(nil)).
			Where("discord_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete kick target: %w", err)
		}

		return nil
	})
}
