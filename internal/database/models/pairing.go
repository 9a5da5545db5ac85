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

// PairingModel handles database operations for stacking pairs.
type PairingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPairing creates a new pairing model instance.
func NewPairing(db *bun.DB, logger *zap.Logger) *PairingModel {
	return &PairingModel{
		db:     db,
		logger: logger.Named("db_pairing"),
	}
}

// GetActivePairs retrieves all active stacking pairs.
func (m *PairingModel) GetActivePairs(ctx context.Context) ([]*types.StackingPair, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.StackingPair, error) {
		var pairs []*types.StackingPair

		err := m.db.NewSelect().
			Model(&pairs).
			Where("is_active = TRUE").
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active stacking pairs: %w", err)
		}

		return pairs, nil
	})
}

// UpsertPair stores a stacking pair, replacing the target channel when the
// normalized pair identity already exists. Member IDs are normalized so the
// unique index holds for either input order.
func (m *PairingModel) UpsertPair(ctx context.Context, pair *types.StackingPair) error {
	key := pair.Key()
	pair.UserID1 = key.Low
	pair.UserID2 = key.High
	pair.CreatedAt = time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(pair).
			On("CONFLICT (user_id_1, user_id_2) DO UPDATE").
			Set("target_channel_id = EXCLUDED.target_channel_id").
			Set("is_active = EXCLUDED.is_active").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert stacking pair: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Upserted stacking pair",
		zap.Uint64("user_id_1", pair.UserID1),
		zap.Uint64("user_id_2", pair.UserID2),
		zap.Uint64("target_channel_id", pair.TargetChannelID))

	return nil
}

// DeletePair removes a stacking pair by its normalized member identity.
func (m *PairingModel) DeletePair(ctx context.Context, userID1, userID2 uint64) error {
	key := types.NewPairKey(userID1, userID2)

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.StackingPair)(nil)).
			Where("user_id_1 = ?", key.Low).
			Where("user_id_2 = ?", key.High).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete stacking pair: %w", err)
		}

		return nil
	})
}
