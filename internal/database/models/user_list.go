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

// UserListModel handles database operations for moderation user lists.
type UserListModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUserList creates a new user list model instance.
func NewUserList(db *bun.DB, logger *zap.Logger) *UserListModel {
	return &UserListModel{
		db:     db,
		logger: logger.Named("db_user_list"),
	}
}

// IsInList reports whether a member is on the given list.
func (m *UserListModel) IsInList(ctx context.Context, userID uint64, listType types.ListType) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.UserList)(nil)).
			Where("discord_id = ?", userID).
			Where("list_type = ?", listType).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check list membership: %w", err)
		}

		return exists, nil
	})
}

// AddToList places a member on a list, updating the reason when the member
// is already present.
func (m *UserListModel) AddToList(ctx context.Context, entry *types.UserList) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(entry).
			On("CONFLICT (discord_id, list_type) DO UPDATE").
			Set("reason = EXCLUDED.reason").
			Set("username = EXCLUDED.username").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add user to list: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Added user to list",
		zap.Uint64("user_id", entry.DiscordID),
		zap.String("list_type", string(entry.ListType)))

	return nil
}

// RemoveFromList removes a member from a list.
func (m *UserListModel) RemoveFromList(ctx context.Context, userID uint64, listType types.ListType) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.UserList)(nil)).
			Where("discord_id = ?", userID).
			Where("list_type = ?", listType).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove user from list: %w", err)
		}

		return nil
	})
}
