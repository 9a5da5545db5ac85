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

// SessionModel handles the persisted mirror of voice sessions.
type SessionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSession creates a new session model instance.
func NewSession(db *bun.DB, logger *zap.Logger) *SessionModel {
	return &SessionModel{
		db:     db,
		logger: logger.Named("db_session"),
	}
}

// OpenSession inserts an open session row for a member joining a channel.
func (m *SessionModel) OpenSession(ctx context.Context, userID, channelID uint64, joinedAt time.Time) error {
	session := &types.VoiceSession{
		DiscordID: userID,
		ChannelID: channelID,
		JoinedAt:  joinedAt,
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(session).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to open voice session: %w", err)
		}

		return nil
	})
}

// CloseSession stamps left_at on the open session rows matching the member
// and channel. Closing an already-closed session is a no-op.
func (m *SessionModel) CloseSession(ctx context.Context, userID, channelID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.VoiceSession)(nil)).
			Set("left_at = ?", time.Now()).
			Where("discord_id = ?", userID).
			Where("channel_id = ?", channelID).
			Where("left_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to close voice session: %w", err)
		}

		return nil
	})
}

// CloseAllOpenSessions stamps left_at on every open session row. Called on
// startup so rows left open by a previous process don't accumulate.
func (m *SessionModel) CloseAllOpenSessions(ctx context.Context) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		res, err := m.db.NewUpdate().
			Model((*types.VoiceSession)(nil)).
			Set("left_at = ?", time.Now()).
			Where("left_at IS NULL").
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to close stale voice sessions: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count closed sessions: %w", err)
		}

		return affected, nil
	})
}
