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

// AuditModel handles append-only writes of moderation action records.
type AuditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAudit creates a new audit model instance.
func NewAudit(db *bun.DB, logger *zap.Logger) *AuditModel {
	return &AuditModel{
		db:     db,
		logger: logger.Named("db_audit"),
	}
}

// LogAction appends an audit entry for an executed (or refused) action.
func (m *AuditModel) LogAction(
	ctx context.Context, ruleID *int64, userID uint64,
	actionType types.ActionType, channelID *uint64, details map[string]any,
) error {
	if details == nil {
		details = map[string]any{}
	}

	entry := &types.ActionLog{
		RuleID:     ruleID,
		DiscordID:  userID,
		ActionType: actionType,
		ChannelID:  channelID,
		Details:    details,
		ExecutedAt: time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(entry).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to log action: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged action",
		zap.Uint64("user_id", userID),
		zap.String("action_type", string(actionType)))

	return nil
}
