package scheduler

import (
	"context"
	"fmt"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"go.uber.org/zap"
)

// RuleSource supplies the active rule set for a sweep.
type RuleSource interface {
	GetActiveRules(ctx context.Context) ([]*types.Rule, error)
}

// OvertimeScanner yields presences that exceeded a rule's time threshold.
type OvertimeScanner interface {
	ScanOvertime(rules []*types.Rule) []tracker.Overtime
}

// ActionExecutor runs moderation actions through the dispatch gate.
type ActionExecutor interface {
	Execute(ctx context.Context, guildID uint64, actionType types.ActionType, userID uint64, params map[string]any) bool
}

// PresenceVerifier confirms a member's live voice channel with the platform.
type PresenceVerifier interface {
	MemberVoiceChannel(guildID, userID uint64) (uint64, bool)
}

// AuditSink records every sweep decision.
type AuditSink interface {
	LogAction(
		ctx context.Context, ruleID *int64, userID uint64,
		actionType types.ActionType, channelID *uint64, details map[string]any,
	) error
}

// OvertimeSweeper enforces time-thresholded rules against live presences.
// Each sweep re-verifies presence with the platform before acting, since
// the tracked join time can outlive a missed leave event.
type OvertimeSweeper struct {
	guildID  uint64
	rules    RuleSource
	scanner  OvertimeScanner
	verifier PresenceVerifier
	exec     ActionExecutor
	audit    AuditSink
	logger   *zap.Logger
}

// NewOvertimeSweeper creates an overtime sweeper.
func NewOvertimeSweeper(
	guildID uint64, rules RuleSource, scanner OvertimeScanner,
	verifier PresenceVerifier, exec ActionExecutor, audit AuditSink, logger *zap.Logger,
) *OvertimeSweeper {
	return &OvertimeSweeper{
		guildID:  guildID,
		rules:    rules,
		scanner:  scanner,
		verifier: verifier,
		exec:     exec,
		audit:    audit,
		logger:   logger.Named("overtime_sweep"),
	}
}

// Sweep runs one overtime pass. Every acted-on presence gets an audit entry
// whether the dispatch succeeded or was refused.
func (s *OvertimeSweeper) Sweep(ctx context.Context) error {
	rules, err := s.rules.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active rules: %w", err)
	}

	for _, over := range s.scanner.ScanOvertime(rules) {
		// The tracked channel must still match the platform's view.
		liveChannel, ok := s.verifier.MemberVoiceChannel(s.guildID, over.UserID)
		if !ok || liveChannel != over.ChannelID {
			s.logger.Debug("Skipping stale overtime record",
				zap.Uint64("user_id", over.UserID),
				zap.Uint64("tracked_channel_id", over.ChannelID))

			continue
		}

		executed := s.exec.Execute(ctx, s.guildID, over.Rule.ActionType, over.UserID, over.Rule.ActionParams)

		details := map[string]any{
			"source":           "overtime",
			"overtime_seconds": over.OvertimeSeconds,
			"executed":         executed,
		}

		channelID := over.ChannelID
		if err := s.audit.LogAction(ctx, &over.Rule.ID, over.UserID, over.Rule.ActionType, &channelID, details); err != nil {
			s.logger.Error("Failed to audit overtime action",
				zap.Uint64("user_id", over.UserID),
				zap.Int64("rule_id", over.Rule.ID),
				zap.Error(err))
		}

		s.logger.Info("Overtime action processed",
			zap.Uint64("user_id", over.UserID),
			zap.Int64("rule_id", over.Rule.ID),
			zap.Int("overtime_seconds", over.OvertimeSeconds),
			zap.Bool("executed", executed))
	}

	return nil
}
