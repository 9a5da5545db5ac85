package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"go.uber.org/zap"
)

// TargetSource supplies the active kick target set for a sweep.
type TargetSource interface {
	GetActiveTargets(ctx context.Context) ([]*types.KickTarget, error)
}

// PresenceSource supplies the live presence snapshot.
type PresenceSource interface {
	Active() []tracker.Presence
}

// IdleKicker disconnects marked members who sat in voice past their
// per-target timeout. Targets without a timeout fall back to the default.
// Presence is re-verified with the platform before each kick, since the
// tracked join can outlive a missed leave event.
type IdleKicker struct {
	guildID        uint64
	defaultTimeout int
	targets        TargetSource
	presence       PresenceSource
	verifier       PresenceVerifier
	exec           ActionExecutor
	audit          AuditSink
	logger         *zap.Logger
	now            func() time.Time
}

// NewIdleKicker creates an idle-timeout sweeper.
func NewIdleKicker(
	guildID uint64, defaultTimeoutSec int, targets TargetSource, presence PresenceSource,
	verifier PresenceVerifier, exec ActionExecutor, audit AuditSink, logger *zap.Logger,
) *IdleKicker {
	return &IdleKicker{
		guildID:        guildID,
		defaultTimeout: defaultTimeoutSec,
		targets:        targets,
		presence:       presence,
		verifier:       verifier,
		exec:           exec,
		audit:          audit,
		logger:         logger.Named("idle_sweep"),
		now:            time.Now,
	}
}

// Sweep runs one idle-timeout pass over the live presences.
func (s *IdleKicker) Sweep(ctx context.Context) error {
	targets, err := s.targets.GetActiveTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load kick targets: %w", err)
	}

	if len(targets) == 0 {
		return nil
	}

	timeouts := make(map[uint64]int, len(targets))

	for _, target := range targets {
		timeout := target.TimeoutSec
		if timeout <= 0 {
			timeout = s.defaultTimeout
		}

		if timeout > 0 {
			timeouts[target.DiscordID] = timeout
		}
	}

	now := s.now()

	for _, presence := range s.presence.Active() {
		timeout, ok := timeouts[presence.UserID]
		if !ok {
			continue
		}

		elapsed := int(now.Sub(presence.JoinedAt).Seconds())
		if elapsed < timeout {
			continue
		}

		// The tracked channel must still match the platform's view.
		liveChannel, ok := s.verifier.MemberVoiceChannel(s.guildID, presence.UserID)
		if !ok || liveChannel != presence.ChannelID {
			s.logger.Debug("Skipping stale idle record",
				zap.Uint64("user_id", presence.UserID),
				zap.Uint64("tracked_channel_id", presence.ChannelID))

			continue
		}

		executed := s.exec.Execute(ctx, s.guildID, types.ActionKickTimeout, presence.UserID, nil)

		details := map[string]any{
			"source":      "idle_timeout",
			"timeout_sec": timeout,
			"elapsed_sec": elapsed,
			"executed":    executed,
		}

		channelID := presence.ChannelID
		if err := s.audit.LogAction(ctx, nil, presence.UserID, types.ActionKickTimeout, &channelID, details); err != nil {
			s.logger.Error("Failed to audit idle kick",
				zap.Uint64("user_id", presence.UserID),
				zap.Error(err))
		}

		s.logger.Info("Idle timeout processed",
			zap.Uint64("user_id", presence.UserID),
			zap.Uint64("channel_id", presence.ChannelID),
			zap.Int("elapsed_sec", elapsed),
			zap.Bool("executed", executed))
	}

	return nil
}
