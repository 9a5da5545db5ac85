// Package dispatch executes moderation actions against the platform,
// subject to owner protection, capability gating and per-guild rate limits.
package dispatch

import (
	"context"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/dispatch/ratelimit"
	"go.uber.org/zap"
)

// platformCallTimeout bounds every platform call so a hung request cannot
// stall event handlers or scheduler sweeps.
const platformCallTimeout = 10 * time.Second

// Dispatcher is the single point through which all moderation side effects
// flow, regardless of trigger source.
type Dispatcher struct {
	platform     Platform
	limiter      *ratelimit.Limiter
	maxPerMinute int
	logger       *zap.Logger
}

// New creates a dispatcher. maxPerMinute of zero or below disables rate
// limiting.
func New(platform Platform, limiter *ratelimit.Limiter, maxPerMinute int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		platform:     platform,
		limiter:      limiter,
		maxPerMinute: maxPerMinute,
		logger:       logger.Named("dispatch"),
	}
}

// Platform exposes the platform boundary for read-only lookups by other
// components. Mutating calls stay inside the dispatcher.
func (d *Dispatcher) Platform() Platform {
	return d.platform
}

// Execute runs one action against a member. Every gate is hard: the first
// refusal short-circuits with false and no side effects. Platform failures
// return false without propagating; the caller decides whether to retry on
// its next trigger.
func (d *Dispatcher) Execute(
	ctx context.Context, guildID uint64,
	actionType types.ActionType, userID uint64, params map[string]any,
) bool {
	log := d.logger.With(
		zap.Uint64("guild_id", guildID),
		zap.Uint64("user_id", userID),
		zap.String("action_type", string(actionType)))

	// Owner protection is the first hard gate; an unresolvable guild means
	// it cannot be checked, so the action refuses rather than passes.
	ownerID, ok := d.platform.GuildOwnerID(guildID)
	if !ok {
		log.Warn("Action skipped", zap.String("reason", "guild_unresolved"))
		return false
	}

	if ownerID == userID {
		log.Warn("Action skipped", zap.String("reason", "owner_protected"))
		return false
	}

	if !d.limiter.Allowed(guildID, d.maxPerMinute) {
		log.Warn("Action skipped",
			zap.String("reason", "rate_limited"),
			zap.Int("max_per_minute", d.maxPerMinute))

		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()

	var err error

	switch actionType {
	case types.ActionMute, types.ActionUnmute:
		if !d.platform.HasCapability(guildID, CapabilityMuteMembers) {
			log.Warn("Action skipped", zap.String("reason", "missing_capability"),
				zap.Stringer("capability", CapabilityMuteMembers))

			return false
		}

		err = d.platform.SetMute(callCtx, guildID, userID, actionType == types.ActionMute)

	case types.ActionMove:
		if !d.platform.HasCapability(guildID, CapabilityMoveMembers) {
			log.Warn("Action skipped", zap.String("reason", "missing_capability"),
				zap.Stringer("capability", CapabilityMoveMembers))

			return false
		}

		channelID, ok := types.ChannelIDParam(params)
		if !ok {
			log.Warn("Action skipped", zap.String("reason", "missing_target_channel"))
			return false
		}

		if !d.platform.IsVoiceChannel(guildID, channelID) {
			log.Warn("Action skipped",
				zap.String("reason", "target_channel_not_found"),
				zap.Uint64("target_channel_id", channelID))

			return false
		}

		err = d.platform.Move(callCtx, guildID, userID, channelID)

	case types.ActionKick, types.ActionKickTimeout:
		if !d.platform.HasCapability(guildID, CapabilityMoveMembers) {
			log.Warn("Action skipped", zap.String("reason", "missing_capability"),
				zap.Stringer("capability", CapabilityMoveMembers))

			return false
		}

		err = d.platform.Disconnect(callCtx, guildID, userID)

	default:
		log.Warn("Action skipped", zap.String("reason", "unknown_action"))
		return false
	}

	if err != nil {
		log.Warn("Platform call failed", zap.Error(err))
		return false
	}

	d.limiter.Record(guildID)
	log.Info("Action executed")

	return true
}
