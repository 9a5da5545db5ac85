// Package stacking detects paired members co-occupying a voice channel and
// relocates both to the pairing's designated channel exactly once per
// co-location episode.
package stacking

import (
	"context"
	"sync"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"go.uber.org/zap"
)

// PresenceSource resolves which voice channel a member currently occupies.
type PresenceSource interface {
	ChannelOf(userID uint64) (uint64, bool)
}

// ActionExecutor runs moderation actions. Satisfied by dispatch.Dispatcher;
// the detector never talks to the platform directly.
type ActionExecutor interface {
	Execute(ctx context.Context, guildID uint64, actionType types.ActionType, userID uint64, params map[string]any) bool
}

// Detector holds the loaded pairing list and a latch per redirected pairing.
// The latch prevents a relocate loop once both members land in the
// destination channel; it clears when either member's presence ends.
type Detector struct {
	mu         sync.Mutex
	pairs      []*types.StackingPair
	redirected map[types.PairKey]bool

	presence PresenceSource
	exec     ActionExecutor
	logger   *zap.Logger
}

// New creates a detector with an empty pairing list.
func New(presence PresenceSource, exec ActionExecutor, logger *zap.Logger) *Detector {
	return &Detector{
		redirected: make(map[types.PairKey]bool),
		presence:   presence,
		exec:       exec,
		logger:     logger.Named("stacking"),
	}
}

// Load atomically replaces the pairing list. Latches survive for pairings
// whose identity is unchanged; latches for dropped pairings are discarded.
// Safe to run twice in a row with the same input.
func (d *Detector) Load(pairs []*types.StackingPair) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keep := make(map[types.PairKey]bool, len(pairs))
	for _, pair := range pairs {
		keep[pair.Key()] = true
	}

	for key := range d.redirected {
		if !keep[key] {
			delete(d.redirected, key)
		}
	}

	d.pairs = make([]*types.StackingPair, len(pairs))
	copy(d.pairs, pairs)

	d.logger.Debug("Loaded stacking pairs", zap.Int("count", len(pairs)))
}

// Pairs returns a copy of the loaded pairing list.
func (d *Detector) Pairs() []*types.StackingPair {
	d.mu.Lock()
	defer d.mu.Unlock()

	pairs := make([]*types.StackingPair, len(d.pairs))
	copy(pairs, d.pairs)

	return pairs
}

// CheckAndMove evaluates a member's join or move against the pairing list.
// The first pairing whose partner shares the member's channel triggers a
// joint relocation to the pairing's destination; further pairings are not
// considered for this event. Returns true when a relocation was attempted
// and at least one member moved.
func (d *Detector) CheckAndMove(ctx context.Context, guildID, userID uint64) bool {
	channelID, ok := d.presence.ChannelOf(userID)
	if !ok {
		return false
	}

	pair, partnerID, triggered := d.latchFirstMatch(userID, channelID)
	if !triggered {
		return false
	}

	params := map[string]any{types.ParamTargetChannelID: pair.TargetChannelID}

	movedUser := d.exec.Execute(ctx, guildID, types.ActionMove, userID, params)
	movedPartner := d.exec.Execute(ctx, guildID, types.ActionMove, partnerID, params)

	if !movedUser && !movedPartner {
		// Both relocations failed; roll the latch back so the next event
		// for either member retries.
		d.mu.Lock()
		delete(d.redirected, pair.Key())
		d.mu.Unlock()

		d.logger.Warn("Pair relocation failed for both members",
			zap.Uint64("user_id", userID),
			zap.Uint64("partner_id", partnerID),
			zap.Uint64("target_channel_id", pair.TargetChannelID))

		return false
	}

	d.logger.Info("Pair relocated",
		zap.Uint64("user_id", userID),
		zap.Uint64("partner_id", partnerID),
		zap.Uint64("target_channel_id", pair.TargetChannelID))

	return true
}

// latchFirstMatch scans the pairing list for the first pairing that should
// trigger and sets its latch. Check and set happen under one lock
// acquisition so concurrent events for both members of a pair cannot both
// trigger.
func (d *Detector) latchFirstMatch(userID, channelID uint64) (*types.StackingPair, uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, pair := range d.pairs {
		partnerID, ok := pair.PartnerOf(userID)
		if !ok {
			continue
		}

		partnerChannel, ok := d.presence.ChannelOf(partnerID)
		if !ok || partnerChannel != channelID {
			continue
		}

		// Both already sit in the destination; nothing to do.
		if channelID == pair.TargetChannelID {
			continue
		}

		key := pair.Key()
		if d.redirected[key] {
			continue
		}

		d.redirected[key] = true

		return pair, partnerID, true
	}

	return nil, 0, false
}

// OnLeave clears redirect latches for every pairing involving the departing
// member. Leaving guards against a permanent redirect lock when a
// relocation partially failed or the destination became unreachable.
func (d *Detector) OnLeave(userID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.redirected {
		if key.Low == userID || key.High == userID {
			delete(d.redirected, key)
		}
	}
}
