// Package engine wires voice state transitions through session tracking,
// pair stacking, and rule evaluation.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/evaluator"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/stacking"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"github.com/fantom2513/vibe-ds-bot/internal/setup/config"
	"go.uber.org/zap"
)

// RuleSource supplies the active rule set, sorted by priority.
type RuleSource interface {
	GetActiveRules(ctx context.Context) ([]*types.Rule, error)
}

// PairSource supplies the persisted stacking pairs.
type PairSource interface {
	GetActivePairs(ctx context.Context) ([]*types.StackingPair, error)
}

// AuditSink records executed actions.
type AuditSink interface {
	LogAction(
		ctx context.Context, ruleID *int64, userID uint64,
		actionType types.ActionType, channelID *uint64, details map[string]any,
	) error
}

// Executor runs moderation actions through the dispatch gate.
type Executor interface {
	Execute(ctx context.Context, guildID uint64, actionType types.ActionType, userID uint64, params map[string]any) bool
}

// Deps bundles the engine's collaborators.
type Deps struct {
	GuildID     uint64
	StaticPairs []*types.StackingPair
	Rules       RuleSource
	Lists       evaluator.ListChecker
	Pairs       PairSource
	Audit       AuditSink
	Executor    Executor
	Tracker     *tracker.Tracker
	Detector    *stacking.Detector
	Logger      *zap.Logger
}

// Engine is the voice event orchestrator. Stacking checks run before rule
// evaluation; a triggered relocation ends the event, and the follow-up move
// event evaluates rules in the destination channel.
type Engine struct {
	guildID     uint64
	staticPairs []*types.StackingPair
	rules       RuleSource
	lists       evaluator.ListChecker
	pairs       PairSource
	audit       AuditSink
	exec        Executor
	tracker     *tracker.Tracker
	detector    *stacking.Detector
	logger      *zap.Logger
}

// New creates the engine.
func New(deps Deps) *Engine {
	return &Engine{
		guildID:     deps.GuildID,
		staticPairs: deps.StaticPairs,
		rules:       deps.Rules,
		lists:       deps.Lists,
		pairs:       deps.Pairs,
		audit:       deps.Audit,
		exec:        deps.Executor,
		tracker:     deps.Tracker,
		detector:    deps.Detector,
		logger:      deps.Logger.Named("engine"),
	}
}

// StaticPairsFromConfig converts configured pairs into stacking pairs,
// filling in the default destination channel. Pairs without a resolvable
// destination are dropped.
func StaticPairsFromConfig(cfg *config.Engine) []*types.StackingPair {
	pairs := make([]*types.StackingPair, 0, len(cfg.Pairs))

	for _, pair := range cfg.Pairs {
		target := pair.TargetChannelID
		if target == 0 {
			target = cfg.DefaultPairChannelID
		}

		if target == 0 || pair.UserID1 == 0 || pair.UserID2 == 0 || pair.UserID1 == pair.UserID2 {
			continue
		}

		pairs = append(pairs, &types.StackingPair{
			UserID1:         pair.UserID1,
			UserID2:         pair.UserID2,
			TargetChannelID: target,
			IsActive:        true,
		})
	}

	return pairs
}

// HandleVoiceState processes one gateway voice transition. A zero channel
// ID is a leave; a changed channel is a move, which closes the previous
// session first.
func (e *Engine) HandleVoiceState(ctx context.Context, userID, channelID uint64) {
	prev, present := e.tracker.ChannelOf(userID)

	if channelID == 0 {
		if present {
			if err := e.tracker.End(ctx, userID, prev); err != nil {
				e.logger.Error("Failed to close session",
					zap.Uint64("user_id", userID),
					zap.Error(err))
			}
		}

		e.detector.OnLeave(userID)

		return
	}

	if present {
		// Mute and deafen updates arrive as voice state events too.
		if prev == channelID {
			return
		}

		if err := e.tracker.End(ctx, userID, prev); err != nil {
			e.logger.Error("Failed to close session on move",
				zap.Uint64("user_id", userID),
				zap.Error(err))
		}
	}

	if err := e.tracker.Start(ctx, userID, channelID); err != nil {
		e.logger.Error("Failed to persist session start",
			zap.Uint64("user_id", userID),
			zap.Uint64("channel_id", channelID),
			zap.Error(err))
	}

	if e.detector.CheckAndMove(ctx, e.guildID, userID) {
		details := map[string]any{"source": "stacking"}
		if err := e.audit.LogAction(ctx, nil, userID, types.ActionPairMove, &channelID, details); err != nil {
			e.logger.Error("Failed to audit pair move",
				zap.Uint64("user_id", userID),
				zap.Error(err))
		}

		// Rules run when the relocation's own move event arrives.
		return
	}

	e.evaluateRules(ctx, userID, channelID)
}

// evaluateRules runs immediate rules for a member who entered a channel.
func (e *Engine) evaluateRules(ctx context.Context, userID, channelID uint64) {
	rules, err := e.rules.GetActiveRules(ctx)
	if err != nil {
		e.logger.Error("Failed to load active rules", zap.Error(err))
		return
	}

	actions, err := evaluator.Evaluate(ctx, userID, channelID, rules, e.lists)
	if err != nil {
		e.logger.Error("Failed to evaluate rules",
			zap.Uint64("user_id", userID),
			zap.Error(err))

		return
	}

	for _, action := range actions {
		if !e.exec.Execute(ctx, e.guildID, action.Type, userID, action.Params) {
			continue
		}

		ruleID := action.RuleID

		details := map[string]any{"source": "event"}
		if err := e.audit.LogAction(ctx, &ruleID, userID, action.Type, &channelID, details); err != nil {
			e.logger.Error("Failed to audit action",
				zap.Uint64("user_id", userID),
				zap.Int64("rule_id", ruleID),
				zap.Error(err))
		}
	}
}

// Reload merges the static and persisted pairing lists and swaps them into
// the detector. Persisted rows win over static entries with the same pair
// identity. Safe to call repeatedly; a reload that changes nothing leaves
// the detector's latches intact.
func (e *Engine) Reload(ctx context.Context) error {
	dbPairs, err := e.pairs.GetActivePairs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stacking pairs: %w", err)
	}

	byKey := make(map[types.PairKey]*types.StackingPair, len(e.staticPairs)+len(dbPairs))
	for _, pair := range e.staticPairs {
		byKey[pair.Key()] = pair
	}

	for _, pair := range dbPairs {
		byKey[pair.Key()] = pair
	}

	merged := make([]*types.StackingPair, 0, len(byKey))
	for _, pair := range byKey {
		merged = append(merged, pair)
	}

	// Deterministic match order across reloads.
	sort.Slice(merged, func(i, j int) bool {
		ki, kj := merged[i].Key(), merged[j].Key()
		if ki.Low != kj.Low {
			return ki.Low < kj.Low
		}

		return ki.High < kj.High
	})

	e.detector.Load(merged)

	e.logger.Info("Engine configuration reloaded", zap.Int("pairs", len(merged)))

	return nil
}
