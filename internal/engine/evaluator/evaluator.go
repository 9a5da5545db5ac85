// Package evaluator decides which immediate actions to run when a member
// joins or moves into a voice channel.
package evaluator

import (
	"context"
	"fmt"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
)

// ListChecker resolves moderation list membership.
type ListChecker interface {
	IsInList(ctx context.Context, userID uint64, listType types.ListType) (bool, error)
}

// Action is one moderation action the dispatcher should execute.
type Action struct {
	Type   types.ActionType
	Params map[string]any
	RuleID int64
}

// Evaluate returns the actions to run immediately for a member who entered
// a channel. Only rules carrying a target list emit here; time-limit-only
// rules belong to the overtime sweep, which can observe continuous
// presence. Blacklist rules act on list members; whitelist rules act on
// everyone except list members. Emitted actions keep the input rule order,
// which callers supply sorted by priority.
func Evaluate(
	ctx context.Context, userID, channelID uint64,
	rules []*types.Rule, lists ListChecker,
) ([]Action, error) {
	var actions []Action

	for _, rule := range rules {
		if rule.TargetList == "" || rule.ActionType == "" {
			continue
		}

		if !rule.AppliesToChannel(channelID) {
			continue
		}

		switch rule.TargetList {
		case types.TargetListBlacklist:
			inList, err := lists.IsInList(ctx, userID, types.ListBlacklist)
			if err != nil {
				return nil, fmt.Errorf("failed to check blacklist membership: %w", err)
			}

			if !inList {
				continue
			}
		case types.TargetListWhitelist:
			inList, err := lists.IsInList(ctx, userID, types.ListWhitelist)
			if err != nil {
				return nil, fmt.Errorf("failed to check whitelist membership: %w", err)
			}

			if inList {
				// Whitelisted members are immune.
				continue
			}
		default:
			continue
		}

		actions = append(actions, Action{
			Type:   rule.ActionType,
			Params: rule.ActionParams,
			RuleID: rule.ID,
		})
	}

	return actions, nil
}
