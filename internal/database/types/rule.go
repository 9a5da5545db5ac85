package types

import (
	"slices"
	"time"
)

// ActionType identifies a moderation action executed against a member.
type ActionType string

const (
	ActionMute   ActionType = "mute"
	ActionUnmute ActionType = "unmute"
	ActionMove   ActionType = "move"
	ActionKick   ActionType = "kick"
	// ActionKickTimeout is the quiet disconnect issued by the idle-timeout
	// sweep. It is never configured on a rule.
	ActionKickTimeout ActionType = "kick_timeout"
	// ActionPairMove is the joint relocation issued by the stacking detector.
	ActionPairMove ActionType = "pair_move"
)

// TargetList classifies which user list a rule applies to.
type TargetList string

const (
	// TargetListBlacklist rules act on members of the blacklist.
	TargetListBlacklist TargetList = "blacklist"
	// TargetListWhitelist rules act on everyone except whitelist members.
	TargetListWhitelist TargetList = "whitelist"
)

// ParamTargetChannelID is the action parameter carrying the destination
// channel for move actions.
const ParamTargetChannelID = "target_channel_id"

// Rule represents a configured voice moderation rule.
type Rule struct {
	ID           int64          `bun:",pk,autoincrement"`
	Name         string         `bun:",notnull"`
	Description  string         `bun:",type:text"`
	IsActive     bool           `bun:",notnull,default:true"`
	TargetList   TargetList     `bun:",nullzero"`           // Empty when the rule is time-based only
	ChannelIDs   []int64        `bun:",array"`              // Nil means the rule applies to every channel
	MaxTimeSec   *int           `bun:",nullzero"`           // Elapsed-time threshold, nil for immediate rules
	ActionType   ActionType     `bun:",notnull"`
	ActionParams map[string]any `bun:",type:jsonb,notnull"` // Opaque action payload
	Priority     int            `bun:",notnull,default:0"`  // Lower values evaluate first
	CreatedAt    time.Time      `bun:",notnull"`
	UpdatedAt    time.Time      `bun:",notnull"`
}

// AppliesToChannel reports whether the rule's channel scope covers the given
// channel. A rule without a channel list covers all channels.
func (r *Rule) AppliesToChannel(channelID uint64) bool {
	if r.ChannelIDs == nil {
		return true
	}

	return slices.Contains(r.ChannelIDs, int64(channelID))
}

// HasTimeLimit reports whether the rule carries an elapsed-time threshold.
func (r *Rule) HasTimeLimit() bool {
	return r.MaxTimeSec != nil
}

// TargetChannelID extracts the move destination from the action parameters.
// The second return value is false when the parameter is absent or not a
// numeric value.
func (r *Rule) TargetChannelID() (uint64, bool) {
	return ChannelIDParam(r.ActionParams)
}

// ChannelIDParam reads a target channel ID out of an action parameter map.
// JSON round-trips store numbers as float64, so both integer and float
// representations are accepted.
func ChannelIDParam(params map[string]any) (uint64, bool) {
	raw, ok := params[ParamTargetChannelID]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}

		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}

		return uint64(v), true
	case float64:
		if v < 0 {
			return 0, false
		}

		return uint64(v), true
	default:
		return 0, false
	}
}
