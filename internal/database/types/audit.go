package types

import "time"

// ActionLog is an immutable audit record of a moderation action. The engine
// only ever appends these; reads belong to the administration surface.
type ActionLog struct {
	ID         int64          `bun:",pk,autoincrement"`
	RuleID     *int64         `bun:",nullzero"` // Nil for pair moves and idle-timeout kicks
	DiscordID  uint64         `bun:"discord_id,notnull"`
	ActionType ActionType     `bun:",nullzero"`
	ChannelID  *uint64        `bun:",nullzero"`
	Details    map[string]any `bun:",type:jsonb,notnull"`
	ExecutedAt time.Time      `bun:",notnull"`
}
