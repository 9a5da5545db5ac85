package types

import "time"

// VoiceSession is the persisted mirror of one member's stay in a voice
// channel. The open row (left_at null) is closed when the member leaves or
// moves; the in-memory tracker remains the authority for live decisions.
type VoiceSession struct {
	ID        int64      `bun:",pk,autoincrement"`
	DiscordID uint64     `bun:"discord_id,notnull"`
	ChannelID uint64     `bun:",notnull"`
	JoinedAt  time.Time  `bun:",notnull"`
	LeftAt    *time.Time `bun:",nullzero"`
}
