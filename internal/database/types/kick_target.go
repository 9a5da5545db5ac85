package types

import "time"

// KickTarget marks a member for quiet disconnection after sitting in any
// voice channel longer than the configured timeout. Independent of rules.
type KickTarget struct {
	ID         int64     `bun:",pk,autoincrement"`
	DiscordID  uint64    `bun:"discord_id,notnull,unique"`
	Username   string    `bun:",nullzero"`
	TimeoutSec int       `bun:",notnull,default:3600"`
	IsActive   bool      `bun:",notnull,default:true"`
	CreatedAt  time.Time `bun:",notnull"`
	UpdatedAt  time.Time `bun:",notnull"`
}
