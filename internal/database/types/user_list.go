package types

import "time"

// ListType identifies a moderation user list.
type ListType string

const (
	ListWhitelist ListType = "whitelist"
	ListBlacklist ListType = "blacklist"
)

// UserList is one member's entry on a moderation list. A member may appear
// on each list at most once.
type UserList struct {
	ID        int64     `bun:",pk,autoincrement"`
	DiscordID uint64    `bun:"discord_id,notnull"`
	Username  string    `bun:",nullzero"`
	ListType  ListType  `bun:",notnull"`
	Reason    string    `bun:",type:text"`
	CreatedAt time.Time `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}
