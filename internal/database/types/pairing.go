package types

import "time"

// StackingPair configures two members whose co-location in a voice channel
// other than the target triggers a joint relocation.
type StackingPair struct {
	ID              int64     `bun:",pk,autoincrement"`
	UserID1         uint64    `bun:"user_id_1,notnull"`
	UserID2         uint64    `bun:"user_id_2,notnull"`
	TargetChannelID uint64    `bun:",notnull"`
	IsActive        bool      `bun:",notnull,default:true"`
	CreatedAt       time.Time `bun:",notnull"`
}

// PairKey is the normalized identity of an unordered member pair.
type PairKey struct {
	Low  uint64
	High uint64
}

// NewPairKey normalizes two member IDs into a PairKey, smaller ID first.
func NewPairKey(a, b uint64) PairKey {
	if a > b {
		a, b = b, a
	}

	return PairKey{Low: a, High: b}
}

// Key returns the pair's normalized identity.
func (p *StackingPair) Key() PairKey {
	return NewPairKey(p.UserID1, p.UserID2)
}

// Contains reports whether the pair includes the given member.
func (p *StackingPair) Contains(userID uint64) bool {
	return userID == p.UserID1 || userID == p.UserID2
}

// PartnerOf returns the other member of the pair. The second return value is
// false when the given member is not part of the pair.
func (p *StackingPair) PartnerOf(userID uint64) (uint64, bool) {
	switch userID {
	case p.UserID1:
		return p.UserID2, true
	case p.UserID2:
		return p.UserID1, true
	default:
		return 0, false
	}
}
