// Package tracker maintains the live set of voice presences and mirrors
// session open/close into persistent storage.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"go.uber.org/zap"
)

// SessionStore is the persisted mirror of the in-memory presence set.
type SessionStore interface {
	OpenSession(ctx context.Context, userID, channelID uint64, joinedAt time.Time) error
	CloseSession(ctx context.Context, userID, channelID uint64) error
}

// Key identifies one member's presence in one channel.
type Key struct {
	UserID    uint64
	ChannelID uint64
}

// Presence is a snapshot of one live voice session.
type Presence struct {
	UserID    uint64
	ChannelID uint64
	JoinedAt  time.Time
}

// Overtime reports a presence that exceeded a rule's time threshold.
type Overtime struct {
	UserID          uint64
	ChannelID       uint64
	Rule            *types.Rule
	OvertimeSeconds int
}

// Tracker owns the in-memory presence map. The map is the authority for all
// scheduling decisions; storage write failures are surfaced to the caller
// but never roll the map back.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[Key]time.Time

	store  SessionStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates a tracker backed by the given session store.
func New(store SessionStore, logger *zap.Logger) *Tracker {
	return NewWithClock(store, logger, time.Now)
}

// NewWithClock creates a tracker with a custom clock source. Used by tests.
func NewWithClock(store SessionStore, logger *zap.Logger, now func() time.Time) *Tracker {
	return &Tracker{
		sessions: make(map[Key]time.Time),
		store:    store,
		logger:   logger.Named("tracker"),
		now:      now,
	}
}

// Start records a member joining a channel and opens the persisted session
// row. On a move the caller must End the previous channel first so open
// sessions never accumulate.
func (t *Tracker) Start(ctx context.Context, userID, channelID uint64) error {
	joinedAt := t.now()

	t.mu.Lock()
	t.sessions[Key{UserID: userID, ChannelID: channelID}] = joinedAt
	t.mu.Unlock()

	t.logger.Debug("Session started",
		zap.Uint64("user_id", userID),
		zap.Uint64("channel_id", channelID))

	return t.store.OpenSession(ctx, userID, channelID, joinedAt)
}

// End closes a member's presence in a channel and stamps the persisted row.
// A second End for the same presence is a no-op.
func (t *Tracker) End(ctx context.Context, userID, channelID uint64) error {
	key := Key{UserID: userID, ChannelID: channelID}

	t.mu.Lock()

	if _, ok := t.sessions[key]; !ok {
		t.mu.Unlock()
		return nil
	}

	delete(t.sessions, key)
	t.mu.Unlock()

	t.logger.Debug("Session ended",
		zap.Uint64("user_id", userID),
		zap.Uint64("channel_id", channelID))

	return t.store.CloseSession(ctx, userID, channelID)
}

// Active returns a snapshot of all live presences.
func (t *Tracker) Active() []Presence {
	t.mu.RLock()
	defer t.mu.RUnlock()

	presences := make([]Presence, 0, len(t.sessions))
	for key, joinedAt := range t.sessions {
		presences = append(presences, Presence{
			UserID:    key.UserID,
			ChannelID: key.ChannelID,
			JoinedAt:  joinedAt,
		})
	}

	return presences
}

// ChannelOf returns the channel a member currently occupies, if any.
func (t *Tracker) ChannelOf(userID uint64) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for key := range t.sessions {
		if key.UserID == userID {
			return key.ChannelID, true
		}
	}

	return 0, false
}

// ScanOvertime crosses every live presence against every time-thresholded
// rule whose channel scope matches, yielding one record per exceeded pair
// with the observed excess in seconds.
func (t *Tracker) ScanOvertime(rules []*types.Rule) []Overtime {
	var timeRules []*types.Rule

	for _, rule := range rules {
		if rule.HasTimeLimit() {
			timeRules = append(timeRules, rule)
		}
	}

	if len(timeRules) == 0 {
		return nil
	}

	now := t.now()

	var results []Overtime

	for _, presence := range t.Active() {
		elapsed := now.Sub(presence.JoinedAt).Seconds()

		for _, rule := range timeRules {
			if !rule.AppliesToChannel(presence.ChannelID) {
				continue
			}

			maxSec := float64(*rule.MaxTimeSec)
			if elapsed < maxSec {
				continue
			}

			results = append(results, Overtime{
				UserID:          presence.UserID,
				ChannelID:       presence.ChannelID,
				Rule:            rule,
				OvertimeSeconds: int(elapsed - maxSec),
			})
		}
	}

	return results
}
