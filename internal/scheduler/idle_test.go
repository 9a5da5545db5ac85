package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"github.com/fantom2513/vibe-ds-bot/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTargets struct {
	targets []*types.KickTarget
}

func (s *staticTargets) GetActiveTargets(context.Context) ([]*types.KickTarget, error) {
	return s.targets, nil
}

type staticPresence struct {
	presences []tracker.Presence
}

func (s *staticPresence) Active() []tracker.Presence {
	return s.presences
}

func TestIdleSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("kicks target past its timeout", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 3600, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-2 * time.Hour)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, audit, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		require.Len(t, exec.calls, 1)
		assert.Equal(t, execCall{actionType: types.ActionKickTimeout, userID: 1}, exec.calls[0])

		require.Len(t, audit.entries, 1)
		entry := audit.entries[0]
		assert.Nil(t, entry.ruleID)
		assert.Equal(t, "idle_timeout", entry.details["source"])
		assert.Equal(t, 3600, entry.details["timeout_sec"])
	})

	t.Run("leaves target under its timeout alone", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 3600, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-10 * time.Minute)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, &recordingAudit{}, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		assert.Empty(t, exec.calls)
	})

	t.Run("ignores members who are not targets", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 60, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 2, ChannelID: 100, JoinedAt: time.Now().Add(-2 * time.Hour)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{2: 100}}
		exec := &recordingExecutor{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, &recordingAudit{}, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		assert.Empty(t, exec.calls)
	})

	t.Run("skips member who already left voice", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 60, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-2 * time.Hour)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, audit, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		assert.Empty(t, exec.calls)
		assert.Empty(t, audit.entries)
	})

	t.Run("skips member who moved since tracking", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 60, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-2 * time.Hour)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 200}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, audit, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		assert.Empty(t, exec.calls)
		assert.Empty(t, audit.entries)
	})

	t.Run("falls back to the default timeout", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 0, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-30 * time.Minute)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		kicker := scheduler.NewIdleKicker(55, 600, targets, presence, verifier, exec, audit, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		require.Len(t, exec.calls, 1)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, 600, audit.entries[0].details["timeout_sec"])
	})

	t.Run("target without any timeout is skipped", func(t *testing.T) {
		t.Parallel()

		targets := &staticTargets{targets: []*types.KickTarget{
			{DiscordID: 1, TimeoutSec: 0, IsActive: true},
		}}
		presence := &staticPresence{presences: []tracker.Presence{
			{UserID: 1, ChannelID: 100, JoinedAt: time.Now().Add(-24 * time.Hour)},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{}

		kicker := scheduler.NewIdleKicker(55, 0, targets, presence, verifier, exec, &recordingAudit{}, zap.NewNop())
		require.NoError(t, kicker.Sweep(ctx))

		assert.Empty(t, exec.calls)
	})
}
