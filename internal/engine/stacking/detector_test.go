package stacking_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/stacking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePresence struct {
	mu       sync.Mutex
	channels map[uint64]uint64
}

func newFakePresence() *fakePresence {
	return &fakePresence{channels: make(map[uint64]uint64)}
}

func (p *fakePresence) set(userID, channelID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[userID] = channelID
}

func (p *fakePresence) ChannelOf(userID uint64) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	channelID, ok := p.channels[userID]
	return channelID, ok
}

type moveCall struct {
	userID uint64
	target uint64
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []moveCall
	fail  bool
}

func (e *fakeExecutor) Execute(_ context.Context, _ uint64, actionType types.ActionType, userID uint64, params map[string]any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if actionType != types.ActionMove {
		return false
	}

	target, _ := types.ChannelIDParam(params)
	e.calls = append(e.calls, moveCall{userID: userID, target: target})

	return !e.fail
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func pairBetween(a, b, target uint64) *types.StackingPair {
	return &types.StackingPair{UserID1: a, UserID2: b, TargetChannelID: target, IsActive: true}
}

func TestCheckAndMove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("moves both members when pair co-locates", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)

		moved := detector.CheckAndMove(ctx, 55, 2)
		require.True(t, moved)
		require.Len(t, exec.calls, 2)
		assert.Equal(t, moveCall{userID: 2, target: 999}, exec.calls[0])
		assert.Equal(t, moveCall{userID: 1, target: 999}, exec.calls[1])
	})

	t.Run("ignores members in different channels", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 200)

		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Empty(t, exec.calls)
	})

	t.Run("does not trigger inside the destination channel", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 999)
		presence.set(2, 999)

		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Empty(t, exec.calls)
	})

	t.Run("triggers once per co-location episode", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)

		require.True(t, detector.CheckAndMove(ctx, 55, 1))
		require.Len(t, exec.calls, 2)

		// Second event for the same pair is latched.
		presence.set(1, 100)
		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Len(t, exec.calls, 2)
	})

	t.Run("latch clears when either member leaves", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)
		require.True(t, detector.CheckAndMove(ctx, 55, 1))

		detector.OnLeave(2)

		presence.set(1, 100)
		presence.set(2, 100)
		assert.True(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Len(t, exec.calls, 4)
	})

	t.Run("rolls back latch when both moves fail", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{fail: true}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)

		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		require.Len(t, exec.calls, 2)

		// Latch rolled back, next event retries.
		exec.mu.Lock()
		exec.fail = false
		exec.mu.Unlock()

		assert.True(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Len(t, exec.calls, 4)
	})

	t.Run("first matching pair wins", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{
			pairBetween(1, 2, 500),
			pairBetween(1, 3, 600),
		})

		presence.set(1, 100)
		presence.set(2, 100)
		presence.set(3, 100)

		require.True(t, detector.CheckAndMove(ctx, 55, 1))
		require.Len(t, exec.calls, 2)
		assert.Equal(t, uint64(500), exec.calls[0].target)
	})

	t.Run("skips non-matching pairs to find a later match", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{
			pairBetween(1, 2, 500),
			pairBetween(3, 4, 600),
		})

		presence.set(3, 100)
		presence.set(4, 100)

		require.True(t, detector.CheckAndMove(ctx, 55, 3))
		require.Len(t, exec.calls, 2)
		assert.Equal(t, uint64(600), exec.calls[0].target)
	})

	t.Run("user without presence is ignored", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Empty(t, exec.calls)
	})
}

func TestCheckAndMoveConcurrent(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	exec := &fakeExecutor{}
	detector := stacking.New(presence, exec, zap.NewNop())
	detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

	presence.set(1, 100)
	presence.set(2, 100)

	var wg sync.WaitGroup
	triggered := make([]bool, 2)

	for i, userID := range []uint64{1, 2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			triggered[i] = detector.CheckAndMove(context.Background(), 55, userID)
		}()
	}
	wg.Wait()

	// Exactly one of the concurrent events wins the latch.
	wins := 0
	for _, ok := range triggered {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 2, exec.callCount())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("preserves latches for surviving pairs", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)
		require.True(t, detector.CheckAndMove(ctx, 55, 1))

		// Same pair identity survives a reload, latch holds.
		detector.Load([]*types.StackingPair{pairBetween(2, 1, 777)})
		assert.False(t, detector.CheckAndMove(ctx, 55, 1))
		assert.Len(t, exec.calls, 2)
	})

	t.Run("drops latches for removed pairs", func(t *testing.T) {
		t.Parallel()

		presence := newFakePresence()
		exec := &fakeExecutor{}
		detector := stacking.New(presence, exec, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		presence.set(1, 100)
		presence.set(2, 100)
		require.True(t, detector.CheckAndMove(ctx, 55, 1))

		detector.Load([]*types.StackingPair{pairBetween(3, 4, 999)})
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		// Latch was discarded when the pair left the list.
		assert.True(t, detector.CheckAndMove(ctx, 55, 1))
	})

	t.Run("returns a copy of the loaded list", func(t *testing.T) {
		t.Parallel()

		detector := stacking.New(newFakePresence(), &fakeExecutor{}, zap.NewNop())
		detector.Load([]*types.StackingPair{pairBetween(1, 2, 999)})

		pairs := detector.Pairs()
		require.Len(t, pairs, 1)
		pairs[0] = nil

		assert.NotNil(t, detector.Pairs()[0])
	})
}
