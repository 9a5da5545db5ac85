package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"github.com/fantom2513/vibe-ds-bot/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticRules struct {
	rules []*types.Rule
	err   error
}

func (s *staticRules) GetActiveRules(context.Context) ([]*types.Rule, error) {
	return s.rules, s.err
}

type staticScanner struct {
	results []tracker.Overtime
}

func (s *staticScanner) ScanOvertime([]*types.Rule) []tracker.Overtime {
	return s.results
}

type staticVerifier struct {
	channels map[uint64]uint64
}

func (s *staticVerifier) MemberVoiceChannel(_, userID uint64) (uint64, bool) {
	channelID, ok := s.channels[userID]
	return channelID, ok
}

type execCall struct {
	actionType types.ActionType
	userID     uint64
}

type recordingExecutor struct {
	mu     sync.Mutex
	calls  []execCall
	refuse bool
}

func (e *recordingExecutor) Execute(
	_ context.Context, _ uint64, actionType types.ActionType, userID uint64, _ map[string]any,
) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, execCall{actionType: actionType, userID: userID})

	return !e.refuse
}

type auditEntry struct {
	ruleID     *int64
	userID     uint64
	actionType types.ActionType
	channelID  *uint64
	details    map[string]any
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) LogAction(
	_ context.Context, ruleID *int64, userID uint64,
	actionType types.ActionType, channelID *uint64, details map[string]any,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{
		ruleID:     ruleID,
		userID:     userID,
		actionType: actionType,
		channelID:  channelID,
		details:    details,
	})

	return nil
}

func overtimeRule(id int64) *types.Rule {
	maxSec := 60
	return &types.Rule{ID: id, IsActive: true, MaxTimeSec: &maxSec, ActionType: types.ActionMute}
}

func TestOvertimeSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("dispatches and audits verified overtime", func(t *testing.T) {
		t.Parallel()

		rule := overtimeRule(7)
		scanner := &staticScanner{results: []tracker.Overtime{
			{UserID: 1, ChannelID: 100, Rule: rule, OvertimeSeconds: 39},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		sweeper := scheduler.NewOvertimeSweeper(55, &staticRules{}, scanner, verifier, exec, audit, zap.NewNop())
		require.NoError(t, sweeper.Sweep(ctx))

		require.Len(t, exec.calls, 1)
		assert.Equal(t, execCall{actionType: types.ActionMute, userID: 1}, exec.calls[0])

		require.Len(t, audit.entries, 1)
		entry := audit.entries[0]
		require.NotNil(t, entry.ruleID)
		assert.Equal(t, int64(7), *entry.ruleID)
		assert.Equal(t, 39, entry.details["overtime_seconds"])
		assert.Equal(t, "overtime", entry.details["source"])
		assert.Equal(t, true, entry.details["executed"])
	})

	t.Run("skips member no longer in the tracked channel", func(t *testing.T) {
		t.Parallel()

		rule := overtimeRule(7)
		scanner := &staticScanner{results: []tracker.Overtime{
			{UserID: 1, ChannelID: 100, Rule: rule, OvertimeSeconds: 10},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 200}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		sweeper := scheduler.NewOvertimeSweeper(55, &staticRules{}, scanner, verifier, exec, audit, zap.NewNop())
		require.NoError(t, sweeper.Sweep(ctx))

		assert.Empty(t, exec.calls)
		assert.Empty(t, audit.entries)
	})

	t.Run("skips member who already left voice", func(t *testing.T) {
		t.Parallel()

		rule := overtimeRule(7)
		scanner := &staticScanner{results: []tracker.Overtime{
			{UserID: 1, ChannelID: 100, Rule: rule, OvertimeSeconds: 10},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{}}
		exec := &recordingExecutor{}
		audit := &recordingAudit{}

		sweeper := scheduler.NewOvertimeSweeper(55, &staticRules{}, scanner, verifier, exec, audit, zap.NewNop())
		require.NoError(t, sweeper.Sweep(ctx))

		assert.Empty(t, exec.calls)
		assert.Empty(t, audit.entries)
	})

	t.Run("audits refused dispatch", func(t *testing.T) {
		t.Parallel()

		rule := overtimeRule(7)
		scanner := &staticScanner{results: []tracker.Overtime{
			{UserID: 1, ChannelID: 100, Rule: rule, OvertimeSeconds: 5},
		}}
		verifier := &staticVerifier{channels: map[uint64]uint64{1: 100}}
		exec := &recordingExecutor{refuse: true}
		audit := &recordingAudit{}

		sweeper := scheduler.NewOvertimeSweeper(55, &staticRules{}, scanner, verifier, exec, audit, zap.NewNop())
		require.NoError(t, sweeper.Sweep(ctx))

		require.Len(t, audit.entries, 1)
		assert.Equal(t, false, audit.entries[0].details["executed"])
	})

	t.Run("rule load failure surfaces", func(t *testing.T) {
		t.Parallel()

		rules := &staticRules{err: errors.New("connection refused")}
		sweeper := scheduler.NewOvertimeSweeper(
			55, rules, &staticScanner{}, &staticVerifier{}, &recordingExecutor{}, &recordingAudit{}, zap.NewNop(),
		)

		assert.Error(t, sweeper.Sweep(ctx))
	})
}
