package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerIntervalDuty(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(zap.NewNop())

	var runs atomic.Int64

	sched.RegisterInterval("counter", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	sched.Start(context.Background())

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	sched.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSchedulerDutyFailureIsolation(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(zap.NewNop())

	var failing, healthy atomic.Int64

	sched.RegisterInterval("failing", 10*time.Millisecond, func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	})
	sched.RegisterInterval("healthy", 10*time.Millisecond, func(context.Context) error {
		healthy.Add(1)
		return nil
	})

	sched.Start(context.Background())
	defer sched.Stop()

	// The failing duty keeps firing and never takes the healthy one down.
	require.Eventually(t, func() bool {
		return failing.Load() >= 3 && healthy.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerDutyFailureReachesErrorChannel(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(zap.NewNop())

	sched.RegisterInterval("failing", 10*time.Millisecond, func(context.Context) error {
		return errors.New("connection refused")
	})

	sched.Start(context.Background())
	defer sched.Stop()

	select {
	case err := <-sched.Errors():
		require.ErrorContains(t, err, "failing")
		require.ErrorContains(t, err, "connection refused")
	case <-time.After(time.Second):
		t.Fatal("no duty failure reported")
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(zap.NewNop())
	sched.Stop()
}

func TestSchedulerReplaceCrons(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(zap.NewNop())
	sched.Start(context.Background())
	defer sched.Stop()

	// Swapping duties while running must not race the cron loop.
	for range 10 {
		sched.ReplaceCrons(map[string]scheduler.CronDuty{})
	}
}
