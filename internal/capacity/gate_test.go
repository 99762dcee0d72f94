package capacity

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase/kb-uploader/internal/model"
)

// fetcherFunc adapts a function to the UsageFetcher interface.
type fetcherFunc func(ctx context.Context) (*model.UsageSnapshot, error)

func (f fetcherFunc) FetchUsage(ctx context.Context) (*model.UsageSnapshot, error) {
	return f(ctx)
}

func halfFullSnapshot() *model.UsageSnapshot {
	return &model.UsageSnapshot{
		UsedBytes: 500,
		MaxBytes:  1000,
		Percent:   50,
		UsedHuman: "500 B",
		MaxHuman:  "1000 B",
	}
}

func TestGate_InitialState(t *testing.T) {
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		return halfFullSnapshot(), nil
	}))

	assert.Equal(t, StateUnknown, g.State())
	assert.Nil(t, g.Snapshot())
	assert.False(t, g.IsFull(), "unknown state must not block uploads")
}

func TestGate_Refresh_Success(t *testing.T) {
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		return halfFullSnapshot(), nil
	}))

	g.Refresh(context.Background())

	assert.Equal(t, StateLoaded, g.State())
	require.NotNil(t, g.Snapshot())
	assert.Equal(t, int64(500), g.Snapshot().UsedBytes)
	assert.Empty(t, g.Warning())
	assert.False(t, g.IsFull())
}

func TestGate_Refresh_FailureFailsOpen(t *testing.T) {
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		return nil, fmt.Errorf("connection refused")
	}))

	g.Refresh(context.Background())

	assert.Equal(t, StateDegraded, g.State())
	assert.Contains(t, g.Warning(), "connection refused")
	assert.False(t, g.IsFull(), "degraded gate must not block uploads")
}

func TestGate_Refresh_DegradedKeepsLastSnapshot(t *testing.T) {
	var fail atomic.Bool
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		if fail.Load() {
			return nil, fmt.Errorf("timeout")
		}
		return halfFullSnapshot(), nil
	}))

	g.Refresh(context.Background())
	require.Equal(t, StateLoaded, g.State())

	fail.Store(true)
	g.Refresh(context.Background())

	assert.Equal(t, StateDegraded, g.State())
	// Stale snapshot stays visible next to the warning
	require.NotNil(t, g.Snapshot())
	assert.Equal(t, int64(500), g.Snapshot().UsedBytes)
}

func TestGate_Refresh_ReplacesWholesale(t *testing.T) {
	var used atomic.Int64
	used.Store(500)

	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		return &model.UsageSnapshot{UsedBytes: used.Load(), MaxBytes: 1000, Percent: 50}, nil
	}))

	g.Refresh(context.Background())
	first := g.Snapshot()

	used.Store(700)
	g.Refresh(context.Background())

	assert.Equal(t, int64(700), g.Snapshot().UsedBytes)
	assert.NotSame(t, first, g.Snapshot(), "snapshot is replaced, not mutated")
	assert.Equal(t, int64(500), first.UsedBytes, "published snapshots stay immutable")
}

func TestGate_IsFull(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *model.UsageSnapshot
		expected bool
	}{
		{"half used", &model.UsageSnapshot{UsedBytes: 500, MaxBytes: 1000, Percent: 50}, false},
		{"bytes exhausted", &model.UsageSnapshot{UsedBytes: 1000, MaxBytes: 1000, Percent: 99}, true},
		{"percent exhausted", &model.UsageSnapshot{UsedBytes: 1, MaxBytes: 1000, Percent: 100}, true},
		{"percent out of range", &model.UsageSnapshot{UsedBytes: 1, MaxBytes: 1000, Percent: 137}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(nil)
			g.Adopt(tt.snapshot)
			assert.Equal(t, tt.expected, g.IsFull())
		})
	}
}

func TestGate_Adopt(t *testing.T) {
	g := NewGate(nil)

	g.Adopt(&model.UsageSnapshot{UsedBytes: 900000000, MaxBytes: 1073741824, Percent: 84})

	assert.Equal(t, StateLoaded, g.State())
	assert.False(t, g.IsFull(), "84 percent must not block uploads")

	g.Adopt(&model.UsageSnapshot{UsedBytes: 1073741824, MaxBytes: 1073741824, Percent: 100})
	assert.True(t, g.IsFull())
}

func TestGate_Adopt_NilIgnored(t *testing.T) {
	g := NewGate(nil)
	g.Adopt(nil)

	assert.Equal(t, StateUnknown, g.State())
	assert.Nil(t, g.Snapshot())
}

func TestGate_ScheduleRefresh(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		calls.Add(1)
		return halfFullSnapshot(), nil
	}))

	g.ScheduleRefresh(20 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// No polling: the refresh fires once
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGate_ScheduleRefresh_ReplacesPending(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		calls.Add(1)
		return halfFullSnapshot(), nil
	}))

	g.ScheduleRefresh(500 * time.Millisecond)
	g.ScheduleRefresh(20 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// The first schedule was replaced, not queued
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGate_Stop_CancelsPendingRefresh(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		calls.Add(1)
		return halfFullSnapshot(), nil
	}))

	g.ScheduleRefresh(30 * time.Millisecond)
	g.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGate_ChangeCallback(t *testing.T) {
	var notified atomic.Int32
	g := NewGate(fetcherFunc(func(ctx context.Context) (*model.UsageSnapshot, error) {
		return nil, fmt.Errorf("unreachable")
	}))
	g.SetChangeCallback(func() { notified.Add(1) })

	g.Refresh(context.Background())
	assert.Equal(t, int32(1), notified.Load())

	g.Adopt(halfFullSnapshot())
	assert.Equal(t, int32(2), notified.Load())
}
