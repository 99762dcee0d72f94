package capacity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/knowbase/kb-uploader/internal/model"
)

// State identifies what the gate currently knows about storage usage.
type State string

const (
	// StateUnknown means no fetch has completed yet
	StateUnknown State = "Unknown"

	// StateLoaded means the latest fetch succeeded and a snapshot is held
	StateLoaded State = "Loaded"

	// StateDegraded means the latest fetch failed. Fail-open: uploads stay
	// allowed, a warning is shown instead of the usage line.
	StateDegraded State = "Degraded"
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// UsageFetcher reads the current usage snapshot from the device.
type UsageFetcher interface {
	FetchUsage(ctx context.Context) (*model.UsageSnapshot, error)
}

// Gate holds the latest known usage snapshot and derives the admission
// decision for uploads. Loss of usage visibility must never prevent an
// upload attempt, so fetch failures degrade the gate instead of closing it.
type Gate struct {
	fetcher UsageFetcher

	mu       sync.RWMutex
	state    State
	snapshot *model.UsageSnapshot
	warning  string

	refreshTimer *time.Timer
	onChange     func() // callback for UI updates
}

// NewGate creates a gate in the Unknown state.
func NewGate(fetcher UsageFetcher) *Gate {
	return &Gate{
		fetcher: fetcher,
		state:   StateUnknown,
	}
}

// SetChangeCallback sets the callback invoked after every state or snapshot
// change. Observers re-read the gate; the callback carries nothing.
func (g *Gate) SetChangeCallback(callback func()) {
	g.mu.Lock()
	g.onChange = callback
	g.mu.Unlock()
}

// Refresh fetches a fresh snapshot. On success the snapshot is replaced
// wholesale and the gate is Loaded; on any failure the gate is Degraded with
// a warning, keeping the last snapshot for display.
func (g *Gate) Refresh(ctx context.Context) {
	snapshot, err := g.fetcher.FetchUsage(ctx)

	g.mu.Lock()
	if err != nil {
		g.state = StateDegraded
		g.warning = err.Error()
		g.mu.Unlock()

		log.Warn().Err(err).Msg("usage fetch failed, uploads stay enabled")
		g.notifyChange()
		return
	}

	g.state = StateLoaded
	g.snapshot = snapshot
	g.warning = ""
	g.mu.Unlock()

	log.Debug().
		Int64("used_bytes", snapshot.UsedBytes).
		Int64("max_bytes", snapshot.MaxBytes).
		Float64("percent", snapshot.ClampedPercent()).
		Msg("usage snapshot updated")
	g.notifyChange()
}

// Adopt replaces the snapshot with one carried by an upload response and
// moves the gate to Loaded.
func (g *Gate) Adopt(snapshot *model.UsageSnapshot) {
	if snapshot == nil {
		return
	}

	g.mu.Lock()
	g.state = StateLoaded
	g.snapshot = snapshot
	g.warning = ""
	g.mu.Unlock()

	g.notifyChange()
}

// ScheduleRefresh arranges exactly one re-fetch after the given delay. A
// newly scheduled refresh replaces a pending one; there is no polling.
func (g *Gate) ScheduleRefresh(delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refreshTimer != nil {
		g.refreshTimer.Stop()
	}
	g.refreshTimer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		g.Refresh(ctx)
	})
}

// Stop cancels a pending scheduled refresh.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refreshTimer != nil {
		g.refreshTimer.Stop()
		g.refreshTimer = nil
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Snapshot returns the latest known snapshot, or nil before the first
// successful fetch. Snapshots are never mutated after publication.
func (g *Gate) Snapshot() *model.UsageSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshot
}

// Warning returns the fetch failure text while the gate is Degraded.
func (g *Gate) Warning() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.warning
}

// IsFull reports whether uploads must be blocked. Only a Loaded snapshot can
// block; Unknown and Degraded fail open.
func (g *Gate) IsFull() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateLoaded && g.snapshot.IsFull()
}

// notifyChange calls the change callback if set
func (g *Gate) notifyChange() {
	g.mu.RLock()
	callback := g.onChange
	g.mu.RUnlock()

	if callback != nil {
		callback()
	}
}
